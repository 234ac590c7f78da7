package holo

import (
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/config"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/monitoring"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/optics"
)

// BackgroundProvider yields the reference background used for dark-field
// subtraction, already padded to match the padded hologram frames. The
// variant (mean / per-frame smoothed / explicit) is resolved once at setup;
// callers never branch on mode again.
type BackgroundProvider interface {
	// PaddedBackground returns the background for the given frame index.
	// The returned image is shared and must not be mutated.
	PaddedBackground(frame int) *optics.Image
}

// ResolveBackground builds the per-run background provider for a stack.
//
// Mode auto picks the stack mean when the stack is long enough for the mean
// to be reliable (config.MeanBackgroundMinFrames), otherwise the per-frame
// smoothed estimate. Explicit backgrounds are validated against the stack
// dimensions: one shared 2D image, or one image per frame. A mismatch is a
// ConfigurationError and aborts before any processing.
func ResolveBackground(cfg *config.TuningConfig, stack *Stack, explicit []*optics.Image) (BackgroundProvider, error) {
	mode := cfg.GetBackgroundMode()
	if mode == config.BackgroundAuto {
		if stack.Len() >= config.MeanBackgroundMinFrames {
			mode = config.BackgroundMean
		} else {
			mode = config.BackgroundSmoothed
		}
	}
	border := cfg.GetPadBorderPx()

	switch mode {
	case config.BackgroundMean:
		monitoring.Infof("holo: background mode mean over %d frames", stack.Len())
		return newMeanBackground(stack, border), nil

	case config.BackgroundSmoothed:
		monitoring.Infof("holo: background mode per-frame smoothed, radius %d px",
			cfg.GetBackgroundSmoothRadius())
		return &smoothedBackground{
			stack:  stack,
			radius: cfg.GetBackgroundSmoothRadius(),
			border: border,
			cache:  make([]*optics.Image, stack.Len()),
		}, nil

	case config.BackgroundExplicit:
		return newExplicitBackground(stack, explicit, border)

	default:
		return nil, config.NewConfigurationError("background_mode", "unknown mode %q", mode)
	}
}

// meanBackground holds the element-wise mean of the whole stack, padded once.
type meanBackground struct {
	padded *optics.Image
}

func newMeanBackground(stack *Stack, border int) *meanBackground {
	mean := optics.NewImage(stack.Width, stack.Height)
	for _, frame := range stack.Frames {
		for i, v := range frame.Pix {
			mean.Pix[i] += v
		}
	}
	n := float64(stack.Len())
	for i := range mean.Pix {
		mean.Pix[i] /= n
	}
	return &meanBackground{padded: optics.PadImage(mean, border)}
}

func (b *meanBackground) PaddedBackground(int) *optics.Image { return b.padded }

// smoothedBackground derives each frame's background from the frame itself
// with a large-kernel low pass. Used for short stacks where the mean is
// unreliable. Each cache slot is only touched by its own frame's worker.
type smoothedBackground struct {
	stack  *Stack
	radius int
	border int
	cache  []*optics.Image
}

func (b *smoothedBackground) PaddedBackground(frame int) *optics.Image {
	if b.cache[frame] == nil {
		b.cache[frame] = optics.PadImage(BoxSmooth(b.stack.Frames[frame], b.radius), b.border)
	}
	return b.cache[frame]
}

// explicitBackground wraps caller-supplied backgrounds: either one shared
// image or one per frame.
type explicitBackground struct {
	padded []*optics.Image // len 1 (shared) or stack length
}

func newExplicitBackground(stack *Stack, explicit []*optics.Image, border int) (*explicitBackground, error) {
	if len(explicit) == 0 {
		return nil, config.NewConfigurationError("background",
			"explicit background mode selected but no background supplied")
	}
	if len(explicit) != 1 && len(explicit) != stack.Len() {
		return nil, config.NewConfigurationError("background",
			"got %d background frames for a %d-frame stack (want 1 or %d)",
			len(explicit), stack.Len(), stack.Len())
	}
	padded := make([]*optics.Image, len(explicit))
	for i, bg := range explicit {
		if bg.W != stack.Width || bg.H != stack.Height {
			return nil, config.NewConfigurationError("background",
				"background %d is %dx%d, holograms are %dx%d",
				i, bg.W, bg.H, stack.Width, stack.Height)
		}
		padded[i] = optics.PadImage(bg, border)
	}
	monitoring.Infof("holo: background mode explicit (%d image(s))", len(explicit))
	return &explicitBackground{padded: padded}, nil
}

func (b *explicitBackground) PaddedBackground(frame int) *optics.Image {
	if len(b.padded) == 1 {
		return b.padded[0]
	}
	return b.padded[frame]
}
