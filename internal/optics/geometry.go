package optics

import (
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/config"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/units"
)

// Geometry captures the acquisition geometry for one hologram stack:
// frame dimensions plus the optical parameters of the recording. All
// lengths are micrometres. A Geometry is immutable after construction.
type Geometry struct {
	Width  int // unpadded frame width (px)
	Height int // unpadded frame height (px)
	Border int // zero-pad border applied before propagation (px)

	EffPixelUm      float64 // object-space pixel size: pitch / magnification
	WavelengthUm    float64
	RefractiveIndex float64

	BaseDistanceUm float64
	RangeLowerUm   float64
	RangeStepUm    float64
	Samples        int // number of depth samples (Sz)
}

// NewGeometry builds a Geometry for frames of the given dimensions from a
// validated tuning config.
func NewGeometry(cfg *config.TuningConfig, width, height int) *Geometry {
	return &Geometry{
		Width:           width,
		Height:          height,
		Border:          cfg.GetPadBorderPx(),
		EffPixelUm:      units.EffectivePixelSizeUm(cfg.GetPixelSizeUm(), cfg.GetMagnification()),
		WavelengthUm:    cfg.GetWavelengthUm(),
		RefractiveIndex: cfg.GetRefractiveIndex(),
		BaseDistanceUm:  cfg.GetBaseDistanceUm(),
		RangeLowerUm:    cfg.GetRangeLowerUm(),
		RangeStepUm:     cfg.GetRangeStepUm(),
		Samples:         cfg.DepthSamples(),
	}
}

// PaddedWidth returns the frame width after zero-padding.
func (g *Geometry) PaddedWidth() int { return g.Width + 2*g.Border }

// PaddedHeight returns the frame height after zero-padding.
func (g *Geometry) PaddedHeight() int { return g.Height + 2*g.Border }

// DistanceUm returns the absolute propagation distance of depth sample i:
// the base recording distance offset by the sampled window.
func (g *Geometry) DistanceUm(i int) float64 {
	return g.BaseDistanceUm + g.RangeLowerUm + float64(i)*g.RangeStepUm
}

// MidSample returns the depth index exported as the classical
// reconstruction: the sample nearest the midpoint of the scanned range.
func (g *Geometry) MidSample() int {
	return (g.Samples+1)/2 - 1
}

// ZUm converts a depth-sample index to its window-relative z position.
func (g *Geometry) ZUm(i int) float64 {
	return units.DepthIndexToUm(i, g.RangeStepUm, g.RangeLowerUm)
}
