package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/config"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/holo"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/monitoring"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/optics"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/tracking"
)

// Result is the per-run output container. Frames is frame-indexed and
// pre-sized before any worker starts; each frame slot is written by exactly
// one worker, the track table by the sequential tracker pass.
type Result struct {
	Frames []holo.FrameResult
	Tracks []*tracking.Track

	// GatingRadiusPx is the tracker's derived XY association radius in
	// pixels; GatingSet is false when no frame pair could calibrate it.
	GatingRadiusPx float64
	GatingSet      bool

	Geometry *optics.Geometry
	Elapsed  time.Duration
}

// Run reconstructs and tracks a hologram stack under the given tuning.
// explicitBackground is consulted only in explicit background mode and may
// be nil otherwise. The config must already be validated.
func Run(ctx context.Context, cfg *config.TuningConfig, stack *holo.Stack, explicitBackground []*optics.Image) (*Result, error) {
	start := time.Now()

	frames := stack.Len()
	if limit := cfg.GetMaxFrames(); limit > 0 && limit < frames {
		frames = limit
		stack = holo.NewStack(stack.Frames[:frames])
	}

	monitoring.SetVerbosity(cfg.GetVerbosity())
	monitoring.Infof("pipeline: %d frame(s) of %dx%d px, %d depth sample(s)",
		frames, stack.Width, stack.Height, cfg.DepthSamples())

	geom := optics.NewGeometry(cfg, stack.Width, stack.Height)
	backend := optics.SelectBackend(cfg.GetAcceleration())
	propagator := optics.NewPropagator(optics.NewKernelForGeometry(geom), backend)

	background, err := holo.ResolveBackground(cfg, stack, explicitBackground)
	if err != nil {
		return nil, err
	}

	builder := holo.NewVolumeBuilder(geom, propagator, background, cfg.GetWorkers())
	segmenter := &holo.Segmenter{
		MinObjectPixels:   cfg.GetMinObjectPixels(),
		ScoreSmoothRadius: cfg.GetScoreSmoothRadius(),
		LocalWindowRadius: cfg.GetLocalWindowRadius(),
	}
	localizer := &holo.Localizer{SharpQuantile: cfg.GetSharpPixelQuantile()}

	result := &Result{
		Frames:   make([]holo.FrameResult, frames),
		Geometry: geom,
	}

	if err := reconstructFrames(ctx, cfg, stack, builder, segmenter, localizer, result); err != nil {
		return nil, err
	}

	// Tracking is sequential: frame t's association depends on the track
	// state accumulated from every earlier frame.
	tracker := tracking.NewTracker(tracking.ConfigFromTuning(cfg))
	for f := 0; f < frames; f++ {
		tracker.Observe(detectionPoints(result.Frames[f].Detections))
	}
	result.Tracks = tracker.Tracks()
	result.GatingRadiusPx, result.GatingSet = tracker.GatingRadius()

	result.Elapsed = time.Since(start)
	monitoring.Infof("pipeline: done, %d track(s) over %d frame(s) in %s",
		len(result.Tracks), frames, result.Elapsed.Round(time.Millisecond))
	return result, nil
}

// reconstructFrames fans the per-frame work out over a worker pool. Workers
// write disjoint frame slots, so the only synchronization is the join.
func reconstructFrames(ctx context.Context, cfg *config.TuningConfig, stack *holo.Stack,
	builder *holo.VolumeBuilder, segmenter *holo.Segmenter, localizer *holo.Localizer, result *Result) error {

	workers := cfg.GetWorkers()
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(result.Frames) {
		workers = len(result.Frames)
	}

	var wg sync.WaitGroup
	frameCh := make(chan int)
	errs := make([]error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for f := range frameCh {
				if errs[w] != nil {
					continue
				}
				errs[w] = reconstructFrame(stack.Frames[f], f, builder, segmenter, localizer, result)
			}
		}(w)
	}

feed:
	for f := 0; f < len(result.Frames); f++ {
		select {
		case frameCh <- f:
		case <-ctx.Done():
			break feed
		}
	}
	close(frameCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("pipeline: canceled: %w", err)
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func reconstructFrame(frame *optics.Image, f int, builder *holo.VolumeBuilder,
	segmenter *holo.Segmenter, localizer *holo.Localizer, result *Result) error {

	vol, err := builder.Build(frame, f)
	if err != nil {
		return fmt.Errorf("pipeline: frame %d: %w", f, err)
	}
	labels := segmenter.Segment(vol)
	detections, edof := localizer.Localize(vol, labels, f)

	result.Frames[f] = holo.FrameResult{
		Frame:      f,
		Detections: detections,
		EDOF:       edof,
		CR:         vol.CR,
	}
	monitoring.Diagf("pipeline: frame %d reconstructed, %d detection(s)", f, len(detections))
	return nil
}

// detectionPoints converts one frame's detections to tracker points in the
// pixel/depth-index grid. A degenerate frame yields an empty slice and the
// tracker marks every live track absent.
func detectionPoints(dets []holo.Detection) []tracking.Point {
	pts := make([]tracking.Point, len(dets))
	for i, d := range dets {
		pts[i] = tracking.Point{X: d.XPx, Y: d.YPx, Z: float64(d.ZIdx)}
	}
	return pts
}
