package holo

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/monitoring"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/optics"
)

// VolumeBuilder sweeps the propagation range for single frames, producing
// the dark-field amplitude volume, the gradient-energy volume, and the
// mid-range classical reconstruction.
//
// The kernel and backend are shared and read-only; a VolumeBuilder is safe
// to use from concurrent frame workers.
type VolumeBuilder struct {
	geom       *optics.Geometry
	propagator *optics.Propagator
	background BackgroundProvider
	workers    int
}

// NewVolumeBuilder wires the builder. workers caps the per-distance
// parallelism; 0 means GOMAXPROCS.
func NewVolumeBuilder(geom *optics.Geometry, prop *optics.Propagator, bg BackgroundProvider, workers int) *VolumeBuilder {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &VolumeBuilder{geom: geom, propagator: prop, background: bg, workers: workers}
}

// FrameVolumes holds the per-frame depth sweep output.
type FrameVolumes struct {
	Dark *Volume       // propagated dark-field amplitude
	Grad *Volume       // squared gradient magnitude (focus proxy)
	CR   *optics.Image // classical reconstruction at the range midpoint
}

// Build runs the depth sweep for one frame: pad, subtract background,
// transform once, then propagate to each sampled distance on a worker pool.
// Each worker writes whole slices, so merging needs no synchronization
// beyond the join.
func (vb *VolumeBuilder) Build(frame *optics.Image, frameIdx int) (*FrameVolumes, error) {
	g := vb.geom
	if frame.W != g.Width || frame.H != g.Height {
		return nil, fmt.Errorf("volume: frame %d is %dx%d, geometry wants %dx%d",
			frameIdx, frame.W, frame.H, g.Width, g.Height)
	}

	padded := optics.PadImage(frame, g.Border)
	bg := vb.background.PaddedBackground(frameIdx)
	dark := optics.NewImage(padded.W, padded.H)
	for i := range padded.Pix {
		dark.Pix[i] = padded.Pix[i] - bg.Pix[i]
	}

	spectrum, err := vb.propagator.Spectrum(dark)
	if err != nil {
		return nil, fmt.Errorf("volume: frame %d: %w", frameIdx, err)
	}

	out := &FrameVolumes{
		Dark: NewVolume(g.Width, g.Height, g.Samples),
		Grad: NewVolume(g.Width, g.Height, g.Samples),
	}

	workers := vb.workers
	if workers > g.Samples {
		workers = g.Samples
	}

	var wg sync.WaitGroup
	indices := make(chan int)
	errs := make([]error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for z := range indices {
				field, err := vb.propagator.Propagate(spectrum, g.DistanceUm(z))
				if err != nil {
					errs[w] = err
					continue
				}
				amp := optics.CropMagnitude(field, g.Border, g.Width, g.Height)
				out.Dark.SetSlice(z, amp)
				out.Grad.SetSlice(z, GradientEnergy(amp))
				monitoring.Tracef("holo: frame %d slice %d/%d at %.1f um",
					frameIdx, z+1, g.Samples, g.DistanceUm(z))
			}
		}(w)
	}
	for z := 0; z < g.Samples; z++ {
		indices <- z
	}
	close(indices)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("volume: frame %d: %w", frameIdx, err)
		}
	}

	out.CR = out.Dark.Slice(g.MidSample()).Clone()
	return out, nil
}
