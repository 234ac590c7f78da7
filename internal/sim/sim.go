// Package sim synthesizes holograms of point scatterers for tests and
// tooling. It runs the optical model backwards: the scattered field of each
// point is propagated from its depth to the sensor plane and interfered
// with a uniform reference, so reconstructing the synthetic frame with the
// forward pipeline refocuses the points at their original depths.
package sim

import (
	"math"

	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/optics"
)

// Scatterer is one synthetic point object in the sampled volume.
type Scatterer struct {
	XPx       float64 // unpadded pixel coordinates
	YPx       float64
	ZIdx      int // depth-sample index
	Amplitude float64
}

// Simulator renders hologram frames for a fixed acquisition geometry.
type Simulator struct {
	geom       *optics.Geometry
	propagator *optics.Propagator

	// BackgroundLevel is the uniform reference intensity added to every
	// pixel. The pipeline's background estimators remove it again.
	BackgroundLevel float64
}

// NewSimulator builds a simulator sharing the geometry and backend of the
// reconstruction under test.
func NewSimulator(geom *optics.Geometry, backend optics.Backend) *Simulator {
	return &Simulator{
		geom:            geom,
		propagator:      optics.NewPropagator(optics.NewKernelForGeometry(geom), backend),
		BackgroundLevel: 1,
	}
}

// Frame renders one hologram of the given scatterers.
func (s *Simulator) Frame(scatterers []Scatterer) (*optics.Image, error) {
	g := s.geom
	sensor := optics.NewField(g.PaddedWidth(), g.PaddedHeight())

	for _, sc := range scatterers {
		point := optics.NewImage(g.Width, g.Height)
		x := int(math.Round(sc.XPx))
		y := int(math.Round(sc.YPx))
		if x < 0 || x >= g.Width || y < 0 || y >= g.Height {
			continue
		}
		point.Set(x, y, sc.Amplitude)

		spectrum, err := s.propagator.Spectrum(optics.PadImage(point, g.Border))
		if err != nil {
			return nil, err
		}
		field, err := s.propagator.Propagate(spectrum, -g.DistanceUm(sc.ZIdx))
		if err != nil {
			return nil, err
		}
		for i, v := range field.Data {
			sensor.Data[i] += v
		}
	}

	// Interfere with the reference: weak-scatterer hologram intensity.
	frame := optics.NewImage(g.Width, g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			v := sensor.Data[(y+g.Border)*g.PaddedWidth()+(x+g.Border)]
			frame.Set(x, y, s.BackgroundLevel+2*real(v))
		}
	}
	return frame, nil
}

// Sequence renders one frame per step, moving each scatterer by its
// per-frame displacement. Depth indices are clamped to the sampled range.
func (s *Simulator) Sequence(start []Scatterer, perFrame []ScattererStep, frames int) ([]*optics.Image, error) {
	out := make([]*optics.Image, frames)
	current := append([]Scatterer(nil), start...)
	for f := 0; f < frames; f++ {
		frame, err := s.Frame(current)
		if err != nil {
			return nil, err
		}
		out[f] = frame
		for i := range current {
			if i >= len(perFrame) {
				continue
			}
			current[i].XPx += perFrame[i].DXPx
			current[i].YPx += perFrame[i].DYPx
			current[i].ZIdx = clamp(current[i].ZIdx+perFrame[i].DZIdx, 0, s.geom.Samples-1)
		}
	}
	return out, nil
}

// ScattererStep is a per-frame displacement for one scatterer.
type ScattererStep struct {
	DXPx  float64
	DYPx  float64
	DZIdx int
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
