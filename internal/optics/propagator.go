package optics

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Propagator reconstructs complex fields at arbitrary distances from the
// one-time Fourier transform of a padded dark-field hologram. The frequency
// kernel is shared across all calls, so a depth sweep costs one spectrum
// multiplication and one inverse transform per distance, never a grid
// recomputation.
type Propagator struct {
	kernel  *FrequencyKernel
	backend Backend
}

// NewPropagator binds a precomputed kernel to a numeric backend.
func NewPropagator(kernel *FrequencyKernel, backend Backend) *Propagator {
	return &Propagator{kernel: kernel, backend: backend}
}

// Spectrum computes the forward transform of a padded dark-field image.
// The result is the reusable input to Propagate.
func (p *Propagator) Spectrum(img *Image) (*Field, error) {
	if img.W != p.kernel.W || img.H != p.kernel.H {
		return nil, fmt.Errorf("propagator: image %dx%d does not match kernel %dx%d",
			img.W, img.H, p.kernel.W, p.kernel.H)
	}
	f := FieldFromImage(img)
	p.backend.FFT2(f)
	return f, nil
}

// Propagate returns the complex field at signed distance distUm from the
// hologram plane. Negative distances propagate toward the source. The input
// spectrum is not modified; each call allocates its own output so parallel
// depth sweeps never share write targets.
func (p *Propagator) Propagate(spectrum *Field, distUm float64) (*Field, error) {
	if spectrum.W != p.kernel.W || spectrum.H != p.kernel.H {
		return nil, fmt.Errorf("propagator: spectrum %dx%d does not match kernel %dx%d",
			spectrum.W, spectrum.H, p.kernel.W, p.kernel.H)
	}

	out := NewField(spectrum.W, spectrum.H)
	phase := 2 * math.Pi * distUm
	for i, fz := range p.kernel.FZ {
		out.Data[i] = spectrum.Data[i] * cmplx.Exp(complex(0, phase*fz))
	}
	p.backend.IFFT2(out)
	return out, nil
}
