package optics

import "math"

// FrequencyKernel holds the precomputed axial spatial-frequency component
// FZ for angular-spectrum propagation on a padded frame grid.
//
// FZ(fy, fx) = sqrt((n0/λ)² − fx² − fy²); grid points whose radicand is
// negative are evanescent; they carry no far-field information and are
// stored as exactly zero so they contribute no phase during propagation.
//
// Frequencies are laid out in wrapped (transform) order, matching the
// backend's FFT convention, so no cyclic shift is needed per call. A kernel
// is computed once per acquisition geometry and is immutable afterwards.
type FrequencyKernel struct {
	W, H int
	FZ   []float64 // row-major, cycles per micrometre
}

// NewFrequencyKernel precomputes FZ for a padded w×h grid with the given
// object-space pixel size, wavelength, and background refractive index.
func NewFrequencyKernel(w, h int, effPixelUm, wavelengthUm, n0 float64) *FrequencyKernel {
	k := &FrequencyKernel{W: w, H: h, FZ: make([]float64, w*h)}

	fx := wrappedFrequencies(w, effPixelUm)
	fy := wrappedFrequencies(h, effPixelUm)
	r := n0 / wavelengthUm
	r2 := r * r

	for y := 0; y < h; y++ {
		fy2 := fy[y] * fy[y]
		row := k.FZ[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			arg := r2 - fx[x]*fx[x] - fy2
			if arg > 0 {
				row[x] = math.Sqrt(arg)
			}
		}
	}
	return k
}

// NewKernelForGeometry builds the kernel for a geometry's padded dimensions.
func NewKernelForGeometry(g *Geometry) *FrequencyKernel {
	return NewFrequencyKernel(g.PaddedWidth(), g.PaddedHeight(),
		g.EffPixelUm, g.WavelengthUm, g.RefractiveIndex)
}

// wrappedFrequencies returns the sampled spatial frequencies for an n-point
// axis with the given pitch, in wrapped FFT order: 0, 1, ..., up to the
// Nyquist fold, then the negative frequencies.
func wrappedFrequencies(n int, pitchUm float64) []float64 {
	step := 1.0 / (float64(n) * pitchUm)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		k := i
		if i > n/2 {
			k = i - n
		}
		out[i] = float64(k) * step
	}
	return out
}
