package optics

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/config"
)

func TestBackendRoundTripIdentity(t *testing.T) {
	t.Parallel()

	b := newGonumBackend()
	f := NewField(8, 6)
	for i := range f.Data {
		f.Data[i] = complex(float64(i%7)-3, float64(i%5)-2)
	}
	orig := f.Clone()

	b.FFT2(f)
	b.IFFT2(f)

	for i := range f.Data {
		assert.InDelta(t, real(orig.Data[i]), real(f.Data[i]), 1e-10)
		assert.InDelta(t, imag(orig.Data[i]), imag(f.Data[i]), 1e-10)
	}
}

func TestBackendImpulseSpectrumIsFlat(t *testing.T) {
	t.Parallel()

	b := newGonumBackend()
	f := NewField(16, 16)
	f.Data[0] = 1 // impulse at origin

	b.FFT2(f)
	for i := range f.Data {
		assert.InDelta(t, 1.0, real(f.Data[i]), 1e-10)
		assert.InDelta(t, 0.0, imag(f.Data[i]), 1e-10)
	}
}

func TestSelectBackendFallsBackWithoutAccelerated(t *testing.T) {
	// Not parallel: mutates the global registry.
	RegisterAccelerated(nil)

	for _, mode := range []string{config.AccelOff, config.AccelOn, config.AccelAuto} {
		b := SelectBackend(mode)
		require.NotNil(t, b)
		assert.Equal(t, "gonum", b.Name())
	}
}

func TestSelectBackendPrefersRegistered(t *testing.T) {
	RegisterAccelerated(fakeBackend{})
	defer RegisterAccelerated(nil)

	assert.Equal(t, "fake-accel", SelectBackend(config.AccelAuto).Name())
	assert.Equal(t, "fake-accel", SelectBackend(config.AccelOn).Name())
	assert.Equal(t, "gonum", SelectBackend(config.AccelOff).Name())
}

type fakeBackend struct{}

func (fakeBackend) Name() string { return "fake-accel" }
func (fakeBackend) FFT2(*Field) {}
func (fakeBackend) IFFT2(*Field) {}

func TestKernelEvanescentFrequenciesAreExactlyZero(t *testing.T) {
	t.Parallel()

	// Pixel pitch close to the wavelength forces a large evanescent region.
	k := NewFrequencyKernel(32, 32, 0.6, 0.532, 1.0)

	fx := wrappedFrequencies(32, 0.6)
	r2 := (1.0 / 0.532) * (1.0 / 0.532)

	var evanescent int
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			f2 := fx[x]*fx[x] + fx[y]*fx[y]
			if f2 > r2 {
				evanescent++
				assert.Zero(t, k.FZ[y*32+x])
			} else {
				assert.InDelta(t, math.Sqrt(r2-f2), k.FZ[y*32+x], 1e-12)
			}
		}
	}
	require.Positive(t, evanescent, "test geometry must produce evanescent samples")
}

func TestKernelDCComponent(t *testing.T) {
	t.Parallel()

	k := NewFrequencyKernel(16, 16, 3.45, 0.532, 1.33)
	assert.InDelta(t, 1.33/0.532, k.FZ[0], 1e-12)
}

func TestWrappedFrequenciesOrder(t *testing.T) {
	t.Parallel()

	f := wrappedFrequencies(8, 1.0)
	want := []float64{0, 0.125, 0.25, 0.375, 0.5, -0.375, -0.25, -0.125}
	for i := range want {
		assert.InDelta(t, want[i], f[i], 1e-12, "index %d", i)
	}
}

func TestPropagatorRoundTrip(t *testing.T) {
	t.Parallel()

	const n = 32
	backend := newGonumBackend()
	k := NewFrequencyKernel(n, n, 3.45, 0.532, 1.0)
	p := NewPropagator(k, backend)

	// Single low-frequency plane wave: immune to padding artifacts.
	img := NewImage(n, n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			img.Set(x, y, 1+0.5*math.Cos(2*math.Pi*float64(x)/n))
		}
	}

	spec, err := p.Spectrum(img)
	require.NoError(t, err)

	forward, err := p.Propagate(spec, 150.0)
	require.NoError(t, err)

	backSpec := forward.Clone()
	backend.FFT2(backSpec)
	back, err := p.Propagate(backSpec, -150.0)
	require.NoError(t, err)

	for i := range back.Data {
		assert.InDelta(t, img.Pix[i], cmplx.Abs(back.Data[i]), 1e-8)
	}
}

func TestPropagatorRejectsMismatchedDims(t *testing.T) {
	t.Parallel()

	p := NewPropagator(NewFrequencyKernel(16, 16, 3.45, 0.532, 1.0), newGonumBackend())

	_, err := p.Spectrum(NewImage(8, 8))
	require.Error(t, err)

	_, err = p.Propagate(NewField(8, 8), 10)
	require.Error(t, err)
}

func TestPadImageAndCrop(t *testing.T) {
	t.Parallel()

	img := NewImage(3, 2)
	for i := range img.Pix {
		img.Pix[i] = float64(i + 1)
	}

	padded := PadImage(img, 2)
	assert.Equal(t, 7, padded.W)
	assert.Equal(t, 6, padded.H)
	assert.Zero(t, padded.At(0, 0))
	assert.Equal(t, 1.0, padded.At(2, 2))
	assert.Equal(t, 6.0, padded.At(4, 3))

	f := FieldFromImage(padded)
	cropped := CropMagnitude(f, 2, 3, 2)
	assert.Equal(t, img.Pix, cropped.Pix)
}

func TestGeometry(t *testing.T) {
	t.Parallel()

	cfg := config.MustLoadDefaultConfig()
	g := NewGeometry(cfg, 128, 96)

	assert.Equal(t, 128+2*64, g.PaddedWidth())
	assert.Equal(t, 96+2*64, g.PaddedHeight())
	assert.Equal(t, 41, g.Samples)
	assert.Equal(t, 20, g.MidSample())
	assert.InDelta(t, 3.45/2.0, g.EffPixelUm, 1e-12)

	// Distance sweep covers base + [lower, upper].
	assert.InDelta(t, 2500-200, g.DistanceUm(0), 1e-9)
	assert.InDelta(t, 2500+200, g.DistanceUm(g.Samples-1), 1e-9)

	// z output is window-relative.
	assert.InDelta(t, -200, g.ZUm(0), 1e-9)
	assert.InDelta(t, 0, g.ZUm(20), 1e-9)
}
