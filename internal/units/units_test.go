package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectivePixelSizeUm(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 1.75, EffectivePixelSizeUm(3.5, 2.0), 1e-12)
	assert.InDelta(t, 3.5, EffectivePixelSizeUm(3.5, 1.0), 1e-12)
}

func TestPixelToUm(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 17.5, PixelToUm(10, 3.5, 2.0), 1e-12)
	assert.InDelta(t, 0, PixelToUm(0, 3.5, 2.0), 1e-12)
}

func TestDepthIndexToUm(t *testing.T) {
	t.Parallel()
	// Window-relative: index 0 sits at the lower range bound.
	assert.InDelta(t, -50.0, DepthIndexToUm(0, 5.0, -50.0), 1e-12)
	assert.InDelta(t, 0.0, DepthIndexToUm(10, 5.0, -50.0), 1e-12)
	assert.InDelta(t, 25.0, DepthIndexToUm(15, 5.0, -50.0), 1e-12)
}

func TestUmToDepthIndexRoundTrip(t *testing.T) {
	t.Parallel()
	for idx := 0; idx < 21; idx++ {
		z := DepthIndexToUm(idx, 5.0, -50.0)
		assert.Equal(t, idx, UmToDepthIndex(z, 5.0, -50.0, 21))
	}
}

func TestUmToDepthIndexClamps(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, UmToDepthIndex(-1000, 5.0, -50.0, 21))
	assert.Equal(t, 20, UmToDepthIndex(1000, 5.0, -50.0, 21))
	assert.Equal(t, 0, UmToDepthIndex(0, 5.0, -50.0, 0))
}
