// Package units provides shared conversions between sensor pixel coordinates
// and physical micrometre positions.
package units

// All lengths in this module are micrometres unless a name says otherwise.
// The sensor records holograms at the native pitch of the camera; optical
// magnification scales the effective pixel size in object space.

// EffectivePixelSizeUm returns the object-space size of one pixel:
// sensor pitch divided by magnification.
func EffectivePixelSizeUm(pixelSizeUm, magnification float64) float64 {
	return pixelSizeUm / magnification
}

// PixelToUm converts a (possibly fractional) pixel coordinate to micrometres
// using the effective pixel size.
func PixelToUm(px, pixelSizeUm, magnification float64) float64 {
	return px * EffectivePixelSizeUm(pixelSizeUm, magnification)
}

// DepthIndexToUm converts a 0-based depth-slice index into a z position in
// micrometres, relative to the sampled propagation window (not an absolute
// stage position).
func DepthIndexToUm(index int, stepUm, rangeLowerUm float64) float64 {
	return float64(index)*stepUm + rangeLowerUm
}

// UmToDepthIndex returns the nearest 0-based depth-slice index for a z
// position inside the sampled window. Results are clamped to [0, samples-1].
func UmToDepthIndex(zUm, stepUm, rangeLowerUm float64, samples int) int {
	if samples <= 0 {
		return 0
	}
	idx := int((zUm-rangeLowerUm)/stepUm + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx >= samples {
		idx = samples - 1
	}
	return idx
}
