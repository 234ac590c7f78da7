package holo

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/monitoring"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/optics"
)

// Localizer turns a frame's label map and volumes into 3D detections and
// the extended-depth-of-focus composite.
type Localizer struct {
	// SharpQuantile selects the in-mask gradient quantile above which
	// pixels count toward the depth estimate (0.8 keeps the sharpest 20%).
	SharpQuantile float64
}

// Localize computes one Detection per labeled object and fills the EDOF
// composite: inside each object's footprint the composite holds the dark
// amplitude at that object's own resolved depth; elsewhere it stays zero.
func (l *Localizer) Localize(vol *FrameVolumes, labels *LabelMap, frameIdx int) ([]Detection, *optics.Image) {
	edof := optics.NewImage(labels.W, labels.H)
	if labels.Count == 0 {
		return nil, edof
	}

	depthIdx, depthGrad := vol.Grad.ArgMaxProject()

	// Bucket pixel indices by label in one pass.
	masks := make([][]int, labels.Count+1)
	for i, lab := range labels.Labels {
		if lab > 0 {
			masks[lab] = append(masks[lab], i)
		}
	}

	detections := make([]Detection, 0, labels.Count)
	for lab := 1; lab <= labels.Count; lab++ {
		mask := masks[lab]

		z := l.resolveDepth(mask, depthIdx, depthGrad)
		x, y, amp := peakInSlice(vol.Dark.Slice(z), mask, labels.W)

		detections = append(detections, Detection{
			Frame:     frameIdx,
			XPx:       float64(x),
			YPx:       float64(y),
			ZIdx:      z,
			Amplitude: amp,
			Pixels:    len(mask),
		})

		slice := vol.Dark.Slice(z)
		for _, idx := range mask {
			edof.Pix[idx] = slice.Pix[idx]
		}

		monitoring.Tracef("holo: frame %d object %d at (%d, %d, %d), %d px",
			frameIdx, lab, x, y, z, len(mask))
	}
	return detections, edof
}

// resolveDepth estimates an object's depth index from the per-pixel
// depth-of-maximum-gradient map restricted to its mask. Only pixels whose
// gradient exceeds the in-mask SharpQuantile contribute; the estimate is
// the gradient-weighted mean of their depth indices, rounded to the nearest
// slice. Equal-valued sharp sets still average cleanly because weights stay
// positive.
func (l *Localizer) resolveDepth(mask []int, depthIdx []int, depthGrad []float64) int {
	grads := make([]float64, len(mask))
	for i, idx := range mask {
		grads[i] = depthGrad[idx]
	}
	sorted := append([]float64(nil), grads...)
	sort.Float64s(sorted)
	cut := stat.Quantile(l.SharpQuantile, stat.Empirical, sorted, nil)

	var num, den float64
	for i, idx := range mask {
		if grads[i] > cut {
			num += float64(depthIdx[idx]) * grads[i]
			den += grads[i]
		}
	}
	if den == 0 {
		// Flat gradient across the mask: the quantile cut excluded every
		// pixel. Fall back to the unweighted full-mask average.
		for _, idx := range mask {
			num += float64(depthIdx[idx])
		}
		den = float64(len(mask))
	}
	return int(math.Round(num / den))
}

// peakInSlice finds the maximum-amplitude pixel of slice within mask.
// First occurrence in scan order wins ties.
func peakInSlice(slice *optics.Image, mask []int, w int) (x, y int, amp float64) {
	best := math.Inf(-1)
	bestIdx := mask[0]
	for _, idx := range mask {
		if slice.Pix[idx] > best {
			best = slice.Pix[idx]
			bestIdx = idx
		}
	}
	return bestIdx % w, bestIdx / w, best
}
