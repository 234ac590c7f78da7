package holo

import (
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/monitoring"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/optics"
)

// Segmenter binarizes a frame's depth-projected score image and labels
// candidate objects. Thresholding averages a global histogram (Otsu)
// threshold with an adaptive local-mean threshold, which covers both uneven
// illumination and global contrast drift.
type Segmenter struct {
	MinObjectPixels   int // components smaller than this are noise
	ScoreSmoothRadius int // smoothing for the gradient projection
	LocalWindowRadius int // window radius of the adaptive estimator
}

// ScoreImage builds the 2D detection score for a frame: the depth maximum
// of the dark volume weighted by the smoothed depth maximum of the gradient
// volume, normalized to [0, 1].
func (s *Segmenter) ScoreImage(vol *FrameVolumes) *optics.Image {
	darkMax := vol.Dark.MaxProject()
	gradMax := BoxSmooth(vol.Grad.MaxProject(), s.ScoreSmoothRadius)

	score := optics.NewImage(darkMax.W, darkMax.H)
	var max float64
	for i := range score.Pix {
		v := darkMax.Pix[i] * gradMax.Pix[i]
		score.Pix[i] = v
		if v > max {
			max = v
		}
	}
	if max > 0 {
		for i := range score.Pix {
			score.Pix[i] /= max
		}
	}
	return score
}

// Segment labels the candidate objects of one frame. A frame with no
// surviving components is degenerate, not an error: the label count is 0.
func (s *Segmenter) Segment(vol *FrameVolumes) *LabelMap {
	score := s.ScoreImage(vol)
	mask := s.binarize(score)
	labels := labelComponents(mask, score.W, score.H, s.MinObjectPixels)
	monitoring.Diagf("holo: segmented %d object(s)", labels.Count)
	return labels
}

// binarize thresholds the normalized score with the average of the global
// Otsu estimate and the per-pixel local mean estimate.
func (s *Segmenter) binarize(score *optics.Image) []bool {
	global := otsuThreshold(score)
	local := BoxSmooth(score, s.LocalWindowRadius)

	mask := make([]bool, len(score.Pix))
	for i, v := range score.Pix {
		t := (global + local.Pix[i]) / 2
		mask[i] = v > t
	}
	return mask
}

// otsuBins is the histogram resolution for the global threshold estimate.
const otsuBins = 256

// otsuThreshold computes the classic between-class-variance-maximizing
// threshold of a [0, 1] image over a fixed histogram.
func otsuThreshold(img *optics.Image) float64 {
	var hist [otsuBins]int
	for _, v := range img.Pix {
		bin := int(v * (otsuBins - 1))
		if bin < 0 {
			bin = 0
		}
		if bin >= otsuBins {
			bin = otsuBins - 1
		}
		hist[bin]++
	}

	total := len(img.Pix)
	var sumAll float64
	for b, n := range hist {
		sumAll += float64(b) * float64(n)
	}

	var sumBack, weightBack float64
	var bestVar float64
	bestBin := 0
	for b := 0; b < otsuBins; b++ {
		weightBack += float64(hist[b])
		if weightBack == 0 {
			continue
		}
		weightFore := float64(total) - weightBack
		if weightFore == 0 {
			break
		}
		sumBack += float64(b) * float64(hist[b])
		meanBack := sumBack / weightBack
		meanFore := (sumAll - sumBack) / weightFore
		diff := meanBack - meanFore
		between := weightBack * weightFore * diff * diff
		if between > bestVar {
			bestVar = between
			bestBin = b
		}
	}
	return float64(bestBin) / (otsuBins - 1)
}

// labelComponents labels 8-connected true regions of mask, discarding
// components below minPixels. Surviving labels are renumbered 1..Count in
// scan order.
func labelComponents(mask []bool, w, h, minPixels int) *LabelMap {
	out := &LabelMap{W: w, H: h, Labels: make([]int, w*h)}
	visited := make([]bool, w*h)
	queue := make([]int, 0, 256)

	for start := range mask {
		if !mask[start] || visited[start] {
			continue
		}

		// Flood-fill one component.
		queue = queue[:0]
		queue = append(queue, start)
		visited[start] = true
		component := []int{start}
		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := idx%w, idx/w
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					n := ny*w + nx
					if mask[n] && !visited[n] {
						visited[n] = true
						queue = append(queue, n)
						component = append(component, n)
					}
				}
			}
		}

		if len(component) < minPixels {
			continue
		}
		out.Count++
		for _, idx := range component {
			out.Labels[idx] = out.Count
		}
	}
	return out
}
