package holo

import "github.com/kamil-janusz-kalinowski/DarkTrack/internal/optics"

// BoxSmooth applies a separable mean filter of the given radius. Window
// extents are clipped at the borders and normalized by the actual window
// size, so edges are not darkened. Radius 0 returns a copy.
func BoxSmooth(img *optics.Image, radius int) *optics.Image {
	if radius <= 0 {
		return img.Clone()
	}

	tmp := optics.NewImage(img.W, img.H)
	// Horizontal pass with a running window sum.
	for y := 0; y < img.H; y++ {
		row := img.Pix[y*img.W : (y+1)*img.W]
		out := tmp.Pix[y*img.W : (y+1)*img.W]
		var sum float64
		hi := radius
		if hi >= img.W {
			hi = img.W - 1
		}
		count := hi + 1
		for x := 0; x <= hi; x++ {
			sum += row[x]
		}
		for x := 0; x < img.W; x++ {
			out[x] = sum / float64(count)
			if add := x + radius + 1; add < img.W {
				sum += row[add]
				count++
			}
			if drop := x - radius; drop >= 0 {
				sum -= row[drop]
				count--
			}
		}
	}

	out := optics.NewImage(img.W, img.H)
	// Vertical pass.
	for x := 0; x < img.W; x++ {
		var sum float64
		hi := radius
		if hi >= img.H {
			hi = img.H - 1
		}
		count := hi + 1
		for y := 0; y <= hi; y++ {
			sum += tmp.Pix[y*img.W+x]
		}
		for y := 0; y < img.H; y++ {
			out.Pix[y*img.W+x] = sum / float64(count)
			if add := y + radius + 1; add < img.H {
				sum += tmp.Pix[add*img.W+x]
				count++
			}
			if drop := y - radius; drop >= 0 {
				sum -= tmp.Pix[drop*img.W+x]
				count--
			}
		}
	}
	return out
}

// GradientEnergy returns the squared gradient magnitude of img using central
// differences (one-sided at borders). It is the focus/sharpness proxy used
// by the depth sweep.
func GradientEnergy(img *optics.Image) *optics.Image {
	out := optics.NewImage(img.W, img.H)
	for y := 0; y < img.H; y++ {
		for x := 0; x < img.W; x++ {
			var dx, dy float64
			switch {
			case img.W == 1:
			case x == 0:
				dx = img.At(1, y) - img.At(0, y)
			case x == img.W-1:
				dx = img.At(x, y) - img.At(x-1, y)
			default:
				dx = (img.At(x+1, y) - img.At(x-1, y)) / 2
			}
			switch {
			case img.H == 1:
			case y == 0:
				dy = img.At(x, 1) - img.At(x, 0)
			case y == img.H-1:
				dy = img.At(x, y) - img.At(x, y-1)
			default:
				dy = (img.At(x, y+1) - img.At(x, y-1)) / 2
			}
			out.Set(x, y, dx*dx+dy*dy)
		}
	}
	return out
}
