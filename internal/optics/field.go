package optics

import "math"

// Image is a 2D real-valued raster stored row-major: Pix[y*W+x].
type Image struct {
	W, H int
	Pix  []float64
}

// NewImage allocates a zeroed W×H image.
func NewImage(w, h int) *Image {
	return &Image{W: w, H: h, Pix: make([]float64, w*h)}
}

// At returns the pixel value at (x, y).
func (im *Image) At(x, y int) float64 { return im.Pix[y*im.W+x] }

// Set stores v at (x, y).
func (im *Image) Set(x, y int, v float64) { im.Pix[y*im.W+x] = v }

// Clone returns a deep copy of the image.
func (im *Image) Clone() *Image {
	out := NewImage(im.W, im.H)
	copy(out.Pix, im.Pix)
	return out
}

// Field is a 2D complex-valued raster stored row-major: Data[y*W+x].
type Field struct {
	W, H int
	Data []complex128
}

// NewField allocates a zeroed W×H field.
func NewField(w, h int) *Field {
	return &Field{W: w, H: h, Data: make([]complex128, w*h)}
}

// Clone returns a deep copy of the field.
func (f *Field) Clone() *Field {
	out := NewField(f.W, f.H)
	copy(out.Data, f.Data)
	return out
}

// PadImage embeds img into a larger zeroed image with a uniform border.
// Padding before propagation suppresses wrap-around edge artifacts from the
// cyclic transform.
func PadImage(img *Image, border int) *Image {
	if border <= 0 {
		return img.Clone()
	}
	out := NewImage(img.W+2*border, img.H+2*border)
	for y := 0; y < img.H; y++ {
		copy(out.Pix[(y+border)*out.W+border:(y+border)*out.W+border+img.W],
			img.Pix[y*img.W:(y+1)*img.W])
	}
	return out
}

// FieldFromImage lifts a real image into a complex field.
func FieldFromImage(img *Image) *Field {
	f := NewField(img.W, img.H)
	for i, v := range img.Pix {
		f.Data[i] = complex(v, 0)
	}
	return f
}

// CropMagnitude returns the magnitude of the inner w×h region of f, removing
// a uniform border. border must leave at least a 1×1 interior.
func CropMagnitude(f *Field, border, w, h int) *Image {
	out := NewImage(w, h)
	for y := 0; y < h; y++ {
		src := (y + border) * f.W
		for x := 0; x < w; x++ {
			c := f.Data[src+border+x]
			re, im := real(c), imag(c)
			out.Pix[y*w+x] = math.Sqrt(re*re + im*im)
		}
	}
	return out
}
