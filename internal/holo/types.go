package holo

import "github.com/kamil-janusz-kalinowski/DarkTrack/internal/optics"

// Stack is a fixed-dimension hologram sequence: Frames[i] is the 2D real
// intensity image of frame i. All frames share Width×Height.
type Stack struct {
	Width  int
	Height int
	Frames []*optics.Image
}

// NewStack wraps pre-loaded frames. Frames must be non-empty and uniform;
// loaders are expected to have enforced that already.
func NewStack(frames []*optics.Image) *Stack {
	return &Stack{Width: frames[0].W, Height: frames[0].H, Frames: frames}
}

// Len returns the number of frames.
func (s *Stack) Len() int { return len(s.Frames) }

// Volume is a frame-scoped 3D real array: Height×Width×Sz, depth-major
// access through Slice. Slices index the sampled propagation distances.
type Volume struct {
	W, H, Sz int
	slices   []*optics.Image
}

// NewVolume allocates an empty volume with Sz nil slices; workers fill
// whole slices via SetSlice, so there are no partial-write races.
func NewVolume(w, h, sz int) *Volume {
	return &Volume{W: w, H: h, Sz: sz, slices: make([]*optics.Image, sz)}
}

// Slice returns the 2D image at depth index z.
func (v *Volume) Slice(z int) *optics.Image { return v.slices[z] }

// SetSlice stores a completed 2D image at depth index z.
func (v *Volume) SetSlice(z int, img *optics.Image) { v.slices[z] = img }

// At returns the value at (x, y, z).
func (v *Volume) At(x, y, z int) float64 { return v.slices[z].At(x, y) }

// MaxProject returns the per-pixel maximum across depth.
func (v *Volume) MaxProject() *optics.Image {
	out := optics.NewImage(v.W, v.H)
	copy(out.Pix, v.slices[0].Pix)
	for z := 1; z < v.Sz; z++ {
		for i, val := range v.slices[z].Pix {
			if val > out.Pix[i] {
				out.Pix[i] = val
			}
		}
	}
	return out
}

// ArgMaxProject returns, per pixel, the depth index holding the maximum
// value and that maximum. First occurrence wins on ties.
func (v *Volume) ArgMaxProject() (idx []int, max []float64) {
	n := v.W * v.H
	idx = make([]int, n)
	max = make([]float64, n)
	copy(max, v.slices[0].Pix)
	for z := 1; z < v.Sz; z++ {
		for i, val := range v.slices[z].Pix {
			if val > max[i] {
				max[i] = val
				idx[i] = z
			}
		}
	}
	return idx, max
}

// LabelMap is a per-frame connected-component labeling: background 0,
// object labels 1..Count.
type LabelMap struct {
	W, H   int
	Labels []int
	Count  int
}

// Detection is one localized object in one frame. Pixel coordinates are in
// the unpadded frame grid; Z is a depth-sample index. Detections are
// immutable once produced.
type Detection struct {
	Frame int
	XPx   float64
	YPx   float64
	ZIdx  int

	// Amplitude is the dark-field amplitude at the detection point, kept
	// for diagnostics and persistence.
	Amplitude float64
	// Pixels is the object's mask size.
	Pixels int
}

// FrameResult bundles everything the reconstruction pipeline produces for
// one frame. A frame with zero detections is degenerate but valid.
type FrameResult struct {
	Frame      int
	Detections []Detection
	EDOF       *optics.Image // zero outside detected object footprints
	CR         *optics.Image // mid-range classical reconstruction
}
