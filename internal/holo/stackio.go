package holo

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/optics"
)

// Stack files are a plain little-endian container: a 4-byte magic, the
// stack dimensions, then frame-major float64 pixel data.
const stackMagic = "DTRK"

// WriteStack serializes a stack.
func WriteStack(w io.Writer, stack *Stack) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(stackMagic); err != nil {
		return err
	}
	for _, dim := range []uint32{uint32(stack.Width), uint32(stack.Height), uint32(stack.Len())} {
		if err := binary.Write(bw, binary.LittleEndian, dim); err != nil {
			return err
		}
	}
	for _, frame := range stack.Frames {
		if err := binary.Write(bw, binary.LittleEndian, frame.Pix); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadStack deserializes a stack written by WriteStack.
func ReadStack(r io.Reader) (*Stack, error) {
	br := bufio.NewReader(r)
	magic := make([]byte, len(stackMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("holo: read stack header: %w", err)
	}
	if string(magic) != stackMagic {
		return nil, fmt.Errorf("holo: not a hologram stack file (magic %q)", magic)
	}

	var w, h, n uint32
	for _, dim := range []*uint32{&w, &h, &n} {
		if err := binary.Read(br, binary.LittleEndian, dim); err != nil {
			return nil, fmt.Errorf("holo: read stack dimensions: %w", err)
		}
	}
	if w == 0 || h == 0 || n == 0 {
		return nil, fmt.Errorf("holo: degenerate stack dimensions %dx%dx%d", w, h, n)
	}

	frames := make([]*optics.Image, n)
	for i := range frames {
		img := optics.NewImage(int(w), int(h))
		if err := binary.Read(br, binary.LittleEndian, img.Pix); err != nil {
			return nil, fmt.Errorf("holo: read frame %d: %w", i, err)
		}
		frames[i] = img
	}
	return NewStack(frames), nil
}

// LoadStackFile reads a stack from disk.
func LoadStackFile(path string) (*Stack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadStack(f)
}

// SaveStackFile writes a stack to disk.
func SaveStackFile(path string, stack *Stack) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteStack(f, stack); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
