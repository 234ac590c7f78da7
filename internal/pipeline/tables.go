package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/optics"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/tracking"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/units"
)

// Tables holds the trajectory output in micrometres: one row per track,
// one column per frame, NaN where the track has no observation. Z is
// window-relative, not an absolute stage position.
type Tables struct {
	TrackIDs []int
	Frames   int
	X        [][]float64
	Y        [][]float64
	Z        [][]float64
}

// BuildTables converts the track table from the pixel/depth-index grid to
// physical units.
func BuildTables(tracks []*tracking.Track, frames int, geom *optics.Geometry) *Tables {
	t := &Tables{
		TrackIDs: make([]int, len(tracks)),
		Frames:   frames,
		X:        make([][]float64, len(tracks)),
		Y:        make([][]float64, len(tracks)),
		Z:        make([][]float64, len(tracks)),
	}
	for i, track := range tracks {
		t.TrackIDs[i] = track.ID
		xs := make([]float64, frames)
		ys := make([]float64, frames)
		zs := make([]float64, frames)
		for f := 0; f < frames; f++ {
			pos, ok := track.At(f)
			if !ok {
				xs[f] = math.NaN()
				ys[f] = math.NaN()
				zs[f] = math.NaN()
				continue
			}
			xs[f] = pos.X * geom.EffPixelUm
			ys[f] = pos.Y * geom.EffPixelUm
			zs[f] = units.DepthIndexToUm(int(pos.Z), geom.RangeStepUm, geom.RangeLowerUm)
		}
		t.X[i] = xs
		t.Y[i] = ys
		t.Z[i] = zs
	}
	return t
}

// WriteTSV writes the tables in long form, one row per track and frame:
// track id, frame index, then x/y/z in micrometres. Absent slots write NaN.
func (t *Tables) WriteTSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, "track\tframe\tx_um\ty_um\tz_um"); err != nil {
		return err
	}
	for i, id := range t.TrackIDs {
		for f := 0; f < t.Frames; f++ {
			_, err := fmt.Fprintf(bw, "%d\t%d\t%s\t%s\t%s\n",
				id, f, tsvFloat(t.X[i][f]), tsvFloat(t.Y[i][f]), tsvFloat(t.Z[i][f]))
			if err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func tsvFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
