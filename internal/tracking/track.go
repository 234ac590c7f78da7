package tracking

// Point is a 3D position in the caller's coordinate grid.
type Point struct {
	X float64
	Y float64
	Z float64
}

// sub returns p - q per axis.
func (p Point) sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// isZero reports whether the point is exactly zero on all axes.
func (p Point) isZero() bool {
	return p.X == 0 && p.Y == 0 && p.Z == 0
}

// slot is one frame of a track's history.
type slot struct {
	pos      Point
	observed bool
}

// Track is one object's append-only per-frame history. The history always
// spans every frame the tracker has seen: frames before the birth frame and
// unobserved frames hold absent slots. Tracks are created by the tracker
// and never removed.
type Track struct {
	// ID is the stable 1-based track identifier, assigned in birth order.
	ID int
	// Birth is the frame index of the track's first observation.
	Birth int

	history []slot
}

// Len returns the number of frames covered by the history.
func (t *Track) Len() int { return len(t.history) }

// At returns the position at the given frame and whether the track was
// observed there.
func (t *Track) At(frame int) (Point, bool) {
	if frame < 0 || frame >= len(t.history) {
		return Point{}, false
	}
	s := t.history[frame]
	return s.pos, s.observed
}

// extend appends one absent slot, growing the history to the next frame.
func (t *Track) extend() {
	t.history = append(t.history, slot{})
}

// record marks the current (last) frame observed at pos.
func (t *Track) record(pos Point) {
	t.history[len(t.history)-1] = slot{pos: pos, observed: true}
}

// lastObserved walks back from frame upTo (inclusive) and returns the most
// recent observation and its frame index.
func (t *Track) lastObserved(upTo int) (Point, int, bool) {
	if upTo >= len(t.history) {
		upTo = len(t.history) - 1
	}
	for f := upTo; f >= 0; f-- {
		if t.history[f].observed {
			return t.history[f].pos, f, true
		}
	}
	return Point{}, 0, false
}

// velocity averages the per-axis displacement over up to window preceding
// observed-to-observed transitions, walking back from frame upTo.
// Transitions spanning absent gaps count as one step. Exactly-zero
// transitions are excluded from the average, so a strictly stationary
// track reports zero velocity only because no transition qualifies.
func (t *Track) velocity(upTo, window int) Point {
	if upTo >= len(t.history) {
		upTo = len(t.history) - 1
	}

	var sum Point
	var seen, used int
	have := false
	var newer Point
	for f := upTo; f >= 0 && seen < window; f-- {
		if !t.history[f].observed {
			continue
		}
		if !have {
			newer = t.history[f].pos
			have = true
			continue
		}
		d := newer.sub(t.history[f].pos)
		newer = t.history[f].pos
		seen++
		if d.isZero() {
			continue
		}
		sum.X += d.X
		sum.Y += d.Y
		sum.Z += d.Z
		used++
	}
	if used == 0 {
		return Point{}
	}
	return Point{X: sum.X / float64(used), Y: sum.Y / float64(used), Z: sum.Z / float64(used)}
}
