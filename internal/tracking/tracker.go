package tracking

import (
	"math"
	"sort"

	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/config"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/monitoring"
)

// Config holds the tracker's association parameters.
type Config struct {
	// LookbackFrames bounds how far back a track's last observation may
	// lie for the track to still be matched against new detections.
	LookbackFrames int
	// VelocityWindow is how many preceding transitions feed the velocity
	// estimate used for disambiguation.
	VelocityWindow int
	// GatingMultiplier scales the median nearest-neighbor displacement
	// of the first frame pair into the association radius.
	GatingMultiplier float64
}

// ConfigFromTuning extracts the tracker parameters from a tuning config.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		LookbackFrames:   cfg.GetLookbackFrames(),
		VelocityWindow:   cfg.GetVelocityWindow(),
		GatingMultiplier: cfg.GetGatingMultiplier(),
	}
}

// Tracker greedily associates per-frame detections into tracks. It is
// sequential by construction: each Observe call depends on the state left
// by all previous calls, and the caller feeds frames in order. The tracker
// itself is not safe for concurrent use.
type Tracker struct {
	cfg Config

	tracks []*Track
	frames int

	// prev keeps the previous frame's detections until the gating radius
	// has been derived from the first observed frame pair.
	prev []Point

	gatingRadius float64
	gatingSet    bool
}

// NewTracker returns an empty tracker.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// Tracks returns the live track table in birth order. The slice is shared;
// callers must not mutate it.
func (tr *Tracker) Tracks() []*Track { return tr.tracks }

// Frames returns the number of frames observed so far.
func (tr *Tracker) Frames() int { return tr.frames }

// GatingRadius returns the derived association radius, if set.
func (tr *Tracker) GatingRadius() (float64, bool) {
	return tr.gatingRadius, tr.gatingSet
}

// Observe ingests the detections of the next frame and updates the track
// table. The first frame seeds one track per detection; later frames run
// gated greedy association. Tracks receiving no detection get an absent
// slot, never deletion.
func (tr *Tracker) Observe(dets []Point) {
	frame := tr.frames
	tr.frames++
	for _, t := range tr.tracks {
		t.extend()
	}

	if frame == 0 {
		for _, d := range dets {
			tr.birth(frame, d)
		}
		tr.prev = append([]Point(nil), dets...)
		monitoring.Diagf("tracking: frame 0 seeded %d track(s)", len(dets))
		return
	}

	if !tr.gatingSet {
		if len(tr.prev) > 0 && len(dets) > 0 {
			tr.gatingRadius = tr.cfg.GatingMultiplier * medianNearestXY(tr.prev, dets)
			tr.gatingSet = true
			tr.prev = nil
			monitoring.Diagf("tracking: gating radius %.3f from frame %d/%d pair",
				tr.gatingRadius, frame-1, frame)
		} else {
			// No frame pair to calibrate against yet: every detection
			// starts its own track and the next populated pair decides.
			for _, d := range dets {
				tr.birth(frame, d)
			}
			tr.prev = append([]Point(nil), dets...)
			return
		}
	}

	tr.associate(frame, dets)
}

// birth creates a track observed for the first time at frame.
func (tr *Tracker) birth(frame int, pos Point) *Track {
	t := &Track{
		ID:      len(tr.tracks) + 1,
		Birth:   frame,
		history: make([]slot, frame+1),
	}
	t.history[frame] = slot{pos: pos, observed: true}
	tr.tracks = append(tr.tracks, t)
	return t
}

// trackView caches per-frame association state for one track.
type trackView struct {
	last   Point
	vel    Point
	active bool
}

const (
	assignBirth   = -1
	assignDropped = -2
)

// associate runs the per-frame matching for frame >= 1.
func (tr *Tracker) associate(frame int, dets []Point) {
	views := make([]trackView, len(tr.tracks))
	for i, t := range tr.tracks {
		last, lastFrame, ok := t.lastObserved(frame - 1)
		if !ok || frame-lastFrame > tr.cfg.LookbackFrames {
			continue
		}
		views[i] = trackView{
			last:   last,
			vel:    t.velocity(frame-1, tr.cfg.VelocityWindow),
			active: true,
		}
	}

	secondFrame := frame == 1
	assigned := make([]int, len(dets))
	var cands []int
	for i, d := range dets {
		cands = cands[:0]
		for ti := range views {
			if views[ti].active && hypotXY(d, views[ti].last) <= tr.gatingRadius {
				cands = append(cands, ti)
			}
		}

		switch {
		case len(cands) == 0:
			assigned[i] = assignBirth
		case len(cands) == 1:
			assigned[i] = cands[0]
		case secondFrame:
			// No velocity history exists yet: nearest track wins.
			assigned[i] = nearestByXY(d, views, cands)
		default:
			assigned[i] = bestByVelocity(d, views, cands)
		}
	}

	// Resolve contention: a track claimed by several detections keeps the
	// one most consistent with its velocity. The losing detections stay
	// unassigned for this frame; they do not fall through to other tracks
	// or seed new ones.
	contending := make([][]int, len(tr.tracks))
	for i, a := range assigned {
		if a >= 0 {
			contending[a] = append(contending[a], i)
		}
	}
	for ti, detIdxs := range contending {
		if len(detIdxs) < 2 {
			continue
		}
		winner := detIdxs[0]
		best := velocityScore(dets[winner], views[ti])
		for _, di := range detIdxs[1:] {
			if s := velocityScore(dets[di], views[ti]); s < best {
				best = s
				winner = di
			}
		}
		for _, di := range detIdxs {
			if di != winner {
				assigned[di] = assignDropped
			}
		}
		monitoring.Diagf("tracking: frame %d track %d contested by %d detection(s)",
			frame, tr.tracks[ti].ID, len(detIdxs))
	}

	births := 0
	for i, a := range assigned {
		switch a {
		case assignDropped:
		case assignBirth:
			tr.birth(frame, dets[i])
			births++
		default:
			tr.tracks[a].record(dets[i])
		}
	}
	if births > 0 {
		monitoring.Diagf("tracking: frame %d birthed %d track(s), %d total",
			frame, births, len(tr.tracks))
	}
}

// nearestByXY picks the candidate with the smallest XY distance to d.
// First minimum wins.
func nearestByXY(d Point, views []trackView, cands []int) int {
	winner := cands[0]
	best := hypotXY(d, views[winner].last)
	for _, ti := range cands[1:] {
		if dist := hypotXY(d, views[ti].last); dist < best {
			best = dist
			winner = ti
		}
	}
	return winner
}

// bestByVelocity picks the candidate whose extrapolated displacement is
// closest to the actual 3D displacement. First minimum wins.
func bestByVelocity(d Point, views []trackView, cands []int) int {
	winner := cands[0]
	best := velocityScore(d, views[winner])
	for _, ti := range cands[1:] {
		if s := velocityScore(d, views[ti]); s < best {
			best = s
			winner = ti
		}
	}
	return winner
}

// velocityScore is the Euclidean distance between the detection's actual
// 3D displacement from the track's last position and the track's predicted
// displacement.
func velocityScore(d Point, v trackView) float64 {
	diff := d.sub(v.last).sub(v.vel)
	return math.Sqrt(diff.X*diff.X + diff.Y*diff.Y + diff.Z*diff.Z)
}

func hypotXY(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// medianNearestXY computes the median over cur detections of each one's
// XY distance to its nearest prev detection.
func medianNearestXY(prev, cur []Point) float64 {
	nearest := make([]float64, len(cur))
	for i, c := range cur {
		best := math.Inf(1)
		for _, p := range prev {
			if d := hypotXY(c, p); d < best {
				best = d
			}
		}
		nearest[i] = best
	}
	sort.Float64s(nearest)
	n := len(nearest)
	if n%2 == 1 {
		return nearest[n/2]
	}
	return (nearest[n/2-1] + nearest[n/2]) / 2
}
