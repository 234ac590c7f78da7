package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{LookbackFrames: 20, VelocityWindow: 5, GatingMultiplier: 10}
}

func pt(x, y, z float64) Point { return Point{X: x, Y: y, Z: z} }

func TestStaticObjectsKeepTheirTracks(t *testing.T) {
	t.Parallel()

	tr := NewTracker(testConfig())
	dets := []Point{pt(2, 3, 1), pt(10, 10, 4), pt(20, 5, 2)}
	for frame := 0; frame < 5; frame++ {
		tr.Observe(dets)
	}

	tracks := tr.Tracks()
	require.Len(t, tracks, 3)
	for i, track := range tracks {
		assert.Equal(t, i+1, track.ID)
		assert.Equal(t, 0, track.Birth)
		for frame := 0; frame < 5; frame++ {
			pos, ok := track.At(frame)
			require.True(t, ok, "track %d frame %d", track.ID, frame)
			assert.Equal(t, dets[i], pos)
		}
	}
}

func TestNewObjectBirthsNewTrack(t *testing.T) {
	t.Parallel()

	tr := NewTracker(testConfig())
	tr.Observe([]Point{pt(0, 0, 0)})
	tr.Observe([]Point{pt(1, 0, 0)})
	tr.Observe([]Point{pt(2, 0, 0), pt(500, 500, 0)})

	tracks := tr.Tracks()
	require.Len(t, tracks, 2)

	fresh := tracks[1]
	assert.Equal(t, 2, fresh.Birth)
	_, ok := fresh.At(0)
	assert.False(t, ok)
	_, ok = fresh.At(1)
	assert.False(t, ok)
	pos, ok := fresh.At(2)
	require.True(t, ok)
	assert.Equal(t, pt(500, 500, 0), pos)
}

func TestAbsenceThenReacquisition(t *testing.T) {
	t.Parallel()

	tr := NewTracker(testConfig())
	tr.Observe([]Point{pt(0, 0, 0), pt(100, 0, 0)})
	tr.Observe([]Point{pt(1, 0, 0), pt(101, 0, 0)})
	// First object disappears for two frames.
	tr.Observe([]Point{pt(102, 0, 0)})
	tr.Observe([]Point{pt(103, 0, 0)})
	tr.Observe([]Point{pt(2, 0, 0), pt(104, 0, 0)})

	tracks := tr.Tracks()
	require.Len(t, tracks, 2)

	first := tracks[0]
	pos, ok := first.At(4)
	require.True(t, ok, "track must reacquire inside the lookback window")
	assert.Equal(t, pt(2, 0, 0), pos)
	_, ok = first.At(2)
	assert.False(t, ok)
	_, ok = first.At(3)
	assert.False(t, ok)
	// Full history stays addressable through the gap.
	pos, ok = first.At(0)
	require.True(t, ok)
	assert.Equal(t, pt(0, 0, 0), pos)
	assert.Equal(t, 5, first.Len())
}

func TestLookbackExpiryBirthsInsteadOfMatching(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.LookbackFrames = 2
	tr := NewTracker(cfg)

	tr.Observe([]Point{pt(0, 0, 0), pt(50, 0, 0)})
	tr.Observe([]Point{pt(1, 0, 0), pt(51, 0, 0)})
	// First object gone for three frames, past the lookback bound.
	tr.Observe([]Point{pt(52, 0, 0)})
	tr.Observe([]Point{pt(53, 0, 0)})
	tr.Observe([]Point{pt(54, 0, 0)})
	tr.Observe([]Point{pt(1, 0, 0), pt(55, 0, 0)})

	tracks := tr.Tracks()
	require.Len(t, tracks, 3, "an expired track is not matched, a new one is born")
	assert.Equal(t, 5, tracks[2].Birth)
	// The stale track still exists with its history intact.
	_, ok := tracks[0].At(5)
	assert.False(t, ok)
	pos, ok := tracks[0].At(1)
	require.True(t, ok)
	assert.Equal(t, pt(1, 0, 0), pos)
}

func TestCrossingObjectsKeepIdentity(t *testing.T) {
	t.Parallel()

	tr := NewTracker(testConfig())
	// Object A moves +2/frame, object B moves -2/frame on the same line;
	// they cross between frames 2 and 3.
	for frame := 0; frame < 5; frame++ {
		a := pt(float64(2*frame), 0, 0)
		b := pt(float64(10-2*frame), 0, 0)
		tr.Observe([]Point{a, b})
	}

	tracks := tr.Tracks()
	require.Len(t, tracks, 2, "crossing must not spawn extra tracks")

	endA, ok := tracks[0].At(4)
	require.True(t, ok)
	endB, ok := tracks[1].At(4)
	require.True(t, ok)
	assert.Equal(t, pt(8, 0, 0), endA, "track A keeps moving right")
	assert.Equal(t, pt(2, 0, 0), endB, "track B keeps moving left")
}

func TestContentionKeepsConsistentDetection(t *testing.T) {
	t.Parallel()

	tr := NewTracker(testConfig())
	tr.Observe([]Point{pt(0, 0, 0)})
	tr.Observe([]Point{pt(2, 0, 0)})
	// Two detections close to the single track: the one matching its
	// velocity wins, the other is left unassigned.
	tr.Observe([]Point{pt(4.5, 0, 0), pt(4, 0, 0)})

	tracks := tr.Tracks()
	require.Len(t, tracks, 1, "losing contender must not seed a track")
	pos, ok := tracks[0].At(2)
	require.True(t, ok)
	assert.Equal(t, pt(4, 0, 0), pos)
}

func TestPresentTracksNeverExceedDetections(t *testing.T) {
	t.Parallel()

	tr := NewTracker(testConfig())
	frames := [][]Point{
		{pt(0, 0, 0), pt(10, 0, 0)},
		{pt(2, 0, 0), pt(8, 0, 0)},
		{pt(4, 0, 0), pt(6, 0, 0), pt(30, 30, 0)},
		{pt(6, 0, 0)},
		{pt(8, 0, 0), pt(2, 0, 0), pt(30, 32, 0)},
	}
	for frame, dets := range frames {
		tr.Observe(dets)

		present := 0
		for _, track := range tr.Tracks() {
			if _, ok := track.At(frame); ok {
				present++
			}
		}
		assert.LessOrEqual(t, present, len(dets), "frame %d", frame)
	}
}

func TestGatingDeferredAcrossEmptyFrames(t *testing.T) {
	t.Parallel()

	tr := NewTracker(testConfig())
	tr.Observe([]Point{pt(0, 0, 0)})
	_, ok := tr.GatingRadius()
	assert.False(t, ok)

	// An empty frame breaks the calibration pair.
	tr.Observe(nil)
	_, ok = tr.GatingRadius()
	assert.False(t, ok)

	tr.Observe([]Point{pt(1, 0, 0)})
	_, ok = tr.GatingRadius()
	assert.False(t, ok, "needs two consecutive populated frames")

	tr.Observe([]Point{pt(2, 0, 0)})
	radius, ok := tr.GatingRadius()
	require.True(t, ok)
	assert.InDelta(t, 10.0, radius, 1e-12)
}

func TestGatingRadiusFromMedianDisplacement(t *testing.T) {
	t.Parallel()

	tr := NewTracker(testConfig())
	tr.Observe([]Point{pt(0, 0, 0), pt(100, 0, 0), pt(200, 0, 0)})
	tr.Observe([]Point{pt(1, 0, 0), pt(103, 0, 0), pt(205, 0, 0)})

	// Nearest-neighbor displacements are 1, 3 and 5; the median is 3.
	radius, ok := tr.GatingRadius()
	require.True(t, ok)
	assert.InDelta(t, 30.0, radius, 1e-12)
}

func TestVelocityExcludesZeroTransitions(t *testing.T) {
	t.Parallel()

	track := &Track{ID: 1}
	positions := []Point{pt(0, 0, 0), pt(0, 0, 0), pt(0, 0, 0), pt(2, 0, 0)}
	for _, p := range positions {
		track.extend()
		track.record(p)
	}

	// Three transitions, two of them exactly zero: only the jump counts.
	vel := track.velocity(3, 5)
	assert.Equal(t, pt(2, 0, 0), vel)
}

func TestVelocitySpansAbsentGaps(t *testing.T) {
	t.Parallel()

	track := &Track{ID: 1}
	track.extend()
	track.record(pt(0, 0, 0))
	track.extend() // absent
	track.extend()
	track.record(pt(6, 0, 0))

	vel := track.velocity(2, 5)
	assert.Equal(t, pt(6, 0, 0), vel)
}

func TestVelocityWindowBoundsTransitions(t *testing.T) {
	t.Parallel()

	track := &Track{ID: 1}
	// Seven observations with steps 1,1,1,1,1,10 (oldest to newest).
	xs := []float64{0, 1, 2, 3, 4, 5, 15}
	for _, x := range xs {
		track.extend()
		track.record(pt(x, 0, 0))
	}

	// Window of 5 sees steps 10,1,1,1,1 and averages to 2.8; the oldest
	// transition falls outside the window.
	vel := track.velocity(6, 5)
	assert.InDelta(t, 2.8, vel.X, 1e-12)
}

func TestTrackAtOutOfRange(t *testing.T) {
	t.Parallel()

	track := &Track{ID: 1}
	track.extend()
	track.record(pt(1, 2, 3))

	_, ok := track.At(-1)
	assert.False(t, ok)
	_, ok = track.At(5)
	assert.False(t, ok)
}
