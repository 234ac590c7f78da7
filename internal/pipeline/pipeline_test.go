package pipeline

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/config"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/holo"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/optics"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/sim"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/tracking"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func testTuning() *config.TuningConfig {
	cfg := config.MustLoadDefaultConfig()
	cfg.RangeLowerUm = floatPtr(-30)
	cfg.RangeUpperUm = floatPtr(30)
	cfg.RangeStepUm = floatPtr(30)
	cfg.PadBorderPx = intPtr(8)
	cfg.MinObjectPixels = intPtr(2)
	return cfg
}

// simulatedStack renders a short sequence with one scatterer drifting in x.
func simulatedStack(t *testing.T, cfg *config.TuningConfig, frames int) *holo.Stack {
	t.Helper()
	geom := optics.NewGeometry(cfg, 32, 32)
	s := sim.NewSimulator(geom, optics.SelectBackend(config.AccelOff))
	imgs, err := s.Sequence(
		[]sim.Scatterer{{XPx: 8, YPx: 16, ZIdx: 1, Amplitude: 1}},
		[]sim.ScattererStep{{DXPx: 1}},
		frames,
	)
	require.NoError(t, err)
	return holo.NewStack(imgs)
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	cfg := testTuning()
	stack := simulatedStack(t, cfg, 12)

	result, err := Run(context.Background(), cfg, stack, nil)
	require.NoError(t, err)

	require.Len(t, result.Frames, 12)
	detected := 0
	for f, fr := range result.Frames {
		assert.Equal(t, f, fr.Frame)
		require.NotNil(t, fr.EDOF, "frame %d", f)
		require.NotNil(t, fr.CR, "frame %d", f)
		assert.Equal(t, 32, fr.EDOF.W)
		assert.Equal(t, 32, fr.CR.W)
		if len(fr.Detections) > 0 {
			detected++
		}
	}
	assert.Greater(t, detected, 0, "a bright moving scatterer must be detected")
	assert.NotEmpty(t, result.Tracks)

	tables := BuildTables(result.Tracks, len(result.Frames), result.Geometry)
	require.Len(t, tables.X, len(result.Tracks))
	for i := range tables.X {
		assert.Len(t, tables.X[i], 12)
	}
}

func TestRunHonorsFrameLimit(t *testing.T) {
	t.Parallel()

	cfg := testTuning()
	cfg.MaxFrames = intPtr(3)
	stack := simulatedStack(t, cfg, 6)

	result, err := Run(context.Background(), cfg, stack, nil)
	require.NoError(t, err)
	assert.Len(t, result.Frames, 3)
}

func TestRunCanceledContext(t *testing.T) {
	t.Parallel()

	cfg := testTuning()
	stack := simulatedStack(t, cfg, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, cfg, stack, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunRejectsBadExplicitBackground(t *testing.T) {
	t.Parallel()

	cfg := testTuning()
	cfg.BackgroundMode = strPtr(config.BackgroundExplicit)
	stack := simulatedStack(t, cfg, 4)

	var cfgErr *config.ConfigurationError
	_, err := Run(context.Background(), cfg, stack, []*optics.Image{optics.NewImage(8, 8)})
	require.Error(t, err)
	assert.ErrorAs(t, err, &cfgErr)
}

func strPtr(v string) *string { return &v }

func TestBuildTablesConvertsUnits(t *testing.T) {
	t.Parallel()

	cfg := testTuning()
	geom := optics.NewGeometry(cfg, 32, 32)

	tr := tracking.NewTracker(tracking.ConfigFromTuning(cfg))
	tr.Observe([]tracking.Point{{X: 2, Y: 4, Z: 1}})
	tr.Observe([]tracking.Point{{X: 3, Y: 4, Z: 1}})
	tr.Observe(nil) // absent frame

	tables := BuildTables(tr.Tracks(), 3, geom)
	require.Len(t, tables.TrackIDs, 1)
	assert.Equal(t, 1, tables.TrackIDs[0])

	eff := geom.EffPixelUm
	wantX := []float64{2 * eff, 3 * eff, math.NaN()}
	wantY := []float64{4 * eff, 4 * eff, math.NaN()}
	// z index 1 with step 30 from lower bound -30 sits at 0 um.
	wantZ := []float64{0, 0, math.NaN()}
	assert.Empty(t, cmp.Diff(wantX, tables.X[0], cmpopts.EquateNaNs(), cmpopts.EquateApprox(0, 1e-12)))
	assert.Empty(t, cmp.Diff(wantY, tables.Y[0], cmpopts.EquateNaNs(), cmpopts.EquateApprox(0, 1e-12)))
	assert.Empty(t, cmp.Diff(wantZ, tables.Z[0], cmpopts.EquateNaNs(), cmpopts.EquateApprox(0, 1e-12)))
}

func TestWriteTSV(t *testing.T) {
	t.Parallel()

	cfg := testTuning()
	geom := optics.NewGeometry(cfg, 32, 32)

	tr := tracking.NewTracker(tracking.ConfigFromTuning(cfg))
	tr.Observe([]tracking.Point{{X: 2, Y: 4, Z: 1}})
	tr.Observe(nil)

	tables := BuildTables(tr.Tracks(), 2, geom)

	var sb strings.Builder
	require.NoError(t, tables.WriteTSV(&sb))

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "track\tframe\tx_um\ty_um\tz_um", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1\t0\t"))
	assert.Contains(t, lines[2], "NaN")
}
