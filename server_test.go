package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/config"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/holo"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/optics"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/pipeline"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/storage/sqlite"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/tracking"
)

func seededServer(t *testing.T) (*resultsServer, string) {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.MigrateUp("migrations"))

	cfg := config.MustLoadDefaultConfig()
	geom := optics.NewGeometry(cfg, 16, 16)
	tr := tracking.NewTracker(tracking.ConfigFromTuning(cfg))
	tr.Observe([]tracking.Point{{X: 2, Y: 2, Z: 5}})
	tr.Observe([]tracking.Point{{X: 3, Y: 2, Z: 5}})

	result := &pipeline.Result{
		Frames: []holo.FrameResult{
			{Frame: 0, Detections: []holo.Detection{{XPx: 2, YPx: 2, ZIdx: 5, Amplitude: 1, Pixels: 8}}},
			{Frame: 1, Detections: []holo.Detection{{Frame: 1, XPx: 3, YPx: 2, ZIdx: 5, Amplitude: 1, Pixels: 8}}},
		},
		Tracks:   tr.Tracks(),
		Geometry: geom,
		Elapsed:  time.Second,
	}
	runID, err := store.SaveRun(result, pipeline.BuildTables(result.Tracks, 2, geom))
	require.NoError(t, err)
	return &resultsServer{store: store}, runID
}

func TestHandleRuns(t *testing.T) {
	t.Parallel()

	srv, runID := seededServer(t)
	rec := httptest.NewRecorder()
	srv.handleRuns(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var runs []sqlite.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].RunID)
}

func TestHandleTracks(t *testing.T) {
	t.Parallel()

	srv, runID := seededServer(t)

	rec := httptest.NewRecorder()
	srv.handleTracks(rec, httptest.NewRequest(http.MethodGet, "/api/tracks", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "run parameter is required")

	rec = httptest.NewRecorder()
	srv.handleTracks(rec, httptest.NewRequest(http.MethodGet, "/api/tracks?run="+runID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var points []sqlite.TrackPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	assert.Len(t, points, 2)
}

func TestHandleTrackChart(t *testing.T) {
	t.Parallel()

	srv, runID := seededServer(t)

	rec := httptest.NewRecorder()
	srv.handleTrackChart(rec, httptest.NewRequest(http.MethodGet, "/charts/tracks?run="+runID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.True(t, strings.Contains(rec.Body.String(), "echarts"))

	rec = httptest.NewRecorder()
	srv.handleTrackChart(rec, httptest.NewRequest(http.MethodGet, "/charts/tracks?run=missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
