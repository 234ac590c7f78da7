// Package sqlite persists reconstruction runs: run metadata, per-frame
// detections, and the tracked trajectories in physical units. Absent track
// slots are represented by missing rows, never NaN columns.
package sqlite

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/monitoring"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/pipeline"
)

type Store struct {
	*sql.DB
}

// Open opens (or creates) the results database at path. Use ":memory:" for
// an ephemeral store. The schema is managed through migrations; call
// MigrateUp before first use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	return &Store{db}, nil
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	RunID          string
	Created        time.Time
	Frames         int
	Width          int
	Height         int
	DepthSamples   int
	GatingRadiusPx sql.NullFloat64
	Elapsed        time.Duration
}

// TrackPoint is one observed trajectory sample in micrometres.
type TrackPoint struct {
	TrackID int
	Frame   int
	XUm     float64
	YUm     float64
	ZUm     float64
}

// SaveRun stores a completed pipeline run and its trajectory tables under a
// fresh run id, which is returned.
func (s *Store) SaveRun(result *pipeline.Result, tables *pipeline.Tables) (string, error) {
	runID := uuid.New().String()

	tx, err := s.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var gating sql.NullFloat64
	if result.GatingSet {
		gating = sql.NullFloat64{Float64: result.GatingRadiusPx, Valid: true}
	}
	_, err = tx.Exec(`INSERT INTO runs
		(run_id, created_unix_nanos, frames, width, height, depth_samples, gating_radius_px, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, time.Now().UnixNano(), len(result.Frames),
		result.Geometry.Width, result.Geometry.Height, result.Geometry.Samples,
		gating, result.Elapsed.Milliseconds())
	if err != nil {
		return "", fmt.Errorf("storage: insert run: %w", err)
	}

	detStmt, err := tx.Prepare(`INSERT INTO detections
		(run_id, frame, x_px, y_px, z_idx, amplitude, pixels)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer detStmt.Close()
	for _, fr := range result.Frames {
		for _, d := range fr.Detections {
			if _, err := detStmt.Exec(runID, d.Frame, d.XPx, d.YPx, d.ZIdx, d.Amplitude, d.Pixels); err != nil {
				return "", fmt.Errorf("storage: insert detection: %w", err)
			}
		}
	}

	ptStmt, err := tx.Prepare(`INSERT INTO track_points
		(run_id, track_id, frame, x_um, y_um, z_um)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer ptStmt.Close()
	for i, id := range tables.TrackIDs {
		for f := 0; f < tables.Frames; f++ {
			if math.IsNaN(tables.X[i][f]) {
				continue
			}
			if _, err := ptStmt.Exec(runID, id, f, tables.X[i][f], tables.Y[i][f], tables.Z[i][f]); err != nil {
				return "", fmt.Errorf("storage: insert track point: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	monitoring.Infof("storage: saved run %s (%d frame(s), %d track(s))",
		runID, len(result.Frames), len(tables.TrackIDs))
	return runID, nil
}

// ListRuns returns run summaries, newest first.
func (s *Store) ListRuns() ([]RunSummary, error) {
	rows, err := s.Query(`SELECT run_id, created_unix_nanos, frames, width, height,
		depth_samples, gating_radius_px, elapsed_ms
		FROM runs ORDER BY created_unix_nanos DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var createdNanos, elapsedMs int64
		if err := rows.Scan(&r.RunID, &createdNanos, &r.Frames, &r.Width, &r.Height,
			&r.DepthSamples, &r.GatingRadiusPx, &elapsedMs); err != nil {
			return nil, err
		}
		r.Created = time.Unix(0, createdNanos)
		r.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

// TrackPoints returns the observed trajectory samples of one run, ordered
// by track then frame.
func (s *Store) TrackPoints(runID string) ([]TrackPoint, error) {
	rows, err := s.Query(`SELECT track_id, frame, x_um, y_um, z_um
		FROM track_points WHERE run_id = ? ORDER BY track_id, frame`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrackPoint
	for rows.Next() {
		var p TrackPoint
		if err := rows.Scan(&p.TrackID, &p.Frame, &p.XUm, &p.YUm, &p.ZUm); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DetectionCount returns the number of stored detections for a run.
func (s *Store) DetectionCount(runID string) (int, error) {
	var n int
	err := s.QueryRow(`SELECT COUNT(*) FROM detections WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}
