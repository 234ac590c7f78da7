package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/storage/sqlite"
)

// cmdServe exposes stored runs over HTTP: JSON endpoints for the data and
// an ECharts HTML page for quick trajectory inspection.
func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	dbPath := fs.String("db", defaultDBFile, "sqlite database path")
	listen := fs.String("listen", ":8080", "listen address")
	fs.Parse(args)

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := &resultsServer{store: store}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", srv.handleRuns)
	mux.HandleFunc("/api/tracks", srv.handleTracks)
	mux.HandleFunc("/charts/tracks", srv.handleTrackChart)

	server := &http.Server{Addr: *listen, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("serving results on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type resultsServer struct {
	store *sqlite.Store
}

func (s *resultsServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, runs)
}

func (s *resultsServer) handleTracks(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run")
	if runID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing run parameter")
		return
	}
	points, err := s.store.TrackPoints(runID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, points)
}

// handleTrackChart renders an XY scatter of one run's trajectories, colored
// by depth. Debugging-only endpoint, no auth.
func (s *resultsServer) handleTrackChart(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run")
	if runID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing run parameter")
		return
	}
	points, err := s.store.TrackPoints(runID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(points) == 0 {
		writeJSONError(w, http.StatusNotFound, "no track points for run")
		return
	}

	minZ, maxZ := points[0].ZUm, points[0].ZUm
	byTrack := map[int][]opts.ScatterData{}
	var order []int
	for _, p := range points {
		if _, seen := byTrack[p.TrackID]; !seen {
			order = append(order, p.TrackID)
		}
		byTrack[p.TrackID] = append(byTrack[p.TrackID],
			opts.ScatterData{Value: []interface{}{p.XUm, p.YUm, p.ZUm}})
		if p.ZUm < minZ {
			minZ = p.ZUm
		}
		if p.ZUm > maxZ {
			maxZ = p.ZUm
		}
	}
	if maxZ == minZ {
		maxZ = minZ + 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "DarkTrack Trajectories", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Trajectories (XY, colored by Z)", Subtitle: fmt.Sprintf("run=%s tracks=%d points=%d", runID, len(order), len(points))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (um)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y (um)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(minZ),
			Max:        float32(maxZ),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#31688e", "#35b779", "#fde725"}},
		}),
	)
	for _, id := range order {
		scatter.AddSeries(fmt.Sprintf("track %d", id), byTrack[id],
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	}

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
