// Command plot-tracks renders the trajectories of a stored run as PNG
// plots: an XY overview and per-axis position-over-frame series.
//
//	plot-tracks -db darktrack.db -run <run-id> -out plots/
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/storage/sqlite"
)

var palette = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
}

func main() {
	dbPath := flag.String("db", "darktrack.db", "sqlite database path")
	runID := flag.String("run", "", "run id (required)")
	outDir := flag.String("out", "plots", "output directory")
	flag.Parse()

	if *runID == "" {
		flag.Usage()
		os.Exit(2)
	}

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("plot-tracks: %v", err)
	}
	defer store.Close()

	points, err := store.TrackPoints(*runID)
	if err != nil {
		log.Fatalf("plot-tracks: %v", err)
	}
	if len(points) == 0 {
		log.Fatalf("plot-tracks: no track points for run %s", *runID)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("plot-tracks: %v", err)
	}

	byTrack := map[int][]sqlite.TrackPoint{}
	var order []int
	for _, p := range points {
		if _, seen := byTrack[p.TrackID]; !seen {
			order = append(order, p.TrackID)
		}
		byTrack[p.TrackID] = append(byTrack[p.TrackID], p)
	}

	if err := plotXY(byTrack, order, filepath.Join(*outDir, "tracks_xy.png")); err != nil {
		log.Fatalf("plot-tracks: %v", err)
	}
	axes := []struct {
		name string
		pick func(sqlite.TrackPoint) float64
	}{
		{"x", func(p sqlite.TrackPoint) float64 { return p.XUm }},
		{"y", func(p sqlite.TrackPoint) float64 { return p.YUm }},
		{"z", func(p sqlite.TrackPoint) float64 { return p.ZUm }},
	}
	for _, axis := range axes {
		file := filepath.Join(*outDir, fmt.Sprintf("tracks_%s.png", axis.name))
		if err := plotAxis(byTrack, order, axis.name, axis.pick, file); err != nil {
			log.Fatalf("plot-tracks: %v", err)
		}
	}
	log.Printf("wrote %d plot(s) for %d track(s) to %s", 1+len(axes), len(order), *outDir)
}

func plotXY(byTrack map[int][]sqlite.TrackPoint, order []int, file string) error {
	p := plot.New()
	p.Title.Text = "Trajectories (XY)"
	p.X.Label.Text = "X (um)"
	p.Y.Label.Text = "Y (um)"

	for i, id := range order {
		pts := make(plotter.XYs, 0, len(byTrack[id]))
		for _, tp := range byTrack[id] {
			pts = append(pts, plotter.XY{X: tp.XUm, Y: tp.YUm})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = palette[i%len(palette)]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("track %d", id), line)
	}
	return p.Save(8*vg.Inch, 8*vg.Inch, file)
}

func plotAxis(byTrack map[int][]sqlite.TrackPoint, order []int, name string, pick func(sqlite.TrackPoint) float64, file string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s position over frames", name)
	p.X.Label.Text = "frame"
	p.Y.Label.Text = name + " (um)"

	for i, id := range order {
		pts := make(plotter.XYs, 0, len(byTrack[id]))
		for _, tp := range byTrack[id] {
			pts = append(pts, plotter.XY{X: float64(tp.Frame), Y: pick(tp)})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = palette[i%len(palette)]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("track %d", id), line)
	}
	return p.Save(14*vg.Inch, 6*vg.Inch, file)
}
