// Command gen-holo synthesizes a hologram stack of moving point scatterers
// for pipeline testing and demos.
//
//	gen-holo -out stack.dtrk -frames 24 -width 128 -height 128 -objects 3
package main

import (
	"flag"
	"log"
	"math/rand"

	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/config"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/holo"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/optics"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/sim"
)

func main() {
	out := flag.String("out", "stack.dtrk", "output stack file")
	configPath := flag.String("config", "", "tuning config JSON (default: built-in defaults)")
	width := flag.Int("width", 128, "frame width (px)")
	height := flag.Int("height", 128, "frame height (px)")
	frames := flag.Int("frames", 24, "number of frames")
	objects := flag.Int("objects", 3, "number of scatterers")
	amplitude := flag.Float64("amplitude", 1.0, "scatterer amplitude")
	maxStep := flag.Float64("max-step", 2.0, "maximum per-frame XY displacement (px)")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	var cfg *config.TuningConfig
	if *configPath == "" {
		cfg = config.MustLoadDefaultConfig()
	} else {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("gen-holo: %v", err)
		}
	}

	rng := rand.New(rand.NewSource(*seed))
	geom := optics.NewGeometry(cfg, *width, *height)

	start := make([]sim.Scatterer, *objects)
	steps := make([]sim.ScattererStep, *objects)
	for i := range start {
		start[i] = sim.Scatterer{
			XPx:       float64(*width) * (0.2 + 0.6*rng.Float64()),
			YPx:       float64(*height) * (0.2 + 0.6*rng.Float64()),
			ZIdx:      rng.Intn(geom.Samples),
			Amplitude: *amplitude,
		}
		steps[i] = sim.ScattererStep{
			DXPx: (2*rng.Float64() - 1) * *maxStep,
			DYPx: (2*rng.Float64() - 1) * *maxStep,
		}
	}

	s := sim.NewSimulator(geom, optics.SelectBackend(config.AccelOff))
	imgs, err := s.Sequence(start, steps, *frames)
	if err != nil {
		log.Fatalf("gen-holo: %v", err)
	}
	if err := holo.SaveStackFile(*out, holo.NewStack(imgs)); err != nil {
		log.Fatalf("gen-holo: %v", err)
	}
	log.Printf("wrote %d frame(s) of %dx%d px with %d scatterer(s) to %s",
		*frames, *width, *height, *objects, *out)
}
