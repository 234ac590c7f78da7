package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/config"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/holo"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/monitoring"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/optics"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/pipeline"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/storage/sqlite"
)

const defaultDBFile = "darktrack.db"

// cmdRun reconstructs a hologram stack and writes trajectories.
func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	stackPath := fs.String("stack", "", "hologram stack file (required)")
	configPath := fs.String("config", "", "tuning config JSON (default: built-in defaults)")
	backgroundPath := fs.String("background", "", "explicit background stack file")
	tsvPath := fs.String("tsv", "", "write trajectory tables as TSV")
	edofPath := fs.String("edof", "", "write the EDOF composite stack")
	crPath := fs.String("cr", "", "write the classical reconstruction stack")
	dbPath := fs.String("db", "", "persist the run into this sqlite database")
	migrationsDir := fs.String("migrations", "migrations", "migrations directory (with -db)")
	fs.Parse(args)

	if *stackPath == "" {
		fs.Usage()
		return fmt.Errorf("-stack is required")
	}

	cfg, err := loadTuning(*configPath)
	if err != nil {
		return err
	}

	stack, err := holo.LoadStackFile(*stackPath)
	if err != nil {
		return err
	}

	var explicit []*optics.Image
	if *backgroundPath != "" {
		bg, err := holo.LoadStackFile(*backgroundPath)
		if err != nil {
			return fmt.Errorf("load background: %w", err)
		}
		explicit = bg.Frames
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := pipeline.Run(ctx, cfg, stack, explicit)
	if err != nil {
		return err
	}
	tables := pipeline.BuildTables(result.Tracks, len(result.Frames), result.Geometry)

	if *tsvPath != "" {
		if err := writeTSV(*tsvPath, tables); err != nil {
			return err
		}
	}
	if *edofPath != "" {
		if err := holo.SaveStackFile(*edofPath, frameStack(result, func(fr holo.FrameResult) *optics.Image { return fr.EDOF })); err != nil {
			return err
		}
	}
	if *crPath != "" {
		if err := holo.SaveStackFile(*crPath, frameStack(result, func(fr holo.FrameResult) *optics.Image { return fr.CR })); err != nil {
			return err
		}
	}

	if *dbPath != "" {
		store, err := sqlite.Open(*dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.MigrateUp(*migrationsDir); err != nil {
			return err
		}
		runID, err := store.SaveRun(result, tables)
		if err != nil {
			return err
		}
		fmt.Println(runID)
	}

	monitoring.Logf("run: %d track(s) over %d frame(s)", len(result.Tracks), len(result.Frames))
	return nil
}

// cmdMigrate applies or rolls back schema migrations.
func cmdMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbPath := fs.String("db", defaultDBFile, "sqlite database path")
	migrationsDir := fs.String("migrations", "migrations", "migrations directory")
	fs.Parse(args)

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	action := "up"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}
	switch action {
	case "up":
		return store.MigrateUp(*migrationsDir)
	case "down":
		return store.MigrateDown(*migrationsDir)
	case "version":
		version, dirty, err := store.MigrateVersion(*migrationsDir)
		if err != nil {
			return err
		}
		fmt.Printf("version %d dirty %v\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown migrate action %q (want up, down or version)", action)
	}
}

func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.MustLoadDefaultConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

func writeTSV(path string, tables *pipeline.Tables) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tables.WriteTSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func frameStack(result *pipeline.Result, pick func(holo.FrameResult) *optics.Image) *holo.Stack {
	frames := make([]*optics.Image, len(result.Frames))
	for i, fr := range result.Frames {
		frames[i] = pick(fr)
	}
	return holo.NewStack(frames)
}
