package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/OCAP2/portalview/internal/config"
	"github.com/OCAP2/portalview/internal/database"
	"github.com/OCAP2/portalview/internal/handlers"
	"github.com/OCAP2/portalview/internal/view"
)

// DefaultFrames walks the main camera from the hall into the gallery.
const DefaultFrames = 40

const usage = `usage: portalview <command>

commands:
  seed              write the demo world to the configured store
  run [frames]      load the world as ghosts and print the visible set per frame
  migrate [dump]    connect to the database, migrate it and optionally dump it to a file
  version           print the version`

func runCLI(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(out, usage)
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "seed":
		return seedCommand(ctx, out)
	case "run":
		frames := DefaultFrames
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 0 {
				return fmt.Errorf("invalid frame count %q", args[1])
			}
			frames = n
		}
		return runCommand(ctx, frames, out)
	case "migrate":
		dump := ""
		if len(args) > 1 {
			dump = args[1]
		}
		return migrateCommand(dump, out)
	case "version":
		fmt.Fprintf(out, "%s %s (%s)\n", AppName, CurrentVersion, BuildDate)
		return nil
	default:
		fmt.Fprintln(out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func seedCommand(ctx context.Context, out io.Writer) error {
	backend, err := createStorageBackend(config.GetStorageConfig(), config.GetDBConfig(), Logger)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	if err := seedWorld(ctx, backend); err != nil {
		backend.Close()
		return err
	}
	if err := backend.Close(); err != nil {
		return fmt.Errorf("failed to close storage backend: %w", err)
	}
	fmt.Fprintf(out, "seeded %d zones\n", len(demoSkeletons))
	return nil
}

func runCommand(ctx context.Context, frames int, out io.Writer) error {
	backend, err := createStorageBackend(config.GetStorageConfig(), config.GetDBConfig(), Logger)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	defer backend.Close()

	a, err := newApp(ctx, backend, SlogManager)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.monitor.Start(); err != nil {
		Logger.Warn("Status monitor not started", "error", err)
	}

	return a.view.Run(ctx, frames, 50*time.Millisecond, func(f view.Frame, err error) {
		if err != nil {
			fmt.Fprintf(out, "frame %d: %v\n", f.Number, err)
			return
		}
		fmt.Fprintf(out, "frame %d zone=%s visible=%v\n", f.Number, f.StartZone, f.Visible)
		if _, err := a.command(handlers.CmdCameraMove, MainCamera, "0.5", "0"); err != nil {
			Logger.Warn("Camera move failed", "error", err)
		}
	})
}

func migrateCommand(dump string, out io.Writer) error {
	m := database.NewManager(SlogManager.Zerolog())
	if err := m.Connect(config.GetDBConfig(), config.GetStorageConfig().SQLite.Path); err != nil {
		return err
	}
	defer m.Close()

	if err := m.Setup(); err != nil {
		return err
	}
	backend := "postgres"
	if m.UsingSQLite {
		backend = "sqlite"
	}
	fmt.Fprintf(out, "migrated %s database\n", backend)

	if dump != "" {
		if !m.UsingSQLite {
			return fmt.Errorf("dump needs a SQLite database")
		}
		if err := m.DumpToDisk(dump); err != nil {
			return err
		}
		fmt.Fprintf(out, "dumped to %s\n", dump)
	}
	return nil
}
