package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/deezr/internal/playback"
	"github.com/desertthunder/deezr/internal/shared"
	"github.com/desertthunder/deezr/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive player.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	if err := shared.SetLogLevel(fileLogger, r.config.Log.Level); err != nil {
		return err
	}
	r.SetLogger(fileLogger)

	store, closeStore, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer closeStore()

	engine := playback.NewEngine(playback.EngineOpts{
		NewOutput: func() playback.Output {
			out, err := r.audioOutput()
			if err != nil {
				r.logger.Error("audio output unavailable, playing silently", "error", err)
				return playback.NewNullOutput()
			}
			return out
		},
		Logger: shared.WithLogger(r.logger, "component", "player"),
		Volume: &r.config.Player.Volume,
	})
	defer engine.Close()

	if err := ui.Run(ctx, ui.Options{
		Catalog: r.catalog,
		Engine:  engine,
		Store:   store,
		Logger:  shared.WithLogger(r.logger, "component", "ui"),
	}); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
