package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/desertthunder/deezr/internal/models"
	"github.com/desertthunder/deezr/internal/playback"
	"github.com/desertthunder/deezr/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlayTrack plays the top search result for a query.
func (r *Runner) PlayTrack(ctx context.Context, cmd *cli.Command) error {
	query, err := requireArg(cmd, "query")
	if err != nil {
		return err
	}
	track, err := r.topTrack(ctx, query)
	if err != nil {
		return err
	}
	return r.play(ctx, cmd, []models.Track{track})
}

// PlayAlbum plays a catalog album from its first track.
func (r *Runner) PlayAlbum(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd, "id")
	if err != nil {
		return err
	}
	album, err := r.catalog.Album(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch album %d: %w", id, err)
	}
	return r.play(ctx, cmd, album.TrackItems())
}

// PlayPlaylist plays a local playlist.
func (r *Runner) PlayPlaylist(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "playlist")
	if err != nil {
		return err
	}

	store, closeStore, err := r.openLibrary()
	if err != nil {
		return err
	}
	playlist, ok := store.Playlist(id)
	closeStore()
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return r.play(ctx, cmd, playlist.Tracks)
}

// PlayLiked plays liked tracks.
func (r *Runner) PlayLiked(ctx context.Context, cmd *cli.Command) error {
	store, closeStore, err := r.openLibrary()
	if err != nil {
		return err
	}
	tracks := store.LikedTracks()
	closeStore()
	return r.play(ctx, cmd, tracks)
}

// PlayChart plays the current top tracks.
func (r *Runner) PlayChart(ctx context.Context, cmd *cli.Command) error {
	tracks, err := r.catalog.ChartTracks(ctx, cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to fetch chart: %w", err)
	}
	return r.play(ctx, cmd, tracks)
}

// play runs tracks through a playback engine until the queue has played once (or forever with
// --loop) or ctx is cancelled. Tracks without a preview are reported and left out; a track that fails
// to load is reported and skipped.
func (r *Runner) play(ctx context.Context, cmd *cli.Command, tracks []models.Track) error {
	if len(tracks) == 0 {
		return fmt.Errorf("%w: nothing to play", shared.ErrTrackNotFound)
	}
	if cmd.Bool("dry-run") {
		r.writePlainHeader(fmt.Sprintf("Queue (%d tracks)", len(tracks)))
		r.printTracks(tracks)
		return nil
	}

	playable := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.Preview == "" {
			r.writePlain("✗ %s: no preview available\n", t)
			continue
		}
		playable = append(playable, t)
	}
	if len(playable) == 0 {
		return fmt.Errorf("%w: none of the %d tracks has a preview", shared.ErrNoPreview, len(tracks))
	}

	out, err := r.audioOutput()
	if err != nil {
		return err
	}

	// The engine wraps at the end of the queue, so the number of finished tracks decides when to stop.
	type failure struct {
		track models.Track
		err   error
	}
	ended := make(chan models.Track, len(playable)+1)
	failed := make(chan failure, len(playable)+1)
	engine := playback.NewEngine(playback.EngineOpts{
		Output: out,
		Logger: shared.WithLogger(r.logger, "component", "player"),
		Volume: &r.config.Player.Volume,
		OnEnded: func(t models.Track) {
			select {
			case ended <- t:
			default:
			}
		},
		OnFailed: func(t models.Track, err error) {
			select {
			case failed <- failure{track: t, err: err}:
			default:
			}
		},
	})
	defer engine.Close()

	states, unsubscribe := engine.Subscribe(16)
	defer unsubscribe()

	if _, err := engine.PlayQueue(playable, 0); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}
	r.writePlainHeader(fmt.Sprintf("Playing %d tracks (Ctrl-C to stop)", len(playable)))

	loop := cmd.Bool("loop")
	remaining := len(playable)
	played := 0
	var current int64 = -1

	// finish counts one track off the pass and reports whether playback is over.
	finish := func() bool {
		remaining--
		if remaining > 0 {
			return false
		}
		if !loop || played == 0 {
			return true
		}
		remaining = len(playable)
		played = 0
		return false
	}

	for {
		select {
		case <-ctx.Done():
			engine.Stop()
			r.writePlain("Stopped\n")
			return nil

		case <-ended:
			played++
			if finish() {
				engine.Stop()
				r.writePlain("Queue finished\n")
				return nil
			}

		case f := <-failed:
			r.writePlain("✗ %s: %v\n", f.track, f.err)
			if finish() {
				engine.Stop()
				if played == 0 {
					return fmt.Errorf("%w: no track could be played", shared.ErrNoPreview)
				}
				r.writePlain("Queue finished\n")
				return nil
			}
			engine.Next()

		case s, ok := <-states:
			if !ok {
				return nil
			}
			if s.CurrentTrack != nil && s.CurrentTrack.ID != current {
				current = s.CurrentTrack.ID
				r.writePlain("▶ %s [%s]\n", s.CurrentTrack, models.FormatDuration(s.CurrentTrack.Duration))
			}
		}
	}
}

// audioOutput returns the injected output or a stream output writing to the configured sink.
func (r *Runner) audioOutput() (playback.Output, error) {
	if r.audio != nil {
		return r.audio, nil
	}

	var sink io.Writer = io.Discard
	switch path := r.config.Player.Sink; {
	case r.config.Player.NoAudio || path == "":
	case path == "-":
		// Hide Close so the output does not close stdout.
		sink = struct{ io.Writer }{os.Stdout}
	default:
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open audio sink: %w", err)
		}
		sink = f
	}

	return playback.NewStreamOutput(playback.StreamOptions{
		Client: r.httpClient,
		Sink:   sink,
		Logger: shared.WithLogger(r.logger, "component", "audio"),
	}), nil
}
