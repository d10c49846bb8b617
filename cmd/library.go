package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/deezr/internal/library"
	"github.com/desertthunder/deezr/internal/models"
	"github.com/desertthunder/deezr/internal/shared"
	"github.com/desertthunder/deezr/internal/tasks"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

// LibraryList lists local playlists.
func (r *Runner) LibraryList(ctx context.Context, cmd *cli.Command) error {
	store, closeStore, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer closeStore()

	playlists := store.Playlists()
	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Playlists (%d)", len(playlists)))
	if len(playlists) == 0 {
		r.writePlain("No playlists yet. Create one with 'deezr library create <name>'.\n")
		return nil
	}
	for _, p := range playlists {
		r.writePlain("%s  %-30s %3d tracks  %s\n", p.ID, p.Name, len(p.Tracks), models.FormatDuration(p.TotalDuration()))
	}
	return nil
}

// LibraryShow shows one playlist with its tracks.
func (r *Runner) LibraryShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "playlist")
	if err != nil {
		return err
	}

	store, closeStore, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer closeStore()

	playlist, ok := store.Playlist(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	if cmd.Bool("json") {
		return r.writeJSON(playlist, cmd.Bool("pretty"))
	}

	r.writePlainHeader(playlist.Name)
	if playlist.Description != "" {
		r.writePlain("%s\n", playlist.Description)
	}
	r.writePlain("%d tracks, %s\n\n", len(playlist.Tracks), models.FormatDuration(playlist.TotalDuration()))
	r.printTracks(playlist.Tracks)
	return nil
}

// LibraryCreate creates an empty playlist and prints its ID.
func (r *Runner) LibraryCreate(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}

	store, closeStore, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer closeStore()

	playlist, err := store.CreatePlaylist(name, cmd.String("description"))
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}

	r.writePlain("✓ Created %q (id %s)\n", playlist.Name, playlist.ID)
	return nil
}

// LibraryDelete deletes a playlist.
func (r *Runner) LibraryDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "playlist")
	if err != nil {
		return err
	}

	store, closeStore, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer closeStore()

	outcome, err := store.DeletePlaylist(id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	if !outcome.Changed() {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	r.writePlain("✓ Deleted playlist %s\n", id)
	return nil
}

// LibraryRename renames a playlist. --description and --cover update those fields too.
func (r *Runner) LibraryRename(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "playlist")
	if err != nil {
		return err
	}

	var update library.PlaylistUpdate
	if name := cmd.StringArg("name"); name != "" {
		update.Name = &name
	}
	if cmd.IsSet("description") {
		description := cmd.String("description")
		update.Description = &description
	}
	if cmd.IsSet("cover") {
		cover := cmd.String("cover")
		update.CoverImage = &cover
	}
	if update == (library.PlaylistUpdate{}) {
		return fmt.Errorf("%w: a new name, --description or --cover", shared.ErrMissingArgument)
	}

	store, closeStore, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer closeStore()

	outcome, err := store.UpdatePlaylist(id, update)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}
	if !outcome.Changed() {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	playlist, _ := store.Playlist(id)
	r.writePlain("✓ Updated %q\n", playlist.Name)
	return nil
}

// LibraryAdd adds the top search result for a query to a playlist.
func (r *Runner) LibraryAdd(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "playlist")
	if err != nil {
		return err
	}
	query, err := requireArg(cmd, "query")
	if err != nil {
		return err
	}

	store, closeStore, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer closeStore()

	playlist, ok := store.Playlist(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	track, err := r.topTrack(ctx, query)
	if err != nil {
		return err
	}

	outcome, err := store.AddTrack(id, track)
	if err != nil {
		return fmt.Errorf("failed to add track: %w", err)
	}
	if !outcome.Changed() {
		r.writePlain("= %s is already in %q\n", track, playlist.Name)
		return nil
	}

	r.writePlain("✓ Added %s to %q\n", track, playlist.Name)
	return nil
}

// LibraryRemove removes a track from a playlist by track ID.
func (r *Runner) LibraryRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "playlist")
	if err != nil {
		return err
	}
	trackID, err := requireID(cmd, "track")
	if err != nil {
		return err
	}

	store, closeStore, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer closeStore()

	playlist, ok := store.Playlist(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	outcome, err := store.RemoveTrack(id, trackID)
	if err != nil {
		return fmt.Errorf("failed to remove track: %w", err)
	}
	if !outcome.Changed() {
		return fmt.Errorf("%w: %d in %q", shared.ErrTrackNotFound, trackID, playlist.Name)
	}

	r.writePlain("✓ Removed track %d from %q\n", trackID, playlist.Name)
	return nil
}

// LibraryLike toggles the like on the top search result for a query.
func (r *Runner) LibraryLike(ctx context.Context, cmd *cli.Command) error {
	query, err := requireArg(cmd, "query")
	if err != nil {
		return err
	}

	store, closeStore, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer closeStore()

	track, err := r.topTrack(ctx, query)
	if err != nil {
		return err
	}

	liked, err := store.ToggleLike(track)
	if err != nil {
		return fmt.Errorf("failed to update likes: %w", err)
	}
	if liked {
		r.writePlain("♥ Liked %s\n", track)
	} else {
		r.writePlain("Unliked %s\n", track)
	}
	return nil
}

// LibraryLiked lists liked tracks in the order they were liked.
func (r *Runner) LibraryLiked(ctx context.Context, cmd *cli.Command) error {
	store, closeStore, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer closeStore()

	tracks := store.LikedTracks()
	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Liked tracks (%d)", len(tracks)))
	r.printTracks(tracks)
	return nil
}

// LibraryImport copies a catalog source into a new playlist, drawing a progress bar while tracks are added.
func (r *Runner) LibraryImport(ctx context.Context, cmd *cli.Command) error {
	kind, err := requireArg(cmd, "kind")
	if err != nil {
		return fmt.Errorf("%w (one of %v)", err, tasks.SourceKinds)
	}
	src, err := tasks.ParseSource(kind, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	store, closeStore, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer closeStore()

	importer := tasks.NewImporter(r.catalog, store, shared.WithLogger(r.logger, "component", "importer"))
	importer.Limit = cmd.Int("limit")

	progress := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.renderImportProgress(progress)
	}()

	start := time.Now()
	res, err := importer.Import(ctx, progress, src, cmd.String("name"))
	close(progress)
	<-done

	if res != nil {
		r.writePlainln("═══════════════════════════════════════")
		r.writePlain("Imported %s into %q (id %s)\n", src, res.Playlist.Name, res.Playlist.ID)
		r.writePlain("Added: %d  Already present: %d  Total: %d\n", res.Added, res.Skipped, res.Total)
		r.writePlain("Duration: %s\n", time.Since(start).Round(time.Millisecond))
		r.writePlain("═══════════════════════════════════════\n")
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return nil
}

func (r *Runner) renderImportProgress(progress <-chan tasks.ProgressUpdate) {
	var bar *progressbar.ProgressBar
	for u := range progress {
		switch u.Phase {
		case tasks.AddTracks:
			if bar == nil {
				bar = progressbar.NewOptions(u.Total,
					progressbar.OptionSetWriter(r.output),
					progressbar.OptionFullWidth(),
					progressbar.OptionShowCount(),
					progressbar.OptionSetDescription("Adding tracks"),
					progressbar.OptionSetTheme(progressbar.ThemeASCII),
				)
			}
			bar.Set(u.Step)
			r.logger.Debug(u.Message)
		default:
			r.writePlain("%s\n", u.Message)
		}
	}
	if bar != nil {
		bar.Finish()
		r.writePlain("\n")
	}
}

// LibraryExport writes playlists to files in the requested format.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	store, closeStore, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer closeStore()

	playlists := store.Playlists()
	if ids := cmd.StringSlice("id"); len(ids) > 0 {
		selected := make([]models.Playlist, 0, len(ids))
		for _, id := range ids {
			p, ok := store.Playlist(id)
			if !ok {
				return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
			}
			selected = append(selected, p)
		}
		playlists = selected
	}
	if len(playlists) == 0 {
		r.writePlain("Nothing to export.\n")
		return nil
	}

	progress := make(chan tasks.ProgressUpdate, len(playlists)*2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			r.writePlain("%s\n", u.Message)
		}
	}()

	result, err := tasks.BulkExport(ctx, progress, playlists, tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		Covers:     cmd.Bool("covers"),
		HTTPClient: r.httpClient,
	})
	close(progress)
	<-done

	if result != nil {
		r.writePlainln("═══════════════════════════════════════")
		r.writePlain("Exported %d/%d playlists to %s\n", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)
		if result.FailedExports > 0 {
			r.writePlain("Failed: %d\n", result.FailedExports)
		}
		if result.ManifestPath != "" {
			r.writePlain("Manifest: %s\n", result.ManifestPath)
		}
		r.writePlain("═══════════════════════════════════════\n")
	}
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	return nil
}
