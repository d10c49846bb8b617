package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/deezr/internal/models"
	"github.com/desertthunder/deezr/internal/shared"
	"github.com/urfave/cli/v3"
)

// CatalogSearch searches the catalog for one entity type.
func (r *Runner) CatalogSearch(ctx context.Context, cmd *cli.Command) error {
	query, err := requireArg(cmd, "query")
	if err != nil {
		return err
	}
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")
	kind := cmd.String("type")

	r.logger.Debug("searching catalog", "query", query, "type", kind)

	switch kind {
	case "track", "":
		tracks, err := r.catalog.SearchTracks(ctx, query)
		if err != nil {
			return fmt.Errorf("track search failed: %w", err)
		}
		if useJSON {
			return r.writeJSON(tracks, pretty)
		}
		r.writePlainHeader(fmt.Sprintf("Tracks matching %q", query))
		r.printTracks(tracks)

	case "album":
		albums, err := r.catalog.SearchAlbums(ctx, query)
		if err != nil {
			return fmt.Errorf("album search failed: %w", err)
		}
		if useJSON {
			return r.writeJSON(albums, pretty)
		}
		r.writePlainHeader(fmt.Sprintf("Albums matching %q", query))
		r.printAlbums(albums)

	case "artist":
		artists, err := r.catalog.SearchArtists(ctx, query)
		if err != nil {
			return fmt.Errorf("artist search failed: %w", err)
		}
		if useJSON {
			return r.writeJSON(artists, pretty)
		}
		r.writePlainHeader(fmt.Sprintf("Artists matching %q", query))
		for i, a := range artists {
			r.writePlain("%3d. %s (%d fans, id %d)\n", i+1, a.Name, a.Fans, a.ID)
		}

	case "playlist":
		playlists, err := r.catalog.SearchPlaylists(ctx, query)
		if err != nil {
			return fmt.Errorf("playlist search failed: %w", err)
		}
		if useJSON {
			return r.writeJSON(playlists, pretty)
		}
		r.writePlainHeader(fmt.Sprintf("Playlists matching %q", query))
		for i, p := range playlists {
			r.writePlain("%3d. %s by %s, %d tracks (id %d)\n", i+1, p.Title, p.User.Name, p.TrackCount, p.ID)
		}

	default:
		return fmt.Errorf("%w: --type must be track, album, artist or playlist, got %q", shared.ErrInvalidFlag, kind)
	}
	return nil
}

// CatalogChart shows the top tracks, or top albums with --albums.
func (r *Runner) CatalogChart(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if cmd.Bool("albums") {
		albums, err := r.catalog.ChartAlbums(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to fetch album chart: %w", err)
		}
		if useJSON {
			return r.writeJSON(albums, pretty)
		}
		r.writePlainHeader("Top Albums")
		r.printAlbums(albums)
		return nil
	}

	tracks, err := r.catalog.ChartTracks(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to fetch chart: %w", err)
	}
	if useJSON {
		return r.writeJSON(tracks, pretty)
	}
	r.writePlainHeader("Top Tracks")
	r.printTracks(tracks)
	return nil
}

// CatalogAlbum shows an album with its track list.
func (r *Runner) CatalogAlbum(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd, "id")
	if err != nil {
		return err
	}

	album, err := r.catalog.Album(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch album %d: %w", id, err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(album, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s - %s", album.Artist.Name, album.Title))
	if album.ReleaseDate != "" {
		r.writePlain("Released: %s\n\n", album.ReleaseDate)
	}
	r.printTracks(album.TrackItems())
	return nil
}

// CatalogArtist shows an artist, their top tracks and their albums.
func (r *Runner) CatalogArtist(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd, "id")
	if err != nil {
		return err
	}

	artist, err := r.catalog.Artist(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch artist %d: %w", id, err)
	}
	top, err := r.catalog.ArtistTopTracks(ctx, id, cmd.Int("top"))
	if err != nil {
		return fmt.Errorf("failed to fetch top tracks: %w", err)
	}
	albums, err := r.catalog.ArtistAlbums(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch albums: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			Artist    *models.Artist `json:"artist"`
			TopTracks []models.Track `json:"top_tracks"`
			Albums    []models.Album `json:"albums"`
		}{artist, top, albums}, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s (%d fans)", artist.Name, artist.Fans))
	r.writePlainln("Top tracks")
	r.printTracks(top)
	r.writePlainln("Albums")
	r.printAlbums(albums)
	return nil
}

// CatalogPlaylist shows a public catalog playlist.
func (r *Runner) CatalogPlaylist(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd, "id")
	if err != nil {
		return err
	}

	playlist, err := r.catalog.Playlist(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch playlist %d: %w", id, err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(playlist, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s by %s", playlist.Title, playlist.User.Name))
	r.printTracks(playlist.TrackItems())
	return nil
}

// topTrack returns the first search result for query.
func (r *Runner) topTrack(ctx context.Context, query string) (models.Track, error) {
	tracks, err := r.catalog.SearchTracks(ctx, query)
	if err != nil {
		return models.Track{}, fmt.Errorf("track search failed: %w", err)
	}
	if len(tracks) == 0 {
		return models.Track{}, fmt.Errorf("%w: no results for %q", shared.ErrTrackNotFound, query)
	}
	return tracks[0], nil
}

func (r *Runner) printTracks(tracks []models.Track) {
	if len(tracks) == 0 {
		r.writePlain("(no tracks)\n")
		return
	}
	for i, t := range tracks {
		r.writePlain("%3d. %s [%s] (id %d)\n", i+1, t, models.FormatDuration(t.Duration), t.ID)
	}
}

func (r *Runner) printAlbums(albums []models.Album) {
	if len(albums) == 0 {
		r.writePlain("(no albums)\n")
		return
	}
	for i, a := range albums {
		r.writePlain("%3d. %s - %s (id %d)\n", i+1, a.Artist.Name, a.Title, a.ID)
	}
}
