package tasks

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/deezr/internal/catalog"
	"github.com/desertthunder/deezr/internal/library"
	"github.com/desertthunder/deezr/internal/models"
	"github.com/desertthunder/deezr/internal/shared"
)

// SourceKind names the catalog entity an import copies from.
type SourceKind string

const (
	SourceAlbum     SourceKind = "album"
	SourcePlaylist  SourceKind = "playlist"
	SourceArtistTop SourceKind = "artist-top"
	SourceChart     SourceKind = "chart"
)

// SourceKinds lists every importable kind.
var SourceKinds = []SourceKind{SourceAlbum, SourcePlaylist, SourceArtistTop, SourceChart}

// Source identifies a catalog entity. ID is ignored for [SourceChart].
type Source struct {
	Kind SourceKind
	ID   int64
}

func (s Source) String() string {
	if s.Kind == SourceChart {
		return string(s.Kind)
	}
	return fmt.Sprintf("%s %d", s.Kind, s.ID)
}

// ParseSource builds a Source from CLI arguments.
func ParseSource(kind, id string) (Source, error) {
	src := Source{Kind: SourceKind(strings.ToLower(strings.TrimSpace(kind)))}

	switch src.Kind {
	case SourceChart:
		return src, nil
	case SourceAlbum, SourcePlaylist, SourceArtistTop:
	default:
		return Source{}, fmt.Errorf("%w: unknown source %q", shared.ErrInvalidArgument, kind)
	}

	if id == "" {
		return Source{}, fmt.Errorf("%w: %s needs an ID", shared.ErrMissingArgument, src.Kind)
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return Source{}, fmt.Errorf("%w: %q is not a catalog ID", shared.ErrInvalidArgument, id)
	}
	src.ID = n
	return src, nil
}

// ImportResult summarizes one import.
type ImportResult struct {
	Source   Source
	Title    string          // Catalog title of the source
	Playlist models.Playlist // Local playlist after the import
	Total    int             // Tracks fetched from the catalog
	Added    int
	Skipped  int // Tracks already in the playlist
}

// Importer copies catalog entities into the local library.
type Importer struct {
	catalog catalog.Catalog
	store   *library.Store
	logger  *log.Logger
	// Limit caps artist top tracks and chart size; zero uses the catalog defaults.
	Limit int
}

// NewImporter creates an Importer.
func NewImporter(c catalog.Catalog, store *library.Store, logger *log.Logger) *Importer {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Importer{catalog: c, store: store, logger: logger}
}

// Import fetches src, creates a local playlist and adds every track to it.
//
// The playlist is named after the catalog title when name is blank. Cancelling ctx stops between
// tracks; the partial result is returned along with the context error.
func (i *Importer) Import(ctx context.Context, progress chan<- ProgressUpdate, src Source, name string) (*ImportResult, error) {
	if i.catalog == nil || i.store == nil {
		return nil, fmt.Errorf("%w: importer not initialized", shared.ErrServiceUnavailable)
	}

	sendProgress(progress, fetchingSourceUpdate(src))

	title, tracks, err := i.fetch(ctx, src)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Source: src, Title: title, Total: len(tracks)}
	sendProgress(progress, foundSourceUpdate(title, len(tracks)))

	if strings.TrimSpace(name) == "" {
		name = title
	}

	pl, err := i.store.CreatePlaylist(name, fmt.Sprintf("Imported from Deezer %s", src))
	if err != nil {
		return nil, err
	}
	result.Playlist = pl
	sendProgress(progress, createPlaylistUpdate(pl))

	for n, track := range tracks {
		if err := ctx.Err(); err != nil {
			result.Playlist, _ = i.store.Playlist(pl.ID)
			return result, err
		}

		outcome, err := i.store.AddTrack(pl.ID, track)
		if err != nil {
			result.Playlist, _ = i.store.Playlist(pl.ID)
			return result, err
		}

		if outcome.Changed() {
			result.Added++
		} else {
			result.Skipped++
		}
		sendProgress(progress, addTrackUpdate(n+1, len(tracks), track, outcome.Changed()))
	}

	result.Playlist, _ = i.store.Playlist(pl.ID)
	i.logger.Info("import finished", "source", src.String(), "playlist", pl.ID, "added", result.Added, "skipped", result.Skipped)
	return result, nil
}

// fetch returns the display title and track list for src.
func (i *Importer) fetch(ctx context.Context, src Source) (string, []models.Track, error) {
	switch src.Kind {
	case SourceAlbum:
		album, err := i.catalog.Album(ctx, src.ID)
		if err != nil {
			return "", nil, err
		}
		return album.Title, album.TrackItems(), nil

	case SourcePlaylist:
		playlist, err := i.catalog.Playlist(ctx, src.ID)
		if err != nil {
			return "", nil, err
		}
		return playlist.Title, playlist.TrackItems(), nil

	case SourceArtistTop:
		artist, err := i.catalog.Artist(ctx, src.ID)
		if err != nil {
			return "", nil, err
		}
		tracks, err := i.catalog.ArtistTopTracks(ctx, src.ID, i.Limit)
		if err != nil {
			return "", nil, err
		}
		return artist.Name + " Top Tracks", tracks, nil

	case SourceChart:
		tracks, err := i.catalog.ChartTracks(ctx, i.Limit)
		if err != nil {
			return "", nil, err
		}
		return "Top Charts", tracks, nil

	default:
		return "", nil, fmt.Errorf("%w: unknown source %q", shared.ErrInvalidArgument, src.Kind)
	}
}
