// package models defines the data model for the deezr player and library
package models

import (
	"fmt"
	"strings"
)

// TrackArtist is the artist reference embedded in a [Track] or [Album].
type TrackArtist struct {
	ID            int64  `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	PictureMedium string `json:"picture_medium,omitempty" yaml:"picture_medium,omitempty"`
}

// TrackAlbum is the album reference embedded in a [Track].
type TrackAlbum struct {
	ID          int64  `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	CoverMedium string `json:"cover_medium,omitempty" yaml:"cover_medium,omitempty"`
	CoverBig    string `json:"cover_big,omitempty" yaml:"cover_big,omitempty"`
	CoverXL     string `json:"cover_xl,omitempty" yaml:"cover_xl,omitempty"`
}

// Track is a playable catalog item. Two tracks are the same when their IDs match.
type Track struct {
	ID       int64       `json:"id" yaml:"id"`
	Title    string      `json:"title" yaml:"title"`
	Duration int         `json:"duration" yaml:"duration"` // seconds
	Preview  string      `json:"preview" yaml:"preview"`   // progressive-download audio URL
	Link     string      `json:"link,omitempty" yaml:"link,omitempty"`
	Artist   TrackArtist `json:"artist" yaml:"artist"`
	Album    TrackAlbum  `json:"album" yaml:"album"`
}

// Same reports whether t and other identify the same catalog track.
func (t Track) Same(other Track) bool { return t.ID == other.ID }

// String renders "Artist - Title".
func (t Track) String() string {
	if t.Artist.Name == "" {
		return t.Title
	}
	return fmt.Sprintf("%s - %s", t.Artist.Name, t.Title)
}

// TrackList wraps the {"data": [...]} envelope the catalog uses for embedded track lists.
type TrackList struct {
	Data []Track `json:"data"`
}

// Album is a catalog album.
type Album struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	CoverMedium string      `json:"cover_medium"`
	CoverBig    string      `json:"cover_big"`
	CoverXL     string      `json:"cover_xl"`
	ReleaseDate string      `json:"release_date,omitempty"`
	Artist      TrackArtist `json:"artist"`
	Tracks      *TrackList  `json:"tracks,omitempty"`
}

// TrackItems returns the embedded tracks, or nil when the album was fetched without them.
//
// Embedded album tracks omit the album reference; it is filled in from the album itself.
func (a Album) TrackItems() []Track {
	if a.Tracks == nil {
		return nil
	}
	tracks := make([]Track, len(a.Tracks.Data))
	for i, t := range a.Tracks.Data {
		if t.Album.ID == 0 {
			t.Album = TrackAlbum{ID: a.ID, Title: a.Title, CoverMedium: a.CoverMedium, CoverBig: a.CoverBig, CoverXL: a.CoverXL}
		}
		tracks[i] = t
	}
	return tracks
}

// Artist is a catalog artist.
type Artist struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	PictureMedium string `json:"picture_medium"`
	PictureBig    string `json:"picture_big"`
	PictureXL     string `json:"picture_xl"`
	Fans          int    `json:"nb_fan"`
}

// PlaylistOwner is the owner reference of a [CatalogPlaylist].
type PlaylistOwner struct {
	Name string `json:"name"`
}

// CatalogPlaylist is a playlist published in the catalog (not a local [Playlist]).
type CatalogPlaylist struct {
	ID            int64         `json:"id"`
	Title         string        `json:"title"`
	PictureMedium string        `json:"picture_medium"`
	PictureBig    string        `json:"picture_big"`
	PictureXL     string        `json:"picture_xl"`
	TrackCount    int           `json:"nb_tracks"`
	User          PlaylistOwner `json:"user"`
	Tracks        *TrackList    `json:"tracks,omitempty"`
}

// TrackItems returns the embedded tracks, or nil when absent.
func (p CatalogPlaylist) TrackItems() []Track {
	if p.Tracks == nil {
		return nil
	}
	return append([]Track(nil), p.Tracks.Data...)
}

// Playlist is a user-curated local playlist.
//
// Track membership is unique by track ID. CoverImage is set from the first track added to an
// empty playlist and preserved afterwards.
type Playlist struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Tracks      []Track `json:"tracks" yaml:"tracks"`
	CreatedAt   int64   `json:"createdAt" yaml:"created_at"` // unix milliseconds
	CoverImage  string  `json:"coverImage,omitempty" yaml:"cover_image,omitempty"`
}

// IndexOf returns the position of the track with the given ID, or -1.
func (p Playlist) IndexOf(trackID int64) int {
	return IndexOf(p.Tracks, trackID)
}

// Contains reports whether the playlist holds a track with the given ID.
func (p Playlist) Contains(trackID int64) bool {
	return p.IndexOf(trackID) >= 0
}

// TotalDuration sums track durations in seconds.
func (p Playlist) TotalDuration() int {
	total := 0
	for _, t := range p.Tracks {
		total += t.Duration
	}
	return total
}

// Clone returns a copy that shares no slices with p.
func (p Playlist) Clone() Playlist {
	p.Tracks = append([]Track(nil), p.Tracks...)
	if p.Tracks == nil {
		p.Tracks = []Track{}
	}
	return p
}

// IndexOf returns the position of the first track in tracks with the given ID, or -1.
func IndexOf(tracks []Track, trackID int64) int {
	for i, t := range tracks {
		if t.ID == trackID {
			return i
		}
	}
	return -1
}

// FormatDuration renders whole seconds as m:ss.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// NormalizeName trims surrounding whitespace from a user-supplied name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}
