// Package library owns the user's locally persisted collections: playlists and liked tracks.
//
// A [Store] is the only writer of both collections. Every mutation commits the entire affected
// collection through a [repositories.Collection] before returning, and a [Event] is published to
// subscribers afterwards. Operations whose preconditions are missing (unknown playlist, duplicate
// track, absent track) are no-ops reported as [shared.Skipped], never errors.
package library

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/deezr/internal/models"
	"github.com/desertthunder/deezr/internal/repositories"
	"github.com/desertthunder/deezr/internal/shared"
)

// Storage keys for the two collections.
const (
	PlaylistsKey   = "music-playlists"
	LikedTracksKey = "liked-tracks"
)

// EventKind identifies which collection changed.
type EventKind int

const (
	PlaylistsChanged EventKind = iota
	LikesChanged
)

func (k EventKind) String() string {
	switch k {
	case PlaylistsChanged:
		return "playlists_changed"
	case LikesChanged:
		return "likes_changed"
	default:
		return ""
	}
}

// Event is published after a collection has been mutated and committed.
type Event struct {
	Kind       EventKind
	PlaylistID string // set for playlist mutations
	TrackID    int64  // set for track-level mutations
}

// PlaylistUpdate carries the fields to merge into a playlist; nil fields are left unchanged.
type PlaylistUpdate struct {
	Name        *string
	Description *string
	CoverImage  *string
}

// Options configures a [Store].
type Options struct {
	Playlists repositories.Collection[[]models.Playlist]
	Liked     repositories.Collection[[]models.Track]
	Logger    *log.Logger
	Now       func() time.Time // defaults to time.Now
}

// Store holds the playlists and liked tracks collections.
type Store struct {
	mu        sync.RWMutex
	playlists []models.Playlist
	liked     []models.Track

	playlistsRepo repositories.Collection[[]models.Playlist]
	likedRepo     repositories.Collection[[]models.Track]
	logger        *log.Logger
	now           func() time.Time
	events        *shared.Broadcaster[Event]
}

// New builds a Store over the given collections and loads both of them once.
//
// A collection that cannot be read or decoded starts empty; the failure is logged, not returned.
func New(opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Store{
		playlistsRepo: opts.Playlists,
		likedRepo:     opts.Liked,
		logger:        opts.Logger,
		now:           opts.Now,
		events:        shared.NewBroadcaster[Event](),
	}

	if s.playlistsRepo != nil {
		playlists, err := s.playlistsRepo.Load()
		if err != nil {
			s.logger.Warn("failed to load playlists, starting empty", "err", err)
			playlists = nil
		}
		s.playlists = playlists
	}

	if s.likedRepo != nil {
		liked, err := s.likedRepo.Load()
		if err != nil {
			s.logger.Warn("failed to load liked tracks, starting empty", "err", err)
			liked = nil
		}
		s.liked = liked
	}

	for i := range s.playlists {
		if s.playlists[i].Tracks == nil {
			s.playlists[i].Tracks = []models.Track{}
		}
	}

	s.logger.Debug("library loaded", "playlists", len(s.playlists), "liked", len(s.liked))
	return s
}

// Open builds a Store persisting both collections as JSON in kv under the standard keys.
func Open(kv repositories.KVStore, logger *log.Logger) *Store {
	return New(Options{
		Playlists: repositories.NewJSONCollection[[]models.Playlist](kv, PlaylistsKey),
		Liked:     repositories.NewJSONCollection[[]models.Track](kv, LikedTracksKey),
		Logger:    logger,
	})
}

// Subscribe registers for change events. The cancel function must be called to release the channel.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	return s.events.Subscribe(buffer)
}

// Close releases all subscribers.
func (s *Store) Close() {
	s.events.Close()
}

// Playlists returns a copy of all playlists in creation order.
func (s *Store) Playlists() []models.Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Playlist, len(s.playlists))
	for i, p := range s.playlists {
		out[i] = p.Clone()
	}
	return out
}

// Playlist returns a copy of the playlist with the given id.
func (s *Store) Playlist(id string) (models.Playlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.playlists[i].Clone(), true
	}
	return models.Playlist{}, false
}

// LikedTracks returns a copy of the liked tracks in the order they were liked.
func (s *Store) LikedTracks() []models.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Track{}, s.liked...)
}

// IsLiked reports whether the track with the given id is liked.
func (s *Store) IsLiked(trackID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.IndexOf(s.liked, trackID) >= 0
}

// CreatePlaylist appends a new empty playlist and persists the collection.
//
// Returns [shared.ErrInvalidArgument] when name is empty after trimming.
func (s *Store) CreatePlaylist(name, description string) (models.Playlist, error) {
	name = models.NormalizeName(name)
	if name == "" {
		return models.Playlist{}, fmt.Errorf("%w: playlist name is required", shared.ErrInvalidArgument)
	}

	s.mu.Lock()
	created := s.now().UnixMilli()
	id := created
	for s.indexOf(strconv.FormatInt(id, 10)) >= 0 {
		id++
	}

	playlist := models.Playlist{
		ID:          strconv.FormatInt(id, 10),
		Name:        name,
		Description: description,
		Tracks:      []models.Track{},
		CreatedAt:   created,
	}
	s.playlists = append(s.playlists, playlist)
	err := s.commitPlaylists()
	s.mu.Unlock()

	s.logger.Info("created playlist", "id", playlist.ID, "name", name)
	s.publish(Event{Kind: PlaylistsChanged, PlaylistID: playlist.ID})
	return playlist.Clone(), err
}

// DeletePlaylist removes the playlist with the given id.
func (s *Store) DeletePlaylist(id string) (shared.Outcome, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Warn("delete skipped: playlist not found", "id", id)
		return shared.Skipped, nil
	}
	s.playlists = append(s.playlists[:i:i], s.playlists[i+1:]...)
	err := s.commitPlaylists()
	s.mu.Unlock()

	s.publish(Event{Kind: PlaylistsChanged, PlaylistID: id})
	return shared.Applied, err
}

// AddTrack appends track to the playlist unless a track with the same id is already present.
//
// The first track added to an empty playlist sets its cover image to the track's album art.
func (s *Store) AddTrack(playlistID string, track models.Track) (shared.Outcome, error) {
	s.mu.Lock()
	i := s.indexOf(playlistID)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Warn("add skipped: playlist not found", "playlist", playlistID, "track", track.ID)
		return shared.Skipped, nil
	}

	p := &s.playlists[i]
	if p.Contains(track.ID) {
		s.mu.Unlock()
		s.logger.Debug("add skipped: track already in playlist", "playlist", playlistID, "track", track.ID)
		return shared.Skipped, nil
	}

	if len(p.Tracks) == 0 {
		p.CoverImage = track.Album.CoverMedium
	}
	p.Tracks = append(p.Tracks, track)
	err := s.commitPlaylists()
	s.mu.Unlock()

	s.publish(Event{Kind: PlaylistsChanged, PlaylistID: playlistID, TrackID: track.ID})
	return shared.Applied, err
}

// RemoveTrack removes every track with trackID from the playlist.
func (s *Store) RemoveTrack(playlistID string, trackID int64) (shared.Outcome, error) {
	s.mu.Lock()
	i := s.indexOf(playlistID)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Warn("remove skipped: playlist not found", "playlist", playlistID, "track", trackID)
		return shared.Skipped, nil
	}

	p := &s.playlists[i]
	kept := make([]models.Track, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		if t.ID != trackID {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(p.Tracks) {
		s.mu.Unlock()
		s.logger.Debug("remove skipped: track not in playlist", "playlist", playlistID, "track", trackID)
		return shared.Skipped, nil
	}

	p.Tracks = kept
	err := s.commitPlaylists()
	s.mu.Unlock()

	s.publish(Event{Kind: PlaylistsChanged, PlaylistID: playlistID, TrackID: trackID})
	return shared.Applied, err
}

// UpdatePlaylist merges the non-nil fields of u into the playlist.
//
// Returns [shared.ErrInvalidArgument] when u sets an empty name.
func (s *Store) UpdatePlaylist(id string, u PlaylistUpdate) (shared.Outcome, error) {
	if u.Name != nil {
		name := models.NormalizeName(*u.Name)
		if name == "" {
			return shared.Skipped, fmt.Errorf("%w: playlist name is required", shared.ErrInvalidArgument)
		}
		u.Name = &name
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Warn("update skipped: playlist not found", "id", id)
		return shared.Skipped, nil
	}

	p := &s.playlists[i]
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.CoverImage != nil {
		p.CoverImage = *u.CoverImage
	}
	err := s.commitPlaylists()
	s.mu.Unlock()

	s.publish(Event{Kind: PlaylistsChanged, PlaylistID: id})
	return shared.Applied, err
}

// ToggleLike likes track if it is not liked, otherwise unlikes it. Returns the new liked state.
func (s *Store) ToggleLike(track models.Track) (bool, error) {
	s.mu.Lock()
	liked := true
	if i := models.IndexOf(s.liked, track.ID); i >= 0 {
		s.liked = append(s.liked[:i:i], s.liked[i+1:]...)
		liked = false
	} else {
		s.liked = append(s.liked, track)
	}
	err := s.commitLiked()
	s.mu.Unlock()

	s.logger.Debug("toggled like", "track", track.ID, "liked", liked)
	s.publish(Event{Kind: LikesChanged, TrackID: track.ID})
	return liked, err
}

func (s *Store) indexOf(id string) int {
	for i, p := range s.playlists {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// commitPlaylists persists the full playlist collection. Callers hold s.mu.
func (s *Store) commitPlaylists() error {
	if s.playlistsRepo == nil {
		return nil
	}
	if err := s.playlistsRepo.Save(s.playlists); err != nil {
		s.logger.Error("failed to persist playlists", "err", err)
		return err
	}
	s.logger.Debug("persisted playlists", "count", len(s.playlists))
	return nil
}

// commitLiked persists the full liked tracks collection. Callers hold s.mu.
func (s *Store) commitLiked() error {
	if s.likedRepo == nil {
		return nil
	}
	if err := s.likedRepo.Save(s.liked); err != nil {
		s.logger.Error("failed to persist liked tracks", "err", err)
		return err
	}
	s.logger.Debug("persisted liked tracks", "count", len(s.liked))
	return nil
}

func (s *Store) publish(e Event) {
	s.events.Publish(e)
}
