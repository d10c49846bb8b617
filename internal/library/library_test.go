package library

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/deezr/internal/models"
	"github.com/desertthunder/deezr/internal/repositories"
	"github.com/desertthunder/deezr/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func track(id int64, title, cover string) models.Track {
	return models.Track{
		ID:       id,
		Title:    title,
		Duration: 180,
		Artist:   models.TrackArtist{ID: id * 10, Name: "Artist"},
		Album:    models.TrackAlbum{ID: id * 100, Title: "Album", CoverMedium: cover},
	}
}

// fixedClock returns a clock that always reports the same instant.
func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func newTestStore(t *testing.T) (*Store, *repositories.MemoryStore) {
	t.Helper()
	kv := repositories.NewMemoryStore(nil)
	s := New(Options{
		Playlists: repositories.NewJSONCollection[[]models.Playlist](kv, PlaylistsKey),
		Liked:     repositories.NewJSONCollection[[]models.Track](kv, LikedTracksKey),
		Now:       fixedClock(1700000000000),
	})
	t.Cleanup(s.Close)
	return s, kv
}

// reload opens a fresh store over the same backing data.
func reload(kv repositories.KVStore) *Store {
	return Open(kv, nil)
}

func ptr(s string) *string { return &s }

func TestCreatePlaylist(t *testing.T) {
	t.Run("Appends Empty Playlist", func(t *testing.T) {
		s, kv := newTestStore(t)

		p, err := s.CreatePlaylist("Road Trip", "songs for the car")
		require.NoError(t, err)

		assert.Equal(t, "1700000000000", p.ID)
		assert.Equal(t, "Road Trip", p.Name)
		assert.Equal(t, "songs for the car", p.Description)
		assert.Empty(t, p.Tracks)
		assert.NotNil(t, p.Tracks)
		assert.Equal(t, int64(1700000000000), p.CreatedAt)
		assert.Empty(t, p.CoverImage)

		persisted := reload(kv).Playlists()
		require.Len(t, persisted, 1)
		assert.Equal(t, p.ID, persisted[0].ID)
	})

	t.Run("Colliding Timestamps Get Unique Ids", func(t *testing.T) {
		s, _ := newTestStore(t)

		a, err := s.CreatePlaylist("A", "")
		require.NoError(t, err)
		b, err := s.CreatePlaylist("B", "")
		require.NoError(t, err)

		assert.NotEqual(t, a.ID, b.ID)
		assert.Equal(t, "1700000000001", b.ID)
		assert.Equal(t, a.CreatedAt, b.CreatedAt)
	})

	t.Run("Preserves Creation Order", func(t *testing.T) {
		s, _ := newTestStore(t)
		for _, name := range []string{"one", "two", "three"} {
			_, err := s.CreatePlaylist(name, "")
			require.NoError(t, err)
		}

		var names []string
		for _, p := range s.Playlists() {
			names = append(names, p.Name)
		}
		assert.Equal(t, []string{"one", "two", "three"}, names)
	})

	t.Run("Rejects Blank Name", func(t *testing.T) {
		s, _ := newTestStore(t)

		_, err := s.CreatePlaylist("   ", "")
		assert.ErrorIs(t, err, shared.ErrInvalidArgument)
		assert.Empty(t, s.Playlists())
	})

	t.Run("Trims Name", func(t *testing.T) {
		s, _ := newTestStore(t)

		p, err := s.CreatePlaylist("  Focus  ", "")
		require.NoError(t, err)
		assert.Equal(t, "Focus", p.Name)
	})
}

func TestDeletePlaylist(t *testing.T) {
	s, kv := newTestStore(t)
	p, err := s.CreatePlaylist("Doomed", "")
	require.NoError(t, err)

	t.Run("Unknown Id Is Skipped", func(t *testing.T) {
		outcome, err := s.DeletePlaylist("missing")
		require.NoError(t, err)
		assert.Equal(t, shared.Skipped, outcome)
		assert.Len(t, s.Playlists(), 1)
	})

	t.Run("Removes And Persists", func(t *testing.T) {
		outcome, err := s.DeletePlaylist(p.ID)
		require.NoError(t, err)
		assert.Equal(t, shared.Applied, outcome)

		_, ok := s.Playlist(p.ID)
		assert.False(t, ok)
		assert.Empty(t, reload(kv).Playlists())
	})
}

func TestAddTrack(t *testing.T) {
	t.Run("First Track Sets Cover", func(t *testing.T) {
		s, _ := newTestStore(t)
		p, _ := s.CreatePlaylist("Covers", "")

		outcome, err := s.AddTrack(p.ID, track(1, "One", "cover-1"))
		require.NoError(t, err)
		assert.Equal(t, shared.Applied, outcome)

		outcome, err = s.AddTrack(p.ID, track(2, "Two", "cover-2"))
		require.NoError(t, err)
		assert.Equal(t, shared.Applied, outcome)

		got, _ := s.Playlist(p.ID)
		assert.Equal(t, "cover-1", got.CoverImage)
		require.Len(t, got.Tracks, 2)
		assert.Equal(t, int64(1), got.Tracks[0].ID)
		assert.Equal(t, int64(2), got.Tracks[1].ID)
	})

	t.Run("Duplicate Is Skipped", func(t *testing.T) {
		s, _ := newTestStore(t)
		p, _ := s.CreatePlaylist("Dupes", "")

		_, err := s.AddTrack(p.ID, track(7, "Seven", "c"))
		require.NoError(t, err)

		outcome, err := s.AddTrack(p.ID, track(7, "Seven again", "c"))
		require.NoError(t, err)
		assert.Equal(t, shared.Skipped, outcome)

		got, _ := s.Playlist(p.ID)
		assert.Len(t, got.Tracks, 1)
		assert.Equal(t, "Seven", got.Tracks[0].Title)
	})

	t.Run("Unknown Playlist Is Skipped", func(t *testing.T) {
		s, _ := newTestStore(t)

		outcome, err := s.AddTrack("missing", track(1, "One", "c"))
		require.NoError(t, err)
		assert.Equal(t, shared.Skipped, outcome)
	})

	t.Run("Re-adding After Emptying Resets Cover", func(t *testing.T) {
		s, _ := newTestStore(t)
		p, _ := s.CreatePlaylist("Cycle", "")

		_, _ = s.AddTrack(p.ID, track(1, "One", "cover-1"))
		_, _ = s.RemoveTrack(p.ID, 1)
		_, _ = s.AddTrack(p.ID, track(2, "Two", "cover-2"))

		got, _ := s.Playlist(p.ID)
		assert.Equal(t, "cover-2", got.CoverImage)
	})
}

func TestRemoveTrack(t *testing.T) {
	s, _ := newTestStore(t)
	p, _ := s.CreatePlaylist("Trim", "")
	_, _ = s.AddTrack(p.ID, track(1, "One", "cover-1"))
	_, _ = s.AddTrack(p.ID, track(2, "Two", "cover-2"))

	t.Run("Absent Track Is Skipped", func(t *testing.T) {
		outcome, err := s.RemoveTrack(p.ID, 99)
		require.NoError(t, err)
		assert.Equal(t, shared.Skipped, outcome)
	})

	t.Run("Unknown Playlist Is Skipped", func(t *testing.T) {
		outcome, err := s.RemoveTrack("missing", 1)
		require.NoError(t, err)
		assert.Equal(t, shared.Skipped, outcome)
	})

	t.Run("Removes Track And Keeps Cover", func(t *testing.T) {
		outcome, err := s.RemoveTrack(p.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, shared.Applied, outcome)

		got, _ := s.Playlist(p.ID)
		require.Len(t, got.Tracks, 1)
		assert.Equal(t, int64(2), got.Tracks[0].ID)
		assert.Equal(t, "cover-1", got.CoverImage)
	})
}

func TestUpdatePlaylist(t *testing.T) {
	s, kv := newTestStore(t)
	p, _ := s.CreatePlaylist("Before", "old description")

	t.Run("Merges Provided Fields", func(t *testing.T) {
		outcome, err := s.UpdatePlaylist(p.ID, PlaylistUpdate{Name: ptr("After")})
		require.NoError(t, err)
		assert.Equal(t, shared.Applied, outcome)

		got, _ := reload(kv).Playlist(p.ID)
		assert.Equal(t, "After", got.Name)
		assert.Equal(t, "old description", got.Description)
		assert.Equal(t, p.CreatedAt, got.CreatedAt)
	})

	t.Run("Sets Cover And Description", func(t *testing.T) {
		_, err := s.UpdatePlaylist(p.ID, PlaylistUpdate{Description: ptr(""), CoverImage: ptr("custom")})
		require.NoError(t, err)

		got, _ := s.Playlist(p.ID)
		assert.Empty(t, got.Description)
		assert.Equal(t, "custom", got.CoverImage)
	})

	t.Run("Rejects Blank Name", func(t *testing.T) {
		_, err := s.UpdatePlaylist(p.ID, PlaylistUpdate{Name: ptr(" ")})
		assert.ErrorIs(t, err, shared.ErrInvalidArgument)

		got, _ := s.Playlist(p.ID)
		assert.Equal(t, "After", got.Name)
	})

	t.Run("Unknown Playlist Is Skipped", func(t *testing.T) {
		outcome, err := s.UpdatePlaylist("missing", PlaylistUpdate{Name: ptr("x")})
		require.NoError(t, err)
		assert.Equal(t, shared.Skipped, outcome)
	})
}

func TestToggleLike(t *testing.T) {
	s, kv := newTestStore(t)
	one := track(1, "One", "c")
	two := track(2, "Two", "c")

	liked, err := s.ToggleLike(one)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.True(t, s.IsLiked(1))

	_, err = s.ToggleLike(two)
	require.NoError(t, err)

	persisted := reload(kv).LikedTracks()
	require.Len(t, persisted, 2)
	assert.Equal(t, int64(1), persisted[0].ID)
	assert.Equal(t, int64(2), persisted[1].ID)

	liked, err = s.ToggleLike(one)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.False(t, s.IsLiked(1))
	assert.True(t, s.IsLiked(2))
	assert.Len(t, reload(kv).LikedTracks(), 1)

	t.Run("Like Then Unlike Restores Collection", func(t *testing.T) {
		before := s.LikedTracks()
		_, _ = s.ToggleLike(track(3, "Three", "c"))
		_, _ = s.ToggleLike(track(3, "Three", "c"))
		assert.Equal(t, before, s.LikedTracks())
	})
}

func TestRoadTrip(t *testing.T) {
	s, kv := newTestStore(t)

	p, err := s.CreatePlaylist("Road Trip", "")
	require.NoError(t, err)

	_, err = s.AddTrack(p.ID, track(11, "Highway", "http://img/11"))
	require.NoError(t, err)
	_, err = s.AddTrack(p.ID, track(12, "Desert", "http://img/12"))
	require.NoError(t, err)
	outcome, err := s.AddTrack(p.ID, track(11, "Highway", "http://img/11"))
	require.NoError(t, err)
	assert.Equal(t, shared.Skipped, outcome)

	_, err = s.RemoveTrack(p.ID, 11)
	require.NoError(t, err)

	got, ok := reload(kv).Playlist(p.ID)
	require.True(t, ok)
	assert.Equal(t, "Road Trip", got.Name)
	require.Len(t, got.Tracks, 1)
	assert.Equal(t, int64(12), got.Tracks[0].ID)
	assert.Equal(t, "http://img/11", got.CoverImage)
}

func TestLoad(t *testing.T) {
	t.Run("Corrupt Collection Starts Empty", func(t *testing.T) {
		kv := repositories.NewMemoryStore(map[string]string{
			PlaylistsKey:   "{{{",
			LikedTracksKey: `[{"id": 5, "title": "Kept"}]`,
		})

		s := reload(kv)
		assert.Empty(t, s.Playlists())
		require.Len(t, s.LikedTracks(), 1)
		assert.True(t, s.IsLiked(5))
	})

	t.Run("Reads Original Storage Format", func(t *testing.T) {
		raw := `[{"id":"1699999999999","name":"Saved","description":"","tracks":[{"id":3,"title":"Three","duration":200,"preview":"http://p/3","artist":{"id":1,"name":"A"},"album":{"id":2,"title":"B","cover_medium":"m"}}],"createdAt":1699999999999,"coverImage":"m"}]`
		kv := repositories.NewMemoryStore(map[string]string{PlaylistsKey: raw})

		playlists := reload(kv).Playlists()
		require.Len(t, playlists, 1)
		assert.Equal(t, "Saved", playlists[0].Name)
		assert.Equal(t, "m", playlists[0].CoverImage)
		require.Len(t, playlists[0].Tracks, 1)
		assert.Equal(t, "http://p/3", playlists[0].Tracks[0].Preview)
	})
}

type failingCollection[T any] struct {
	value T
	err   error
}

func (f *failingCollection[T]) Load() (T, error) { return f.value, nil }
func (f *failingCollection[T]) Save(T) error      { return f.err }

func TestCommitFailure(t *testing.T) {
	boom := errors.New("quota exceeded")
	s := New(Options{
		Playlists: &failingCollection[[]models.Playlist]{err: boom},
		Liked:     &failingCollection[[]models.Track]{err: boom},
	})
	defer s.Close()

	p, err := s.CreatePlaylist("Unsaved", "")
	assert.ErrorIs(t, err, boom)
	assert.Len(t, s.Playlists(), 1, "in-memory mutation is kept")

	_, err = s.AddTrack(p.ID, track(1, "One", "c"))
	assert.ErrorIs(t, err, boom)

	liked, err := s.ToggleLike(track(1, "One", "c"))
	assert.ErrorIs(t, err, boom)
	assert.True(t, liked)
}

func TestCopiesAreIsolated(t *testing.T) {
	s, _ := newTestStore(t)
	p, _ := s.CreatePlaylist("Mine", "")
	_, _ = s.AddTrack(p.ID, track(1, "One", "c"))

	got, _ := s.Playlist(p.ID)
	got.Tracks[0].Title = "mutated"
	got.Name = "mutated"

	again, _ := s.Playlist(p.ID)
	assert.Equal(t, "One", again.Tracks[0].Title)
	assert.Equal(t, "Mine", again.Name)

	_, _ = s.ToggleLike(track(9, "Nine", "c"))
	liked := s.LikedTracks()
	liked[0].Title = "mutated"
	assert.Equal(t, "Nine", s.LikedTracks()[0].Title)
}

func TestSubscribe(t *testing.T) {
	s, _ := newTestStore(t)
	events, cancel := s.Subscribe(8)
	defer cancel()

	p, _ := s.CreatePlaylist("Events", "")
	_, _ = s.AddTrack(p.ID, track(1, "One", "c"))
	_, _ = s.AddTrack(p.ID, track(1, "One", "c")) // skipped, no event
	_, _ = s.ToggleLike(track(1, "One", "c"))

	want := []Event{
		{Kind: PlaylistsChanged, PlaylistID: p.ID},
		{Kind: PlaylistsChanged, PlaylistID: p.ID, TrackID: 1},
		{Kind: LikesChanged, TrackID: 1},
	}
	for _, w := range want {
		select {
		case got := <-events:
			assert.Equal(t, w, got)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %v", w.Kind)
		}
	}

	select {
	case extra := <-events:
		t.Errorf("unexpected event %+v", extra)
	default:
	}

	assert.Equal(t, "playlists_changed", PlaylistsChanged.String())
	assert.Equal(t, "likes_changed", LikesChanged.String())
}

func TestConcurrentMutations(t *testing.T) {
	s, kv := newTestStore(t)
	p, _ := s.CreatePlaylist("Shared", "")

	var wg sync.WaitGroup
	for i := int64(1); i <= 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, _ = s.AddTrack(p.ID, track(id, "t", "c"))
			_, _ = s.ToggleLike(track(id, "t", "c"))
		}(i)
	}
	wg.Wait()

	got, _ := reload(kv).Playlist(p.ID)
	assert.Len(t, got.Tracks, 20)
	assert.Len(t, reload(kv).LikedTracks(), 20)
}
