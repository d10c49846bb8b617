// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/deezr/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockCatalog is a test double for [catalog.Catalog]
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) SearchTracks(ctx context.Context, query string) ([]models.Track, error) {
	args := m.Called(ctx, query)
	return sliceArg[models.Track](args, 0), args.Error(1)
}

func (m *MockCatalog) SearchAlbums(ctx context.Context, query string) ([]models.Album, error) {
	args := m.Called(ctx, query)
	return sliceArg[models.Album](args, 0), args.Error(1)
}

func (m *MockCatalog) SearchArtists(ctx context.Context, query string) ([]models.Artist, error) {
	args := m.Called(ctx, query)
	return sliceArg[models.Artist](args, 0), args.Error(1)
}

func (m *MockCatalog) SearchPlaylists(ctx context.Context, query string) ([]models.CatalogPlaylist, error) {
	args := m.Called(ctx, query)
	return sliceArg[models.CatalogPlaylist](args, 0), args.Error(1)
}

func (m *MockCatalog) Album(ctx context.Context, id int64) (*models.Album, error) {
	args := m.Called(ctx, id)
	album, _ := args.Get(0).(*models.Album)
	return album, args.Error(1)
}

func (m *MockCatalog) Artist(ctx context.Context, id int64) (*models.Artist, error) {
	args := m.Called(ctx, id)
	artist, _ := args.Get(0).(*models.Artist)
	return artist, args.Error(1)
}

func (m *MockCatalog) ArtistTopTracks(ctx context.Context, id int64, limit int) ([]models.Track, error) {
	args := m.Called(ctx, id, limit)
	return sliceArg[models.Track](args, 0), args.Error(1)
}

func (m *MockCatalog) ArtistAlbums(ctx context.Context, id int64) ([]models.Album, error) {
	args := m.Called(ctx, id)
	return sliceArg[models.Album](args, 0), args.Error(1)
}

func (m *MockCatalog) Playlist(ctx context.Context, id int64) (*models.CatalogPlaylist, error) {
	args := m.Called(ctx, id)
	playlist, _ := args.Get(0).(*models.CatalogPlaylist)
	return playlist, args.Error(1)
}

func (m *MockCatalog) ChartTracks(ctx context.Context, limit int) ([]models.Track, error) {
	args := m.Called(ctx, limit)
	return sliceArg[models.Track](args, 0), args.Error(1)
}

func (m *MockCatalog) ChartAlbums(ctx context.Context, limit int) ([]models.Album, error) {
	args := m.Called(ctx, limit)
	return sliceArg[models.Album](args, 0), args.Error(1)
}

func sliceArg[T any](args mock.Arguments, i int) []T {
	v, _ := args.Get(i).([]T)
	return v
}

// Track builds a catalog track with a preview URL and album cover.
func Track(id int64, title, artist string) models.Track {
	return models.Track{
		ID:       id,
		Title:    title,
		Duration: 200,
		Preview:  "https://cdn.example/preview/" + title + ".mp3",
		Artist:   models.TrackArtist{ID: id * 10, Name: artist},
		Album:    models.TrackAlbum{ID: id * 100, Title: title + " (Single)", CoverMedium: "https://cdn.example/cover/" + title},
	}
}

// SamplePlaylist is a two-track local playlist fixture.
func SamplePlaylist() models.Playlist {
	tracks := []models.Track{
		Track(1, "Song One", "Artist One"),
		Track(2, "Song Two", "Artist Two"),
	}
	tracks[1].Duration = 245
	return models.Playlist{
		ID:          "1700000000000",
		Name:        "Test Playlist",
		Description: "A test playlist",
		Tracks:      tracks,
		CreatedAt:   1700000000000,
		CoverImage:  tracks[0].Album.CoverMedium,
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
