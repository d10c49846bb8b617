// Package catalog is a read-only client for the Deezer catalog API.
//
// Requests go either straight to the API or through the `deezr serve` proxy, which takes the API
// path in its endpoint query parameter. Every request waits on a shared rate limiter first.
//
// Deezer reports most failures inside a 200 response body as {"error": {...}}; those are surfaced
// as [shared.ErrAPIRequest] (or [shared.ErrServiceUnavailable] when the quota is exhausted), the same
// as non-2xx statuses.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/deezr/internal/models"
	"github.com/desertthunder/deezr/internal/shared"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.deezer.com"
	// ProxyRoute is the proxy path that forwards to the catalog API.
	ProxyRoute = "/api/deezer"

	defaultTopTracks = 10
	defaultChartSize = 20

	// Deezer error code for an exhausted request quota.
	quotaExceeded = 4
)

// Catalog is the lookup surface the player and importer consume.
type Catalog interface {
	SearchTracks(ctx context.Context, query string) ([]models.Track, error)
	SearchAlbums(ctx context.Context, query string) ([]models.Album, error)
	SearchArtists(ctx context.Context, query string) ([]models.Artist, error)
	SearchPlaylists(ctx context.Context, query string) ([]models.CatalogPlaylist, error)
	Album(ctx context.Context, id int64) (*models.Album, error)
	Artist(ctx context.Context, id int64) (*models.Artist, error)
	ArtistTopTracks(ctx context.Context, id int64, limit int) ([]models.Track, error)
	ArtistAlbums(ctx context.Context, id int64) ([]models.Album, error)
	Playlist(ctx context.Context, id int64) (*models.CatalogPlaylist, error)
	ChartTracks(ctx context.Context, limit int) ([]models.Track, error)
	ChartAlbums(ctx context.Context, limit int) ([]models.Album, error)
}

// Options configures a [Client].
type Options struct {
	// BaseURL is the API root used when ProxyURL is empty.
	BaseURL string
	// ProxyURL is the root of a running proxy server.
	ProxyURL   string
	HTTPClient *http.Client
	// RatePerSecond of zero disables rate limiting.
	RatePerSecond float64
	Burst         int
	Logger        *log.Logger
}

// Client implements [Catalog] over HTTP.
type Client struct {
	baseURL    string
	proxyURL   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), max(opts.Burst, 1))
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		proxyURL:   strings.TrimRight(opts.ProxyURL, "/"),
		httpClient: opts.HTTPClient,
		limiter:    limiter,
		logger:     opts.Logger,
	}
}

// NewFromConfig creates a Client from the [catalog] config section.
func NewFromConfig(cfg shared.CatalogConfig, logger *log.Logger) *Client {
	return New(Options{
		BaseURL:       cfg.BaseURL,
		ProxyURL:      cfg.ProxyURL,
		HTTPClient:    &http.Client{Timeout: cfg.Timeout()},
		RatePerSecond: cfg.RatePerSecond,
		Burst:         cfg.Burst,
		Logger:        logger,
	})
}

// URL returns the request URL for an API endpoint such as "/album/302127".
func (c *Client) URL(endpoint string) string {
	if c.proxyURL != "" {
		return c.proxyURL + ProxyRoute + "?endpoint=" + url.QueryEscape(endpoint)
	}
	return c.baseURL + endpoint
}

// apiError is the error object the catalog embeds in response bodies.
type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e apiError) err() error {
	if e.Code == quotaExceeded {
		return fmt.Errorf("%w: %s (code %d)", shared.ErrServiceUnavailable, e.Message, e.Code)
	}
	return fmt.Errorf("%w: %s: %s (code %d)", shared.ErrAPIRequest, e.Type, e.Message, e.Code)
}

// decodeError extracts an error from a body shaped {"error": {...}} or, from the proxy, {"error": "..."}.
func decodeError(body []byte) error {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Details string          `json:"details"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 || string(envelope.Error) == "null" {
		return nil
	}

	var upstream apiError
	if err := json.Unmarshal(envelope.Error, &upstream); err == nil {
		return upstream.err()
	}

	var message string
	if err := json.Unmarshal(envelope.Error, &message); err == nil {
		if envelope.Details != "" {
			message += ": " + envelope.Details
		}
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, message)
	}
	return fmt.Errorf("%w: unrecognized error %s", shared.ErrAPIRequest, envelope.Error)
}

// get fetches endpoint and decodes the body into out.
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}

	reqURL := c.URL(endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", shared.ErrTimeout, endpoint)
		}
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("catalog request", "endpoint", endpoint, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if err := decodeError(body); err != nil {
			return fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := decodeError(body); err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// list fetches a {"data": [...]} envelope. A missing or null data field yields an empty slice.
func list[T any](ctx context.Context, c *Client, endpoint string) ([]T, error) {
	var envelope struct {
		Data []T `json:"data"`
	}
	if err := c.get(ctx, endpoint, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data == nil {
		return []T{}, nil
	}
	return envelope.Data, nil
}

func search(query string) string {
	return "?q=" + url.QueryEscape(query)
}

func (c *Client) SearchTracks(ctx context.Context, query string) ([]models.Track, error) {
	return list[models.Track](ctx, c, "/search"+search(query))
}

func (c *Client) SearchAlbums(ctx context.Context, query string) ([]models.Album, error) {
	return list[models.Album](ctx, c, "/search/album"+search(query))
}

func (c *Client) SearchArtists(ctx context.Context, query string) ([]models.Artist, error) {
	return list[models.Artist](ctx, c, "/search/artist"+search(query))
}

func (c *Client) SearchPlaylists(ctx context.Context, query string) ([]models.CatalogPlaylist, error) {
	return list[models.CatalogPlaylist](ctx, c, "/search/playlist"+search(query))
}

// Album fetches an album with its embedded track list.
func (c *Client) Album(ctx context.Context, id int64) (*models.Album, error) {
	var album models.Album
	if err := c.get(ctx, fmt.Sprintf("/album/%d", id), &album); err != nil {
		return nil, err
	}
	return &album, nil
}

func (c *Client) Artist(ctx context.Context, id int64) (*models.Artist, error) {
	var artist models.Artist
	if err := c.get(ctx, fmt.Sprintf("/artist/%d", id), &artist); err != nil {
		return nil, err
	}
	return &artist, nil
}

// ArtistTopTracks returns the artist's most popular tracks; limit <= 0 selects 10.
func (c *Client) ArtistTopTracks(ctx context.Context, id int64, limit int) ([]models.Track, error) {
	if limit <= 0 {
		limit = defaultTopTracks
	}
	return list[models.Track](ctx, c, fmt.Sprintf("/artist/%d/top?limit=%d", id, limit))
}

func (c *Client) ArtistAlbums(ctx context.Context, id int64) ([]models.Album, error) {
	return list[models.Album](ctx, c, fmt.Sprintf("/artist/%d/albums", id))
}

// Playlist fetches a catalog playlist with its embedded track list.
func (c *Client) Playlist(ctx context.Context, id int64) (*models.CatalogPlaylist, error) {
	var playlist models.CatalogPlaylist
	if err := c.get(ctx, fmt.Sprintf("/playlist/%d", id), &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// ChartTracks returns the global top tracks; limit <= 0 selects 20.
func (c *Client) ChartTracks(ctx context.Context, limit int) ([]models.Track, error) {
	if limit <= 0 {
		limit = defaultChartSize
	}
	return list[models.Track](ctx, c, fmt.Sprintf("/chart/0/tracks?limit=%d", limit))
}

// ChartAlbums returns the global top albums; limit <= 0 selects 20.
func (c *Client) ChartAlbums(ctx context.Context, limit int) ([]models.Album, error) {
	if limit <= 0 {
		limit = defaultChartSize
	}
	return list[models.Album](ctx, c, fmt.Sprintf("/chart/0/albums?limit=%d", limit))
}
