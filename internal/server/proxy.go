package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// DefaultUpstream is the catalog API the proxy forwards to.
	DefaultUpstream = "https://api.deezer.com"
	// UpstreamTimeout bounds each forwarded request.
	UpstreamTimeout = 10 * time.Second
	userAgent       = "Mozilla/5.0"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DeezerProxy forwards GET /api/deezer?endpoint=/path to the catalog API and relays the JSON body.
//
// The endpoint must be an absolute path; it is appended to the upstream root as-is, query included.
type DeezerProxy struct {
	upstream string
	client   *http.Client
	logger   *log.Logger
}

// NewDeezerProxy creates a proxy for upstream (defaults to [DefaultUpstream]).
func NewDeezerProxy(upstream string, client *http.Client, logger *log.Logger) *DeezerProxy {
	if upstream == "" {
		upstream = DefaultUpstream
	}
	if client == nil {
		client = &http.Client{}
	}
	return &DeezerProxy{
		upstream: strings.TrimRight(upstream, "/"),
		client:   client,
		logger:   logger,
	}
}

// Routes implements [Handler].
func (p *DeezerProxy) Routes() []string {
	return []string{"GET /api/deezer"}
}

func (p *DeezerProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Query().Get("endpoint")
	if endpoint == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Endpoint is required"})
		return
	}
	if !strings.HasPrefix(endpoint, "/") {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Endpoint must be an absolute path"})
		return
	}

	body, err := p.fetch(r.Context(), endpoint)
	if err != nil {
		p.logger.Error("catalog API error", "endpoint", endpoint, "err", err, "request_id", RequestIDFrom(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:   "Failed to fetch from Deezer API",
			Details: err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (p *DeezerProxy) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, UpstreamTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.upstream+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("upstream returned invalid JSON")
	}
	return body, nil
}

// Health reports liveness.
func Health() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
