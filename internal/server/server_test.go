package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/deezr/internal/shared"
)

func newUpstream(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestDeezerProxy(t *testing.T) {
	var gotPath, gotQuery, gotAgent string
	upstream := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotAgent = r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/chart/0/tracks":
			w.Write([]byte(`{"data":[{"id":1}]}`))
		case "/broken":
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("bad gateway"))
		case "/html":
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	})

	proxy := NewDeezerProxy(upstream.URL, upstream.Client(), shared.DiscardLogger())
	router := NewProxyRouter(proxy, shared.DiscardLogger())

	t.Run("Forwards Endpoint", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/deezer?endpoint=%2Fchart%2F0%2Ftracks%3Flimit%3D20", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotPath != "/chart/0/tracks" || gotQuery != "limit=20" {
			t.Errorf("unexpected upstream request %s?%s", gotPath, gotQuery)
		}
		if gotAgent != "Mozilla/5.0" {
			t.Errorf("expected browser user agent, got %q", gotAgent)
		}
		if rec.Body.String() != `{"data":[{"id":1}]}` {
			t.Errorf("body not relayed verbatim: %s", rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
	})

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantError  string
		wantDetail string
	}{
		{
			name:       "Missing Endpoint",
			target:     "/api/deezer",
			wantStatus: http.StatusBadRequest,
			wantError:  "Endpoint is required",
		},
		{
			name:       "Relative Endpoint",
			target:     "/api/deezer?endpoint=@evil.example/x",
			wantStatus: http.StatusBadRequest,
			wantError:  "Endpoint must be an absolute path",
		},
		{
			name:       "Upstream Failure",
			target:     "/api/deezer?endpoint=/broken",
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to fetch from Deezer API",
			wantDetail: "upstream status 502: bad gateway",
		},
		{
			name:       "Upstream Not JSON",
			target:     "/api/deezer?endpoint=/html",
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to fetch from Deezer API",
			wantDetail: "invalid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			body := decodeBody(t, rec)
			if body["error"] != tt.wantError {
				t.Errorf("expected error %q, got %v", tt.wantError, body["error"])
			}
			if tt.wantDetail != "" && !strings.Contains(body["details"].(string), tt.wantDetail) {
				t.Errorf("expected details to contain %q, got %v", tt.wantDetail, body["details"])
			}
		})
	}

	t.Run("Wrong Method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/deezer?endpoint=/x", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("Default Upstream", func(t *testing.T) {
		p := NewDeezerProxy("", nil, shared.DiscardLogger())
		if p.upstream != DefaultUpstream {
			t.Errorf("expected %s, got %s", DefaultUpstream, p.upstream)
		}
	})
}

func TestHealth(t *testing.T) {
	router := NewProxyRouter(NewDeezerProxy("", nil, shared.DiscardLogger()), shared.DiscardLogger())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "ok" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestMiddleware(t *testing.T) {
	t.Run("Request ID Is Assigned", func(t *testing.T) {
		var seen string
		h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestIDFrom(r.Context())
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
			t.Errorf("expected generated id on context and response, got %q / %q", seen, rec.Header().Get(RequestIDHeader))
		}
	})

	t.Run("Request ID Is Propagated", func(t *testing.T) {
		h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
			t.Errorf("expected propagated id, got %q", got)
		}
	})

	t.Run("Logging Records Status", func(t *testing.T) {
		var buf bytes.Buffer
		logger := shared.NewLogger(&buf)
		h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

		out := buf.String()
		if !strings.Contains(out, "status=418") || !strings.Contains(out, "path=/brew") {
			t.Errorf("unexpected log line: %s", out)
		}
	})

	t.Run("Recover Returns 500", func(t *testing.T) {
		h := Recover(shared.DiscardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("Order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("first"), mark("second"))
		router.Handle(http.MethodGet, "/x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})
}

func TestServe(t *testing.T) {
	t.Run("Shuts Down On Cancel", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to reserve port: %v", err)
		}
		addr := ln.Addr().String()
		ln.Close()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- Serve(ctx, addr, Health(), shared.DiscardLogger()) }()

		deadline := time.Now().Add(2 * time.Second)
		for {
			resp, err := http.Get("http://" + addr + "/")
			if err == nil {
				resp.Body.Close()
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("server never came up: %v", err)
			}
			time.Sleep(20 * time.Millisecond)
		}

		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("expected clean shutdown, got %v", err)
			}
		case <-time.After(ShutdownTimeout + time.Second):
			t.Fatal("server did not shut down")
		}
	})

	t.Run("Listen Error", func(t *testing.T) {
		err := Serve(context.Background(), "256.0.0.1:bad", Health(), shared.DiscardLogger())
		if err == nil {
			t.Error("expected listen error")
		}
	})
}
