package formatter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/deezr/internal/models"
	"github.com/desertthunder/deezr/internal/shared"
	th "github.com/desertthunder/deezr/internal/testing"
	"gopkg.in/yaml.v3"
)

func TestExporters(t *testing.T) {
	playlist := th.SamplePlaylist()

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(playlist)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "ID,Title,Artist,Album,Duration,Preview\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "1,Song One,Artist One,Song One (Single),3:20,") {
			t.Errorf("CSV missing first track row, got: %s", output)
		}
		if !strings.Contains(output, "4:05") {
			t.Errorf("CSV missing formatted duration of second track")
		}
		if lines := strings.Count(output, "\n"); lines != 3 {
			t.Errorf("expected 3 lines, got %d", lines)
		}
	})

	t.Run("ExportToCSV quotes commas", func(t *testing.T) {
		p := models.Playlist{Tracks: []models.Track{{ID: 9, Title: "Harder, Better"}}}
		data, err := ExportToCSV(p)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}
		if !strings.Contains(string(data), `"Harder, Better"`) {
			t.Errorf("expected quoted title, got: %s", data)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("without cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(playlist, "")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}

			output := string(data)
			for _, want := range []string{
				"# Test Playlist",
				"**Description**: A test playlist",
				"**Tracks**: 2",
				"**Duration**: 7:25",
				"**Created**: 2023-11-14",
				"1. Artist One - Song One (Song One (Single)) [3:20]",
				"2. Artist Two - Song Two",
			} {
				if !strings.Contains(output, want) {
					t.Errorf("Markdown missing %q, got:\n%s", want, output)
				}
			}
			if strings.Contains(output, "![Cover]") {
				t.Error("Markdown should not link a cover")
			}
		})

		t.Run("with cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(playlist, "cover.jpg")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}
			if !strings.Contains(string(data), "![Cover](cover.jpg)") {
				t.Errorf("Markdown missing cover link")
			}
		})

		t.Run("empty playlist", func(t *testing.T) {
			data, err := ExportToMarkdown(models.Playlist{Name: "Empty"}, "")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}
			output := string(data)
			if !strings.Contains(output, "**Tracks**: 0") || strings.Contains(output, "**Created**") {
				t.Errorf("unexpected Markdown for empty playlist:\n%s", output)
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(playlist)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Playlist: Test Playlist\n") {
			t.Errorf("Text missing playlist name")
		}
		if !strings.Contains(output, "Tracks: 2\n\n") {
			t.Errorf("Text missing track count")
		}
		if !strings.Contains(output, "1. Artist One - Song One\n2. Artist Two - Song Two\n") {
			t.Errorf("Text missing numbered tracks, got:\n%s", output)
		}
	})

	t.Run("ExportToYAML", func(t *testing.T) {
		data, err := ExportToYAML(playlist)
		if err != nil {
			t.Fatalf("ExportToYAML failed: %v", err)
		}

		var decoded models.Playlist
		if err := yaml.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("YAML did not parse: %v", err)
		}
		if decoded.Name != playlist.Name || len(decoded.Tracks) != 2 {
			t.Errorf("unexpected decoded playlist: %+v", decoded)
		}
		if decoded.Tracks[1].Artist.Name != "Artist Two" {
			t.Errorf("nested artist lost, got %+v", decoded.Tracks[1].Artist)
		}
		if !strings.Contains(string(data), "created_at: 1700000000000") {
			t.Errorf("YAML should use snake_case keys, got:\n%s", data)
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(playlist)
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}

		var meta map[string]any
		if err := json.Unmarshal(data, &meta); err != nil {
			t.Fatalf("metadata is not JSON: %v", err)
		}
		if meta["track_count"] != float64(2) || meta["duration"] != float64(445) {
			t.Errorf("unexpected metadata: %v", meta)
		}
		if _, ok := meta["tracks"]; ok {
			t.Error("metadata should not include tracks")
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: FormatJSON},
		{in: "JSON", want: FormatJSON},
		{in: "csv", want: FormatCSV},
		{in: "md", want: FormatMarkdown},
		{in: " markdown ", want: FormatMarkdown},
		{in: "text", want: FormatText},
		{in: "yml", want: FormatYAML},
		{in: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidFlag) {
					t.Errorf("expected ErrInvalidFlag, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestDownloadImage(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyURL", func(t *testing.T) {
		if _, err := DownloadImage(ctx, nil, ""); err == nil {
			t.Error("DownloadImage with empty URL should return error")
		}
	})

	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("jpegbytes"))
		}))
		defer srv.Close()

		data, err := DownloadImage(ctx, srv.Client(), srv.URL)
		if err != nil {
			t.Fatalf("DownloadImage failed: %v", err)
		}
		if string(data) != "jpegbytes" {
			t.Errorf("unexpected data %q", data)
		}
	})

	t.Run("BadStatus", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		_, err := DownloadImage(ctx, srv.Client(), srv.URL)
		if err == nil || !strings.Contains(err.Error(), "status 404") {
			t.Errorf("expected status error, got %v", err)
		}
	})

	t.Run("TransportError", func(t *testing.T) {
		client := &http.Client{Transport: th.NewMockRoundTripper(nil, errors.New("dial failed"))}
		if _, err := DownloadImage(ctx, client, "http://cdn.invalid/x.jpg"); err == nil {
			t.Error("expected transport error")
		}
	})

	t.Run("ReadError", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(&th.FCloser{})}
		client := &http.Client{Transport: th.NewMockRoundTripper(resp, nil)}
		_, err := DownloadImage(ctx, client, "http://cdn.invalid/x.jpg")
		if err == nil || !strings.Contains(err.Error(), "failed to read image data") {
			t.Errorf("expected read error, got %v", err)
		}
	})
}

func TestWriters(t *testing.T) {
	playlist := th.SamplePlaylist()

	t.Run("WriteCSVExport", func(t *testing.T) {
		t.Run("WithDefaultPath", func(t *testing.T) {
			t.Chdir(t.TempDir())

			result, err := WriteCSVExport(playlist, "")
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}
			if result.TracksFile != "1700000000000_tracks.csv" {
				t.Errorf("unexpected tracks file %s", result.TracksFile)
			}
			if result.MetadataFile != "1700000000000_metadata.json" {
				t.Errorf("unexpected metadata file %s", result.MetadataFile)
			}

			th.AssertFileExists(t, result.TracksFile)
			th.AssertFileExists(t, result.MetadataFile)

			if !strings.Contains(th.MustReadFile(t, result.TracksFile), "Song Two") {
				t.Error("CSV file missing track")
			}
			if !strings.Contains(th.MustReadFile(t, result.MetadataFile), `"name": "Test Playlist"`) {
				t.Error("metadata file missing name")
			}
		})

		t.Run("WithCustomPath", func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "custom_export")
			result, err := WriteCSVExport(playlist, base)
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}
			th.AssertFileExists(t, base+"_tracks.csv")
			th.AssertFileExists(t, result.MetadataFile)
		})

		t.Run("MissingDirectory", func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "nope", "export")
			if _, err := WriteCSVExport(playlist, base); err == nil {
				t.Error("expected write error")
			}
		})
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		t.Run("WithCover", func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "road-trip")

			result, err := WriteMarkdownExport(playlist, dir, []byte("jpeg"))
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}

			th.AssertDirExists(t, dir)
			th.AssertFileExists(t, filepath.Join(dir, "README.md"))
			th.AssertFileExists(t, filepath.Join(dir, "cover.jpg"))

			if len(result.Files) != 2 || result.CoverError != nil {
				t.Errorf("unexpected result %+v", result)
			}
			if !strings.Contains(th.MustReadFile(t, filepath.Join(dir, "README.md")), "![Cover](cover.jpg)") {
				t.Error("README missing cover link")
			}
		})

		t.Run("WithoutCover", func(t *testing.T) {
			t.Chdir(t.TempDir())

			result, err := WriteMarkdownExport(playlist, "", nil)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if result.Directory != playlist.ID || result.CoverImage != "" {
				t.Errorf("unexpected result %+v", result)
			}
			th.AssertFileExists(t, filepath.Join(playlist.ID, "README.md"))
		})
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		t.Chdir(t.TempDir())

		path, err := WriteTextExport(playlist, "")
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if path != "1700000000000_tracks.txt" {
			t.Errorf("unexpected path %s", path)
		}
		th.AssertFileExists(t, path)
	})

	t.Run("WriteYAMLExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "playlist.yaml")
		got, err := WriteYAMLExport(playlist, path)
		if err != nil {
			t.Fatalf("WriteYAMLExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
		if !strings.Contains(th.MustReadFile(t, path), "name: Test Playlist") {
			t.Error("YAML file missing name")
		}
	})

	t.Run("WriteJSONExport", func(t *testing.T) {
		t.Chdir(t.TempDir())

		path, err := WriteJSONExport(playlist, "")
		if err != nil {
			t.Fatalf("WriteJSONExport failed: %v", err)
		}

		var decoded models.Playlist
		if err := json.Unmarshal([]byte(th.MustReadFile(t, path)), &decoded); err != nil {
			t.Fatalf("JSON did not parse: %v", err)
		}
		if decoded.ID != playlist.ID || len(decoded.Tracks) != 2 {
			t.Errorf("unexpected decoded playlist %+v", decoded)
		}
	})
}
