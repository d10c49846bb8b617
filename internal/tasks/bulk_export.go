package tasks

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/deezr/internal/formatter"
	"github.com/desertthunder/deezr/internal/models"
	"github.com/desertthunder/deezr/internal/shared"
	"golang.org/x/time/rate"
)

// ManifestFile is written to the output directory after every bulk export.
const ManifestFile = "export_manifest.json"

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     string       // Export format: json, csv, markdown, txt, yaml
	OutputDir  string       // Base output directory (default: deezr_export_{epoch})
	NumWorkers int          // Concurrent workers (default: 5, max: 10)
	RateLimit  float64      // Cover downloads per second (default: 5)
	Covers     bool         // Download cover images for markdown exports
	HTTPClient *http.Client // Client for cover downloads
}

// PlaylistExportResult is the outcome of exporting one playlist.
type PlaylistExportResult struct {
	PlaylistID   string
	PlaylistName string
	Success      bool
	Files        []string
	Error        error
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []PlaylistExportResult
}

type manifestEntry struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Success bool     `json:"success"`
	Files   []string `json:"files,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type manifest struct {
	ExportedAt string          `json:"exported_at"`
	Format     string          `json:"format"`
	Total      int             `json:"total"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Playlists  []manifestEntry `json:"playlists"`
}

// BulkExport exports playlists concurrently and writes a manifest summarizing the results.
//
// Failures are per playlist; the returned error is reserved for setup problems and the manifest.
func BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	playlists []models.Playlist,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	format, err := formatter.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	opts.Format = format

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("deezr_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalPlaylists:  len(playlists),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, len(playlists)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan models.Playlist, len(playlists))
	results := make(chan PlaylistExportResult, len(playlists))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go exportWorker(ctx, &wg, limiter, jobs, results, opts)
	}

	for i, pl := range playlists {
		sendProgress(prog, exportingPlaylistUpdate(i+1, len(playlists), pl.Name))
		jobs <- pl
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, len(playlists), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(completed, len(playlists), res.PlaylistName, res.Error))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, ManifestFile)
	if err := writeManifest(result, opts.Format, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// exportWorker drains jobs until the channel closes. After cancellation it reports remaining jobs as failed.
func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan models.Playlist,
	results chan<- PlaylistExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for pl := range jobs {
		if err := ctx.Err(); err != nil {
			results <- PlaylistExportResult{PlaylistID: pl.ID, PlaylistName: pl.Name, Error: err}
			continue
		}
		results <- exportSinglePlaylist(ctx, limiter, pl, opts)
	}
}

// exportSinglePlaylist exports a single playlist to the configured format.
func exportSinglePlaylist(ctx context.Context, limiter *rate.Limiter, pl models.Playlist, opts BulkExportOpts) PlaylistExportResult {
	result := PlaylistExportResult{
		PlaylistID:   pl.ID,
		PlaylistName: pl.Name,
		Files:        []string{},
	}

	switch opts.Format {
	case formatter.FormatCSV:
		csvRes, err := formatter.WriteCSVExport(pl, filepath.Join(opts.OutputDir, pl.ID))
		if err != nil {
			result.Error = fmt.Errorf("CSV export failed: %w", err)
			return result
		}
		result.Files = []string{csvRes.TracksFile, csvRes.MetadataFile}

	case formatter.FormatMarkdown:
		var cover []byte
		if opts.Covers && pl.CoverImage != "" && limiter.Wait(ctx) == nil {
			// A missing cover only drops the image from the export.
			cover, _ = formatter.DownloadImage(ctx, opts.HTTPClient, pl.CoverImage)
		}

		mdRes, err := formatter.WriteMarkdownExport(pl, filepath.Join(opts.OutputDir, pl.ID), cover)
		if err != nil {
			result.Error = fmt.Errorf("markdown export failed: %w", err)
			return result
		}
		result.Files = mdRes.Files

	case formatter.FormatText:
		path, err := formatter.WriteTextExport(pl, filepath.Join(opts.OutputDir, pl.ID+"_tracks.txt"))
		if err != nil {
			result.Error = fmt.Errorf("text export failed: %w", err)
			return result
		}
		result.Files = []string{path}

	case formatter.FormatYAML:
		path, err := formatter.WriteYAMLExport(pl, filepath.Join(opts.OutputDir, pl.ID+".yaml"))
		if err != nil {
			result.Error = fmt.Errorf("YAML export failed: %w", err)
			return result
		}
		result.Files = []string{path}

	default:
		path, err := formatter.WriteJSONExport(pl, filepath.Join(opts.OutputDir, pl.ID+".json"))
		if err != nil {
			result.Error = err
			return result
		}
		result.Files = []string{path}
	}

	result.Success = true
	return result
}

func writeManifest(result *BulkExportResult, format, path string) error {
	m := manifest{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Format:     format,
		Total:      result.TotalPlaylists,
		Successful: result.SuccessfulExports,
		Failed:     result.FailedExports,
		Playlists:  make([]manifestEntry, 0, len(result.Results)),
	}
	for _, r := range result.Results {
		entry := manifestEntry{ID: r.PlaylistID, Name: r.PlaylistName, Success: r.Success, Files: r.Files}
		if r.Error != nil {
			entry.Error = r.Error.Error()
		}
		m.Playlists = append(m.Playlists, entry)
	}

	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
