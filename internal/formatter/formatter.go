// package formatter renders local playlists to export formats (CSV, Markdown, plain text, YAML, JSON)
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/deezr/internal/models"
	"github.com/desertthunder/deezr/internal/shared"
	"gopkg.in/yaml.v3"
)

// Export formats
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
	FormatYAML     = "yaml"
)

// Formats lists every supported export format.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText, FormatYAML}

// ParseFormat normalizes a user-supplied format name.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatText, "text":
		return FormatText, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q (expected one of %s)", shared.ErrInvalidFlag, s, strings.Join(Formats, ", "))
	}
}

// ExportToCSV renders tracks with columns: ID, Title, Artist, Album, Duration, Preview
func ExportToCSV(p models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration", "Preview"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range p.Tracks {
		record := []string{
			strconv.FormatInt(track.ID, 10),
			track.Title,
			track.Artist.Name,
			track.Album.Title,
			models.FormatDuration(track.Duration),
			track.Preview,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a playlist as Markdown, linking imageFilename as the cover when set
func ExportToMarkdown(p models.Playlist, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", p.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if p.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", p.Description)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(p.Tracks))
	fmt.Fprintf(&buf, "**Duration**: %s\n", models.FormatDuration(p.TotalDuration()))
	if p.CreatedAt > 0 {
		fmt.Fprintf(&buf, "**Created**: %s\n", time.UnixMilli(p.CreatedAt).UTC().Format("2006-01-02"))
	}
	buf.WriteString("\n## Tracks\n\n")

	for i, track := range p.Tracks {
		albumPart := ""
		if track.Album.Title != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album.Title)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.Artist.Name, track.Title, albumPart, models.FormatDuration(track.Duration))
	}

	return buf.Bytes(), nil
}

// ExportToText renders a playlist as a numbered plain text list
func ExportToText(p models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(p.Tracks))

	for i, track := range p.Tracks {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, track.String())
	}

	return buf.Bytes(), nil
}

// ExportToYAML renders the full playlist, tracks included, as YAML
func ExportToYAML(p models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// Metadata is the track-less summary written next to CSV exports.
type Metadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
	Duration    int    `json:"duration"`
	CreatedAt   int64  `json:"created_at"`
	CoverImage  string `json:"cover_image,omitempty"`
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(p models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(Metadata{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		TrackCount:  len(p.Tracks),
		Duration:    p.TotalDuration(),
		CreatedAt:   p.CreatedAt,
		CoverImage:  p.CoverImage,
	}, true)
}

// DownloadImage fetches an image and returns the raw bytes. A nil client uses a 30 second timeout.
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport writes {base}_tracks.csv and {base}_metadata.json. The base defaults to the playlist ID.
func WriteCSVExport(p models.Playlist, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = p.ID
	}

	csvData, err := ExportToCSV(p)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(p)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
	// CoverError is set when the cover could not be saved; the Markdown is still written.
	CoverError error
}

// WriteMarkdownExport writes {dir}/README.md and, when cover holds image bytes, {dir}/cover.jpg.
//
// The directory defaults to the playlist ID.
func WriteMarkdownExport(p models.Playlist, outputDir string, cover []byte) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = p.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if len(cover) > 0 {
		coverImagePath := filepath.Join(outputDir, "cover.jpg")
		if err := os.WriteFile(coverImagePath, cover, 0644); err != nil {
			result.CoverError = fmt.Errorf("failed to save cover image: %w", err)
		} else {
			coverImageFilename = "cover.jpg"
			result.CoverImage = coverImagePath
			result.Files = append(result.Files, coverImagePath)
		}
	}

	mdData, err := ExportToMarkdown(p, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}

// WriteTextExport writes the plain text rendering; the path defaults to {playlist.ID}_tracks.txt
func WriteTextExport(p models.Playlist, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.txt", p.ID)
	}

	textData, err := ExportToText(p)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteYAMLExport writes the YAML rendering; the path defaults to {playlist.ID}.yaml
func WriteYAMLExport(p models.Playlist, path string) (string, error) {
	if path == "" {
		path = p.ID + ".yaml"
	}

	data, err := ExportToYAML(p)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	return path, nil
}

// WriteJSONExport writes the indented JSON rendering; the path defaults to {playlist.ID}.json
func WriteJSONExport(p models.Playlist, path string) (string, error) {
	if path == "" {
		path = p.ID + ".json"
	}

	data, err := shared.MarshalJSON(p, true)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}

	return path, nil
}
