// package formatter renders movie catalogue data as JSON, CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/reelgate/internal/models"
	"github.com/desertthunder/reelgate/internal/shared"
)

// Supported output formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists every supported output format.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// ExportToCSV converts movies to CSV with columns: ID, Title, Category, Year, Rating, PlayURL
func ExportToCSV(movies []models.Movie) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Category", "Year", "Rating", "PlayURL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, m := range movies {
		record := []string{
			strconv.FormatInt(m.ID, 10),
			m.Title,
			m.Category,
			yearString(m.Year),
			strconv.FormatFloat(m.Rating, 'f', 1, 64),
			m.PlayURL,
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

// ExportToMarkdown renders movies as a Markdown document.
//
// covers maps movie IDs to local image paths; movies without an entry get no image.
func ExportToMarkdown(title string, movies []models.Movie, covers map[int64]string) ([]byte, error) {
	var buf bytes.Buffer

	if title == "" {
		title = "Movies"
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Movies**: %d\n\n", len(movies)))

	for _, m := range movies {
		buf.WriteString(fmt.Sprintf("## %s", m.Title))
		if m.Year > 0 {
			buf.WriteString(fmt.Sprintf(" (%d)", m.Year))
		}
		buf.WriteString("\n\n")

		if cover := covers[m.ID]; cover != "" {
			buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", cover))
		}
		if m.Category != "" {
			buf.WriteString(fmt.Sprintf("**Category**: %s\n", m.Category))
		}
		if m.Rating > 0 {
			buf.WriteString(fmt.Sprintf("**Rating**: %.1f\n", m.Rating))
		}
		if m.Description != "" {
			buf.WriteString(fmt.Sprintf("\n%s\n", m.Description))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts movies to plain text, one per line
func ExportToText(movies []models.Movie) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Movies: %d\n\n", len(movies)))
	for i, m := range movies {
		line := fmt.Sprintf("%d. [%d] %s", i+1, m.ID, m.Title)
		if m.Year > 0 {
			line += fmt.Sprintf(" (%d)", m.Year)
		}
		if m.Category != "" {
			line += " - " + m.Category
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// Render encodes movies in the named format.
func Render(movies []models.Movie, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return ExportToCSV(movies)
	case FormatMarkdown, "md":
		return ExportToMarkdown("", movies, nil)
	case FormatText, "text":
		return ExportToText(movies)
	case FormatJSON, "":
		return shared.MarshalJSON(movies, true)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// Extension returns the file extension used for format.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown, "md":
		return ".md"
	case FormatText, "text":
		return ".txt"
	default:
		return ".json"
	}
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Get(url)
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

// WriteExport writes movies to path in the given format and returns the path written.
//
// Defaults to movies{ext} in the working directory.
func WriteExport(movies []models.Movie, format, path string) (string, error) {
	if path == "" {
		path = "movies" + Extension(format)
	}

	data, err := Render(movies, format)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Covers    int
}

// WriteMarkdownExport writes {dir}/README.md and, when client is non-nil, downloads each cover into {dir}/covers.
//
// Cover download failures are skipped; the movie is rendered without an image.
func WriteMarkdownExport(movies []models.Movie, outputDir string, client *http.Client) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = "movies"
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}
	covers := map[int64]string{}

	if client != nil {
		coverDir := filepath.Join(outputDir, "covers")
		for _, m := range movies {
			if m.Cover == "" {
				continue
			}
			data, err := DownloadImage(client, m.Cover)
			if err != nil {
				continue
			}
			if err := os.MkdirAll(coverDir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create cover directory: %w", err)
			}

			name := fmt.Sprintf("%d.jpg", m.ID)
			if err := os.WriteFile(filepath.Join(coverDir, name), data, 0644); err != nil {
				continue
			}
			covers[m.ID] = "covers/" + name
			result.Files = append(result.Files, filepath.Join(coverDir, name))
			result.Covers++
		}
	}

	mdData, err := ExportToMarkdown("Movies", movies, covers)
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

// WriteManifest writes v as indented JSON to path.
func WriteManifest(v any, path string) error {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func yearString(y int) string {
	if y <= 0 {
		return ""
	}
	return strconv.Itoa(y)
}
