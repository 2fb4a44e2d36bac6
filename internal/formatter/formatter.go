// package formatter exports the watchlist document to CSV, Markdown and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/saur-hub/watchlist/internal/models"
	"github.com/saur-hub/watchlist/internal/shared"
)

// Format is an export file format.
type Format string

const (
	CSV      Format = "csv"
	Markdown Format = "md"
	Text     Format = "txt"
)

// ParseFormat accepts csv, md/markdown and txt/text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "md", "markdown":
		return Markdown, nil
	case "txt", "text", "":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
	}
}

var kinds = []models.ListKind{models.Movies, models.Series}

// ExportToCSV writes one row per item with columns: List, Title, Year, Type, IMDb ID, IMDb Rating, My Rating,
// Notes, Added
func ExportToCSV(doc models.Document) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"List", "Title", "Year", "Type", "IMDb ID", "IMDb Rating", "My Rating", "Notes", "Added"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, kind := range kinds {
		for _, it := range doc.List(kind) {
			record := []string{
				string(kind),
				it.Title,
				it.Year,
				it.Type,
				it.IMDbID,
				it.IMDbRating,
				it.MyRating,
				it.Notes,
				it.AddedAt,
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders both lists as sections, with posters linked by URL when known.
func ExportToMarkdown(doc models.Document, heading string) ([]byte, error) {
	var buf bytes.Buffer

	if heading == "" {
		heading = "Watchlist"
	}
	fmt.Fprintf(&buf, "# %s\n\n", heading)
	fmt.Fprintf(&buf, "**Movies**: %d\n**Series**: %d\n\n", len(doc.Movies), len(doc.Series))

	for _, kind := range kinds {
		items := doc.List(kind)
		fmt.Fprintf(&buf, "## %s\n\n", titleCase(string(kind)))
		if len(items) == 0 {
			buf.WriteString("_Nothing here yet._\n\n")
			continue
		}

		for i, it := range items {
			fmt.Fprintf(&buf, "%d. **%s** (%s)", i+1, it.Title, it.Year)
			if r := rating(it.IMDbRating); r != "" {
				fmt.Fprintf(&buf, " ⭐ %s", r)
			}
			if it.MyRating != "" {
				fmt.Fprintf(&buf, " · mine: %s", it.MyRating)
			}
			fmt.Fprintf(&buf, " · [IMDb](https://www.imdb.com/title/%s/)\n", it.IMDbID)
			if hasPoster(it) {
				fmt.Fprintf(&buf, "   ![%s](%s)\n", it.Title, it.PosterURL)
			}
			if it.Notes != "" {
				fmt.Fprintf(&buf, "   > %s\n", it.Notes)
			}
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts the document to plain text format
func ExportToText(doc models.Document) ([]byte, error) {
	var buf bytes.Buffer

	for _, kind := range kinds {
		items := doc.List(kind)
		fmt.Fprintf(&buf, "%s: %d\n", titleCase(string(kind)), len(items))
		for i, it := range items {
			fmt.Fprintf(&buf, "%d. %s (%s)", i+1, it.Title, it.Year)
			if r := rating(it.IMDbRating); r != "" {
				fmt.Fprintf(&buf, " [%s]", r)
			}
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// Export renders doc in format.
func Export(doc models.Document, format Format) ([]byte, error) {
	switch format {
	case CSV:
		return ExportToCSV(doc)
	case Markdown:
		return ExportToMarkdown(doc, "")
	case Text:
		return ExportToText(doc)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteExport renders doc and writes it to path, defaulting to watchlist.{format} in the working directory.
func WriteExport(doc models.Document, format Format, path string) (string, error) {
	if path == "" {
		path = "watchlist." + string(format)
	}

	data, err := Export(doc, format)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return path, nil
}

func rating(r string) string {
	if r == "" || r == "N/A" {
		return ""
	}
	return r
}

func hasPoster(it models.Item) bool {
	return it.PosterURL != "" && it.PosterURL != "N/A"
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
