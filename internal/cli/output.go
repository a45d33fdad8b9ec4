package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/0xAF/owrx-markers/internal/marker"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// SourceResult is one directory's part of a scrape
type SourceResult struct {
	Source   string `json:"source"`
	Count    int    `json:"count"`
	Failed   bool   `json:"failed,omitempty"`
	Duration string `json:"duration"`
}

// ScrapeResult contains the outcome of a one-shot scrape
type ScrapeResult struct {
	ScrapedAt time.Time      `json:"scraped_at"`
	CachePath string         `json:"cache_path"`
	Total     int            `json:"total"`
	Sources   []SourceResult `json:"sources"`
}

// ShowResult contains markers grouped by category
type ShowResult struct {
	Count   int                         `json:"count"`
	Markers map[string][]*marker.Marker `json:"markers"`
}

// WriteScrape writes a scrape result in the specified format
func WriteScrape(w io.Writer, result *ScrapeResult, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeScrapeText(w, result)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteShow writes markers in the specified format
func WriteShow(w io.Writer, result *ShowResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeShowText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeScrapeText(w io.Writer, result *ScrapeResult) error {
	for _, src := range result.Sources {
		if src.Failed {
			fmt.Fprintf(w, "%-14s FAILED (%s)\n", src.Source, src.Duration)
			continue
		}
		fmt.Fprintf(w, "%-14s %5d receivers (%s)\n", src.Source, src.Count, src.Duration)
	}

	if result.Total == 0 {
		fmt.Fprintln(w, "\nNo receivers found.")
		return nil
	}
	fmt.Fprintf(w, "\nTotal: %d receivers saved to %s\n", result.Total, result.CachePath)
	return nil
}

func writeShowText(w io.Writer, result *ShowResult, verbose bool) error {
	if result.Count == 0 {
		fmt.Fprintln(w, "No markers found.")
		return nil
	}

	for _, category := range marker.Categories {
		markers := result.Markers[string(category)]
		if len(markers) == 0 {
			continue
		}

		fmt.Fprintf(w, "\n%s (%d markers):\n", category, len(markers))
		for _, m := range markers {
			fmt.Fprintf(w, "  %-32s %-12s %9.4f %9.4f\n", m.ID, m.Mode, m.Lat, m.Lon)
			if verbose {
				if comment := m.String("comment"); comment != "" {
					fmt.Fprintf(w, "       Comment: %s\n", comment)
				}
				if url := m.String("url"); url != "" {
					fmt.Fprintf(w, "       URL: %s\n", url)
				}
				if device := m.String("device"); device != "" {
					fmt.Fprintf(w, "       Device: %s\n", device)
				}
			}
		}
	}
	fmt.Fprintf(w, "\nTotal: %d markers across %d categories\n", result.Count, len(result.Markers))

	return nil
}
