// Package cli renders command output for the folio CLI and REPL.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/search"
	"github.com/hyperjump/folio/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text", "json" or "" (text).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// snippetLen bounds the text shown per result in text output.
const snippetLen = 240

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	if len(response.Results) == 0 {
		_, err := fmt.Fprintf(w, "No results for %q in %s\n", response.Query, response.Collection)
		return err
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", len(response.Results), response.QueryTime)
	for i, r := range response.Results {
		fmt.Fprintf(w, "%d. page %d  score %.4f\n", i+1, r.Page, r.Score)
		fmt.Fprintf(w, "   %s\n\n", search.Highlight(utils.OneLine(r.Text), snippetLen))
	}
	return nil
}

// WriteCollections writes collection names one per line, or as a JSON array.
func WriteCollections(w io.Writer, names []string, format OutputFormat) error {
	if format == OutputJSON {
		if names == nil {
			names = []string{}
		}
		return writeJSON(w, names)
	}
	if len(names) == 0 {
		_, err := fmt.Fprintln(w, "No collections")
		return err
	}
	for _, n := range names {
		if _, err := fmt.Fprintln(w, n); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
