// Package parsers provides parsers for bulk-importing claims from files.
package parsers

import (
	"io"
	"path/filepath"
	"strings"
)

// RawClaim is a claim read from an import file before validation.
type RawClaim struct {
	SubmitterID string `json:"submitter_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	MediaURL    string `json:"media_url,omitempty"`
	Priority    string `json:"priority,omitempty"`
	LineNum     int    `json:"-"` // Line number in source file (set by parser)
}

// Parser reads claims in one file format.
type Parser interface {
	Parse(r io.Reader) ([]RawClaim, error)
}

// ForFormat returns the appropriate parser for the given format.
// Supported formats: "json", "csv".
func ForFormat(format string) Parser {
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}
	case "csv":
		return &CSVParser{}
	default:
		return nil
	}
}

// ForFile returns the appropriate parser based on file extension.
func ForFile(filename string) Parser {
	return ForFormat(strings.TrimPrefix(filepath.Ext(filename), "."))
}
