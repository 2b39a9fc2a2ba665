// Package parsers provides parsers for importing events from various formats.
package parsers

import (
	"io"
	"path/filepath"
	"strings"
)

// RawEvent is an event read from an external source before validation.
// Times are kept as text and parsed by the caller.
type RawEvent struct {
	Title             string `json:"title"`
	Description       string `json:"description,omitempty"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	Location          string `json:"location,omitempty"`
	IsRecurring       bool   `json:"is_recurring,omitempty"`
	RecurrencePattern string `json:"recurrence_pattern,omitempty"`
	LineNum           int    `json:"-"` // Line number in source file (set by parser)
}

// Parser defines the interface for parsing events from various formats.
type Parser interface {
	Parse(r io.Reader) ([]RawEvent, error)
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
