package main

// Default limits for CLI commands.
const (
	DefaultPageSize = 20
)

// Valid import formats.
var validImportFormats = []string{"auto", "json", "csv"}
