package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ersonp/calcore/internal/domain/entities"
)

// render writes v as JSON when --json is set and calls text otherwise.
func render(w io.Writer, v any, text func(io.Writer)) error {
	if globalJSON {
		return writeJSON(w, v)
	}
	text(w)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

// formatValue renders a tracked field value for changelog and diff output.
func formatValue(v any) string {
	switch val := v.(type) {
	case time.Time:
		return formatTime(val)
	case string:
		return fmt.Sprintf("%q", val)
	case entities.RecurrencePattern:
		return fmt.Sprintf("%q", string(val))
	default:
		return fmt.Sprintf("%v", val)
	}
}

func printEvent(w io.Writer, e *entities.Event) {
	fmt.Fprintf(w, "ID: %s\n", e.ID)
	fmt.Fprintf(w, "  Title: %s\n", e.Title)
	fmt.Fprintf(w, "  When:  %s - %s\n", formatTime(e.Start), formatTime(e.End))
	if e.Location != "" {
		fmt.Fprintf(w, "  Where: %s\n", e.Location)
	}
	if e.Description != "" {
		fmt.Fprintf(w, "  Description: %s\n", e.Description)
	}
	if e.IsRecurring || e.RecurrencePattern != entities.RecurrenceNone {
		fmt.Fprintf(w, "  Repeats: %t %s\n", e.IsRecurring, e.RecurrencePattern)
	}
	fmt.Fprintln(w)
}

func printPage(w io.Writer, page *entities.Page) {
	if page.Count == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}

	fmt.Fprintf(w, "Page %d of %d (%d events):\n\n", page.CurrentPage, page.NumPages, page.Count)
	for i := range page.Results {
		printEvent(w, &page.Results[i])
	}
}

func printPermissions(w io.Writer, perms []entities.Permission) {
	fmt.Fprintf(w, "%-30s %s\n", "USER", "ROLE")
	fmt.Fprintf(w, "%-30s %s\n", "----", "----")
	for _, p := range perms {
		fmt.Fprintf(w, "%-30s %s\n", p.UserID, p.Role)
	}
}

func printSnapshots(w io.Writer, snaps []entities.Snapshot) {
	fmt.Fprintf(w, "%-8s %-7s %-20s %-21s %s\n", "VERSION", "CHANGE", "BY", "AT", "REASON")
	for _, s := range snaps {
		fmt.Fprintf(w, "%-8d %-7s %-20s %-21s %s\n", s.Version, s.ChangeType, s.ChangedBy, formatTime(s.CreatedAt), s.Reason)
	}
}

func printSnapshot(w io.Writer, s *entities.Snapshot) {
	fmt.Fprintf(w, "Version %d (%s by %s at %s)\n", s.Version, s.ChangeType, s.ChangedBy, formatTime(s.CreatedAt))
	if s.Reason != "" {
		fmt.Fprintf(w, "Reason: %s\n", s.Reason)
	}
	fmt.Fprintln(w)
	printEvent(w, &s.Data)
}

func printChangelog(w io.Writer, entries []entities.ChangelogEntry) {
	for _, e := range entries {
		fmt.Fprintf(w, "v%d %s by %s at %s", e.Version, e.ChangeType, e.ChangedBy, formatTime(e.ChangedAt))
		if e.Reason != "" {
			fmt.Fprintf(w, " (%s)", e.Reason)
		}
		fmt.Fprintln(w)
		for _, c := range e.Changes {
			fmt.Fprintf(w, "  %s: %s -> %s\n", c.Field, formatValue(c.Old), formatValue(c.New))
		}
	}
}

func printDiff(w io.Writer, d *entities.Diff) {
	if len(d.Changes) == 0 {
		fmt.Fprintf(w, "No differences between v%d and v%d.\n", d.Version1, d.Version2)
		return
	}
	fmt.Fprintf(w, "Changed fields: %s\n\n", strings.Join(d.ChangedFields(), ", "))
	for _, c := range d.Changes {
		fmt.Fprintf(w, "%s\n  v%d: %s\n  v%d: %s\n", c.Field, d.Version1, formatValue(c.Version1Value), d.Version2, formatValue(c.Version2Value))
	}
}
