// Package entities contains core domain data structures.
package entities

import (
	"strings"
	"time"
)

// RecurrencePattern is the stored recurrence rule of an event.
// The pattern is kept as metadata only; occurrences are never expanded.
type RecurrencePattern string

// Supported recurrence patterns. The zero value means no pattern.
const (
	RecurrenceNone    RecurrencePattern = ""
	RecurrenceDaily   RecurrencePattern = "DAILY"
	RecurrenceWeekly  RecurrencePattern = "WEEKLY"
	RecurrenceMonthly RecurrencePattern = "MONTHLY"
	RecurrenceYearly  RecurrencePattern = "YEARLY"
)

// RecurrencePatterns lists every non-empty pattern in display order.
var RecurrencePatterns = []RecurrencePattern{
	RecurrenceDaily,
	RecurrenceWeekly,
	RecurrenceMonthly,
	RecurrenceYearly,
}

// IsValid reports whether p is empty or one of the supported patterns.
func (p RecurrencePattern) IsValid() bool {
	if p == RecurrenceNone {
		return true
	}
	for _, known := range RecurrencePatterns {
		if p == known {
			return true
		}
	}
	return false
}

// ParseRecurrencePattern normalizes s (case-insensitive) into a pattern.
// The second return value is false when s names no supported pattern.
func ParseRecurrencePattern(s string) (RecurrencePattern, bool) {
	p := RecurrencePattern(strings.ToUpper(strings.TrimSpace(s)))
	return p, p.IsValid()
}

// Event times must fall in [MinEventTime, MaxEventTime]. Stores keep times
// as unix nanoseconds, which cover roughly the years 1678 to 2262.
var (
	MinEventTime = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	MaxEventTime = time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)
)

// InEventRange reports whether t is within the supported event time range.
func InEventRange(t time.Time) bool {
	return !t.Before(MinEventTime) && !t.After(MaxEventTime)
}

// EventFields holds the user-editable fields of an event.
// These are the fields captured, compared and restored by the history engine.
type EventFields struct {
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Start             time.Time         `json:"start_time"`
	End               time.Time         `json:"end_time"`
	Location          string            `json:"location"`
	IsRecurring       bool              `json:"is_recurring"`
	RecurrencePattern RecurrencePattern `json:"recurrence_pattern,omitempty"`
}

// Event is a calendar entry shared between participants.
type Event struct {
	ID string `json:"id"`
	EventFields
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Overlaps reports whether the event's interval overlaps [start, end).
// Intervals are half-open, so back-to-back events do not overlap.
func (e *Event) Overlaps(start, end time.Time) bool {
	return Overlaps(e.Start, e.End, start, end)
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share any duration.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
