package entities

import "time"

// Names of the tracked event fields, in comparison order.
const (
	FieldTitle             = "title"
	FieldDescription       = "description"
	FieldStart             = "start_time"
	FieldEnd               = "end_time"
	FieldLocation          = "location"
	FieldIsRecurring       = "is_recurring"
	FieldRecurrencePattern = "recurrence_pattern"
)

type trackedField struct {
	name  string
	value func(*EventFields) any
}

var trackedFields = []trackedField{
	{FieldTitle, func(f *EventFields) any { return f.Title }},
	{FieldDescription, func(f *EventFields) any { return f.Description }},
	{FieldStart, func(f *EventFields) any { return f.Start }},
	{FieldEnd, func(f *EventFields) any { return f.End }},
	{FieldLocation, func(f *EventFields) any { return f.Location }},
	{FieldIsRecurring, func(f *EventFields) any { return f.IsRecurring }},
	{FieldRecurrencePattern, func(f *EventFields) any { return f.RecurrencePattern }},
}

// TrackedFieldNames returns the names of all fields compared by CompareFields.
func TrackedFieldNames() []string {
	names := make([]string, len(trackedFields))
	for i, f := range trackedFields {
		names[i] = f.name
	}
	return names
}

// CompareFields returns one FieldChange per tracked field that differs
// between from and to, in a stable field order.
func CompareFields(from, to *EventFields) []FieldChange {
	changes := make([]FieldChange, 0, len(trackedFields))
	for _, f := range trackedFields {
		oldVal, newVal := f.value(from), f.value(to)
		if valuesEqual(oldVal, newVal) {
			continue
		}
		changes = append(changes, FieldChange{Field: f.name, Old: oldVal, New: newVal})
	}
	return changes
}

// valuesEqual compares field values; times are compared as instants so that
// values read back from storage in a different location still match.
func valuesEqual(a, b any) bool {
	at, aIsTime := a.(time.Time)
	bt, bIsTime := b.(time.Time)
	if aIsTime && bIsTime {
		return at.Equal(bt)
	}
	return a == b
}
