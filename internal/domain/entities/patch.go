package entities

import (
	"time"

	"github.com/samber/mo"
)

// EventPatch is a partial update of an event. Absent options keep the
// current value.
type EventPatch struct {
	Title             mo.Option[string]
	Description       mo.Option[string]
	Start             mo.Option[time.Time]
	End               mo.Option[time.Time]
	Location          mo.Option[string]
	IsRecurring       mo.Option[bool]
	RecurrencePattern mo.Option[RecurrencePattern]
}

// Apply overwrites the fields of f that are present in the patch.
func (p EventPatch) Apply(f *EventFields) {
	if v, ok := p.Title.Get(); ok {
		f.Title = v
	}
	if v, ok := p.Description.Get(); ok {
		f.Description = v
	}
	if v, ok := p.Start.Get(); ok {
		f.Start = v
	}
	if v, ok := p.End.Get(); ok {
		f.End = v
	}
	if v, ok := p.Location.Get(); ok {
		f.Location = v
	}
	if v, ok := p.IsRecurring.Get(); ok {
		f.IsRecurring = v
	}
	if v, ok := p.RecurrencePattern.Get(); ok {
		f.RecurrencePattern = v
	}
}

// IsEmpty reports whether the patch sets no field.
func (p EventPatch) IsEmpty() bool {
	return p.Title.IsAbsent() &&
		p.Description.IsAbsent() &&
		p.Start.IsAbsent() &&
		p.End.IsAbsent() &&
		p.Location.IsAbsent() &&
		p.IsRecurring.IsAbsent() &&
		p.RecurrencePattern.IsAbsent()
}

// PatchFrom builds a patch that replaces every tracked field with the values in f.
func PatchFrom(f EventFields) EventPatch {
	return EventPatch{
		Title:             mo.Some(f.Title),
		Description:       mo.Some(f.Description),
		Start:             mo.Some(f.Start),
		End:               mo.Some(f.End),
		Location:          mo.Some(f.Location),
		IsRecurring:       mo.Some(f.IsRecurring),
		RecurrencePattern: mo.Some(f.RecurrencePattern),
	}
}
