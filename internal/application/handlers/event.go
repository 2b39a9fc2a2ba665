package handlers

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/samber/mo"

	"github.com/ersonp/calcore/internal/domain/entities"
	apperrors "github.com/ersonp/calcore/internal/domain/errors"
	"github.com/ersonp/calcore/internal/domain/services"
	"github.com/ersonp/calcore/internal/infrastructure/icalendar"
)

// EventHandler handles event lifecycle operations at the application layer.
type EventHandler struct {
	events      *services.EventService
	permissions *services.PermissionService
	now         func() time.Time
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(events *services.EventService, permissions *services.PermissionService) *EventHandler {
	return &EventHandler{
		events:      events,
		permissions: permissions,
		now:         time.Now,
	}
}

// EventInput holds the fields of a new event as a client sends them.
// Times are RFC 3339; the recurrence pattern is case-insensitive.
type EventInput struct {
	Title             string `json:"title"`
	Description       string `json:"description,omitempty"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	Location          string `json:"location,omitempty"`
	IsRecurring       bool   `json:"is_recurring,omitempty"`
	RecurrencePattern string `json:"recurrence_pattern,omitempty"`
}

// EventUpdateInput holds a partial update. Nil fields are left unchanged.
type EventUpdateInput struct {
	Title             *string `json:"title,omitempty"`
	Description       *string `json:"description,omitempty"`
	StartTime         *string `json:"start_time,omitempty"`
	EndTime           *string `json:"end_time,omitempty"`
	Location          *string `json:"location,omitempty"`
	IsRecurring       *bool   `json:"is_recurring,omitempty"`
	RecurrencePattern *string `json:"recurrence_pattern,omitempty"`
	Reason            string  `json:"reason,omitempty"`
}

// ListEventsInput selects a page of events.
type ListEventsInput struct {
	Title    string
	Page     int
	PageSize int
}

// CreateEvent creates an event owned by principal.
func (h *EventHandler) CreateEvent(ctx context.Context, principal entities.Principal, in EventInput) (*entities.Event, error) {
	fields, err := in.fields()
	if err != nil {
		return nil, err
	}
	return h.events.Create(ctx, principal, fields)
}

// ListEvents returns one page of the events principal participates in.
func (h *EventHandler) ListEvents(ctx context.Context, principal entities.Principal, in ListEventsInput) (*entities.Page, error) {
	return h.events.List(ctx, principal, entities.ListFilter{
		Title:    strings.TrimSpace(in.Title),
		Page:     in.Page,
		PageSize: in.PageSize,
	})
}

// GetEvent returns an event principal participates in.
func (h *EventHandler) GetEvent(ctx context.Context, principal entities.Principal, eventID string) (*entities.Event, error) {
	return h.events.Get(ctx, principal, eventID)
}

// UpdateEvent applies a partial update to an event.
func (h *EventHandler) UpdateEvent(ctx context.Context, principal entities.Principal, eventID string, in EventUpdateInput) (*entities.Event, error) {
	patch, err := in.patch()
	if err != nil {
		return nil, err
	}
	return h.events.Update(ctx, principal, eventID, patch, strings.TrimSpace(in.Reason))
}

// DeleteEvent deletes an event.
func (h *EventHandler) DeleteEvent(ctx context.Context, principal entities.Principal, eventID, reason string) error {
	return h.events.Delete(ctx, principal, eventID, strings.TrimSpace(reason))
}

// BulkCreateEvents creates every valid input in one batch. Inputs that fail
// to parse are reported next to those that fail validation, by input index.
func (h *EventHandler) BulkCreateEvents(ctx context.Context, principal entities.Principal, inputs []EventInput) (*services.BulkResult, error) {
	if len(inputs) == 0 {
		return nil, apperrors.Validation("events", "at least one event is required")
	}

	var (
		items     []entities.EventFields
		indexes   []int
		parseErrs []services.BulkError
	)
	for i, in := range inputs {
		fields, err := in.fields()
		if err != nil {
			parseErrs = append(parseErrs, bulkErrorOf(i, err))
			continue
		}
		items = append(items, fields)
		indexes = append(indexes, i)
	}

	if len(items) == 0 {
		result := &services.BulkResult{Created: []entities.Event{}, Errors: parseErrs}
		return result, apperrors.New(apperrors.CodeValidation, "no events created")
	}

	result, err := h.events.BulkCreate(ctx, principal, items)
	if result == nil {
		return nil, err
	}
	for i := range result.Errors {
		result.Errors[i].Index = indexes[result.Errors[i].Index]
	}
	result.Errors = mergeBulkErrors(parseErrs, result.Errors)
	return result, err
}

// ExportEvent writes an event as an iCalendar document to w.
func (h *EventHandler) ExportEvent(ctx context.Context, principal entities.Principal, eventID string, w io.Writer) error {
	event, err := h.events.Get(ctx, principal, eventID)
	if err != nil {
		return err
	}
	perms, err := h.permissions.List(ctx, principal, eventID)
	if err != nil {
		return err
	}
	return icalendar.Encode(w, event, perms, h.now())
}

func (in EventInput) fields() (entities.EventFields, error) {
	start, err := parseTime(entities.FieldStart, in.StartTime)
	if err != nil {
		return entities.EventFields{}, err
	}
	end, err := parseTime(entities.FieldEnd, in.EndTime)
	if err != nil {
		return entities.EventFields{}, err
	}
	return entities.EventFields{
		Title:             in.Title,
		Description:       in.Description,
		Start:             start,
		End:               end,
		Location:          in.Location,
		IsRecurring:       in.IsRecurring,
		RecurrencePattern: parsePattern(in.RecurrencePattern),
	}, nil
}

func (in EventUpdateInput) patch() (entities.EventPatch, error) {
	patch := entities.EventPatch{
		Title:       mo.PointerToOption(in.Title),
		Description: mo.PointerToOption(in.Description),
		Location:    mo.PointerToOption(in.Location),
		IsRecurring: mo.PointerToOption(in.IsRecurring),
	}
	if in.StartTime != nil {
		start, err := parseTime(entities.FieldStart, *in.StartTime)
		if err != nil {
			return entities.EventPatch{}, err
		}
		patch.Start = mo.Some(start)
	}
	if in.EndTime != nil {
		end, err := parseTime(entities.FieldEnd, *in.EndTime)
		if err != nil {
			return entities.EventPatch{}, err
		}
		patch.End = mo.Some(end)
	}
	if in.RecurrencePattern != nil {
		patch.RecurrencePattern = mo.Some(parsePattern(*in.RecurrencePattern))
	}
	return patch, nil
}

// parseTime parses an RFC 3339 timestamp. An empty string yields the zero
// time so that the service reports the field as missing.
func parseTime(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperrors.Validation(field, field+" must be an RFC 3339 timestamp")
	}
	return t.UTC(), nil
}

// parsePattern normalizes a pattern; unknown values are left for the
// service to reject.
func parsePattern(s string) entities.RecurrencePattern {
	p, _ := entities.ParseRecurrencePattern(s)
	return p
}

func bulkErrorOf(index int, err error) services.BulkError {
	be := services.BulkError{Index: index, Message: err.Error()}
	if appErr, ok := apperrors.AsError(err); ok {
		be.Field = appErr.Metadata["field"]
		be.Message = appErr.Message
	}
	return be
}

// mergeBulkErrors merges two lists that are each sorted by index.
func mergeBulkErrors(a, b []services.BulkError) []services.BulkError {
	if len(a) == 0 {
		return b
	}
	merged := make([]services.BulkError, 0, len(a)+len(b))
	for len(a) > 0 && len(b) > 0 {
		if a[0].Index < b[0].Index {
			merged = append(merged, a[0])
			a = a[1:]
		} else {
			merged = append(merged, b[0])
			b = b[1:]
		}
	}
	merged = append(merged, a...)
	return append(merged, b...)
}
