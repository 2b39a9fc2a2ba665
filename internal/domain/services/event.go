package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ersonp/calcore/internal/domain/entities"
	apperrors "github.com/ersonp/calcore/internal/domain/errors"
	"github.com/ersonp/calcore/internal/domain/ports"
)

const (
	maxTitleLength    = 255
	maxLocationLength = 255
)

// EventService runs the event lifecycle: create, read, update, delete and
// bulk create. Every write goes through mutateAndRecord so the event change
// and its history snapshot commit together.
type EventService struct {
	store     ports.EventStore
	conflicts *ConflictDetector
	cache     *CacheInvalidator
	observer  observer
	now       func() time.Time
}

// NewEventService creates a new EventService. cache, metrics and logger may be nil.
func NewEventService(store ports.EventStore, cache *CacheInvalidator, metrics ports.MetricsRecorder, logger *slog.Logger) *EventService {
	return &EventService{
		store:     store,
		conflicts: NewConflictDetector(),
		cache:     cache,
		observer:  newObserver(metrics, logger),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// BulkError describes one rejected item of a bulk create.
type BulkError struct {
	Index   int    `json:"index"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// BulkResult is the outcome of a bulk create.
type BulkResult struct {
	Created []entities.Event `json:"created"`
	Errors  []BulkError      `json:"errors,omitempty"`
}

// Create validates fields, rejects overlaps with the principal's events, and
// stores the event with the principal as its OWNER and a CREATE snapshot.
func (s *EventService) Create(ctx context.Context, principal entities.Principal, fields entities.EventFields) (_ *entities.Event, err error) {
	defer func() { s.observer.done(ctx, "create", err, "user_id", principal.ID) }()

	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	normalizeFields(&fields)
	if verr := validateFields(&fields); verr != nil {
		return nil, verr
	}

	now := s.now()
	event := &entities.Event{
		ID:          uuid.New().String(),
		EventFields: fields,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	owner := entities.Participant{EventID: event.ID, UserID: principal.ID, Role: entities.RoleOwner, CreatedAt: now}

	err = s.store.WithTx(ctx, func(repo ports.EventRepository) error {
		if err := s.conflicts.Check(ctx, repo, []string{principal.ID}, event.Start, event.End, ""); err != nil {
			return err
		}
		return s.mutateAndRecord(ctx, repo, mutation{
			changeType: entities.ChangeCreate,
			actor:      principal.ID,
			event:      event,
			apply: func() error {
				if err := repo.InsertEvent(ctx, event); err != nil {
					return fmt.Errorf("inserting event: %w", err)
				}
				if err := repo.SaveParticipant(ctx, &owner); err != nil {
					return fmt.Errorf("saving owner: %w", err)
				}
				return nil
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateEvent(ctx, event.ID, []entities.Participant{owner})
	s.cache.InvalidateParticipants(ctx, event.ID)
	return event, nil
}

// BulkCreate validates every item and stores the valid ones in one
// transaction, each with a CREATE snapshot. Overlaps are not checked.
// Invalid items are reported by index. A validation error is returned
// alongside the result when nothing was created.
func (s *EventService) BulkCreate(ctx context.Context, principal entities.Principal, items []entities.EventFields) (_ *BulkResult, err error) {
	defer func() { s.observer.done(ctx, "bulk_create", err, "user_id", principal.ID, "items", len(items)) }()

	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.Validation("events", "at least one event is required")
	}

	result := &BulkResult{Created: []entities.Event{}}
	now := s.now()
	var (
		events       []entities.Event
		participants []entities.Participant
		snapshots    []entities.Snapshot
	)
	for i, fields := range items {
		normalizeFields(&fields)
		if verr := validateFields(&fields); verr != nil {
			result.Errors = append(result.Errors, BulkError{Index: i, Field: verr.Metadata["field"], Message: verr.Message})
			continue
		}
		event := entities.Event{ID: uuid.New().String(), EventFields: fields, CreatedAt: now, UpdatedAt: now}
		events = append(events, event)
		participants = append(participants, entities.Participant{
			EventID: event.ID, UserID: principal.ID, Role: entities.RoleOwner, CreatedAt: now,
		})
		snapshots = append(snapshots, s.newSnapshot(&event, entities.ChangeCreate, principal.ID, "", 1, nil))
	}

	if len(events) == 0 {
		return result, apperrors.New(apperrors.CodeValidation, "no events created")
	}

	err = s.store.WithTx(ctx, func(repo ports.EventRepository) error {
		if err := repo.InsertEvents(ctx, events); err != nil {
			return fmt.Errorf("inserting events: %w", err)
		}
		if err := repo.SaveParticipants(ctx, participants); err != nil {
			return fmt.Errorf("saving owners: %w", err)
		}
		if err := repo.SaveSnapshots(ctx, snapshots); err != nil {
			return fmt.Errorf("appending snapshots: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, p := range participants {
		s.cache.InvalidateDetail(ctx, p.EventID, p.UserID)
		s.cache.InvalidateParticipants(ctx, p.EventID)
	}
	result.Created = events
	return result, nil
}

// Get returns an event the principal participates in. Events the principal
// cannot see are reported as not found.
func (s *EventService) Get(ctx context.Context, principal entities.Principal, eventID string) (*entities.Event, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	return readThrough(ctx, s.cache, EventDetailKey(eventID, principal.ID), func() (*entities.Event, error) {
		p, err := s.store.FindParticipant(ctx, eventID, principal.ID)
		if err != nil {
			return nil, fmt.Errorf("finding participant: %w", err)
		}
		if p == nil {
			return nil, apperrors.NotFound("event", eventID)
		}
		event, err := s.store.FindEvent(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("finding event: %w", err)
		}
		if event == nil {
			return nil, apperrors.NotFound("event", eventID)
		}
		return event, nil
	})
}

// List returns one page of the principal's events ordered by start time.
func (s *EventService) List(ctx context.Context, principal entities.Principal, filter entities.ListFilter) (*entities.Page, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	filter = filter.Normalize()
	events, total, err := s.store.ListEventsForUser(ctx, principal.ID, filter)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return entities.NewPage(events, total, filter), nil
}

// Update applies patch to an event the principal owns. The resulting range
// must not overlap other events of any participant. An empty patch still
// records a snapshot.
func (s *EventService) Update(ctx context.Context, principal entities.Principal, eventID string, patch entities.EventPatch, reason string) (_ *entities.Event, err error) {
	defer func() { s.observer.done(ctx, "update", err, "user_id", principal.ID, "event_id", eventID) }()

	return s.update(ctx, principal, eventID, "update", reason, true, func(_ ports.EventRepository, f *entities.EventFields) error {
		patch.Apply(f)
		return nil
	})
}

// rollback replaces the fields of an event with those captured in version.
// The restored range is not checked for overlaps.
func (s *EventService) rollback(ctx context.Context, principal entities.Principal, eventID string, version int) (_ *entities.Event, err error) {
	defer func() {
		s.observer.done(ctx, "rollback", err, "user_id", principal.ID, "event_id", eventID, "version", version)
	}()

	reason := fmt.Sprintf("rollback to version %d", version)
	return s.update(ctx, principal, eventID, "rollback", reason, false, func(repo ports.EventRepository, f *entities.EventFields) error {
		target, err := repo.FindSnapshot(ctx, eventID, version)
		if err != nil {
			return fmt.Errorf("finding version: %w", err)
		}
		if target == nil {
			return apperrors.NotFound("version", fmt.Sprint(version))
		}
		entities.PatchFrom(target.Data.EventFields).Apply(f)
		return nil
	})
}

func (s *EventService) update(ctx context.Context, principal entities.Principal, eventID, action, reason string, checkConflicts bool, change func(repo ports.EventRepository, f *entities.EventFields) error) (*entities.Event, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}

	var (
		updated      entities.Event
		participants []entities.Participant
	)
	err := s.store.WithTx(ctx, func(repo ports.EventRepository) error {
		current, _, err := authorize(ctx, repo, eventID, principal.ID, action, entities.RoleOwner)
		if err != nil {
			return err
		}

		updated = *current
		if err := change(repo, &updated.EventFields); err != nil {
			return err
		}
		normalizeFields(&updated.EventFields)
		if verr := validateFields(&updated.EventFields); verr != nil {
			return verr
		}

		participants, err = repo.ListParticipants(ctx, eventID)
		if err != nil {
			return fmt.Errorf("listing participants: %w", err)
		}
		if checkConflicts {
			if err := s.conflicts.Check(ctx, repo, userIDs(participants), updated.Start, updated.End, eventID); err != nil {
				return err
			}
		}

		updated.UpdatedAt = s.now()
		return s.mutateAndRecord(ctx, repo, mutation{
			changeType: entities.ChangeUpdate,
			actor:      principal.ID,
			reason:     reason,
			event:      &updated,
			apply: func() error {
				if err := repo.UpdateEvent(ctx, &updated); err != nil {
					return fmt.Errorf("updating event: %w", err)
				}
				return nil
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateEvent(ctx, eventID, participants)
	return &updated, nil
}

// Delete removes an event the principal owns, after recording a DELETE
// snapshot that captures the event and its participants.
func (s *EventService) Delete(ctx context.Context, principal entities.Principal, eventID, reason string) (err error) {
	defer func() { s.observer.done(ctx, "delete", err, "user_id", principal.ID, "event_id", eventID) }()

	if err := requirePrincipal(principal); err != nil {
		return err
	}

	var participants []entities.Participant
	err = s.store.WithTx(ctx, func(repo ports.EventRepository) error {
		event, _, err := authorize(ctx, repo, eventID, principal.ID, "delete", entities.RoleOwner)
		if err != nil {
			return err
		}
		participants, err = repo.ListParticipants(ctx, eventID)
		if err != nil {
			return fmt.Errorf("listing participants: %w", err)
		}
		return s.mutateAndRecord(ctx, repo, mutation{
			changeType:   entities.ChangeDelete,
			actor:        principal.ID,
			reason:       reason,
			event:        event,
			participants: participants,
			apply: func() error {
				if err := repo.DeleteEvent(ctx, eventID); err != nil {
					return fmt.Errorf("deleting event: %w", err)
				}
				return nil
			},
		})
	})
	if err != nil {
		return err
	}

	s.cache.InvalidateEvent(ctx, eventID, participants)
	s.cache.InvalidateParticipants(ctx, eventID)
	return nil
}

// mutation is one lifecycle change of an event.
type mutation struct {
	changeType   entities.ChangeType
	actor        string
	reason       string
	event        *entities.Event        // state captured by the snapshot
	participants []entities.Participant // captured on DELETE only
	apply        func() error
}

// mutateAndRecord applies a change and appends its snapshot inside the
// caller's transaction. DELETE snapshots are taken before the event is
// removed; the others after the change is applied.
func (s *EventService) mutateAndRecord(ctx context.Context, repo ports.EventRepository, m mutation) error {
	if m.changeType != entities.ChangeDelete {
		if err := m.apply(); err != nil {
			return err
		}
	}

	version, err := repo.NextVersion(ctx, m.event.ID)
	if err != nil {
		return fmt.Errorf("allocating version: %w", err)
	}
	snapshot := s.newSnapshot(m.event, m.changeType, m.actor, m.reason, version, m.participants)
	if err := repo.SaveSnapshot(ctx, &snapshot); err != nil {
		return fmt.Errorf("appending snapshot: %w", err)
	}

	if m.changeType == entities.ChangeDelete {
		return m.apply()
	}
	return nil
}

func (s *EventService) newSnapshot(event *entities.Event, changeType entities.ChangeType, actor, reason string, version int, participants []entities.Participant) entities.Snapshot {
	return entities.Snapshot{
		ID:           uuid.New().String(),
		EventID:      event.ID,
		Version:      version,
		ChangeType:   changeType,
		ChangedBy:    actor,
		Reason:       reason,
		Data:         *event,
		Participants: participants,
		CreatedAt:    s.now(),
	}
}

func normalizeFields(f *entities.EventFields) {
	f.Title = strings.TrimSpace(f.Title)
	f.Location = strings.TrimSpace(f.Location)
}

func validateFields(f *entities.EventFields) *apperrors.Error {
	switch {
	case f.Title == "":
		return apperrors.Validation(entities.FieldTitle, "missing required field: title")
	case utf8.RuneCountInString(f.Title) > maxTitleLength:
		return apperrors.Validation(entities.FieldTitle, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	case utf8.RuneCountInString(f.Location) > maxLocationLength:
		return apperrors.Validation(entities.FieldLocation, fmt.Sprintf("location must be at most %d characters", maxLocationLength))
	case f.Start.IsZero():
		return apperrors.Validation(entities.FieldStart, "missing required field: start_time")
	case f.End.IsZero():
		return apperrors.Validation(entities.FieldEnd, "missing required field: end_time")
	case !entities.InEventRange(f.Start):
		return apperrors.Validation(entities.FieldStart, outOfRangeMessage(entities.FieldStart))
	case !entities.InEventRange(f.End):
		return apperrors.Validation(entities.FieldEnd, outOfRangeMessage(entities.FieldEnd))
	case !f.Start.Before(f.End):
		return apperrors.Validation(entities.FieldEnd, "start_time must be before end_time")
	case !f.RecurrencePattern.IsValid():
		return apperrors.Validation(entities.FieldRecurrencePattern, fmt.Sprintf("invalid recurrence pattern: %s", f.RecurrencePattern))
	}
	return nil
}

func outOfRangeMessage(field string) string {
	return fmt.Sprintf("%s must be between %d and %d", field, entities.MinEventTime.Year(), entities.MaxEventTime.Year())
}
