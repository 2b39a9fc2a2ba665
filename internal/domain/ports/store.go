// Package ports defines interfaces for external service communication.
package ports

import (
	"context"
	"time"

	"github.com/ersonp/calcore/internal/domain/entities"
)

// EventRepository defines the data operations over events, participants and
// snapshots. Implementations return (nil, nil) from Find* methods when the
// row does not exist.
type EventRepository interface {
	// Event operations

	// InsertEvent stores a new event.
	InsertEvent(ctx context.Context, event *entities.Event) error

	// InsertEvents stores several new events in one batch.
	InsertEvents(ctx context.Context, events []entities.Event) error

	// UpdateEvent overwrites the fields of an existing event.
	UpdateEvent(ctx context.Context, event *entities.Event) error

	// DeleteEvent removes an event and all of its participant rows.
	DeleteEvent(ctx context.Context, eventID string) error

	// FindEvent finds an event by ID.
	FindEvent(ctx context.Context, eventID string) (*entities.Event, error)

	// ListEventsForUser lists events the user participates in, ordered by start
	// time, and returns the total count matching the filter.
	ListEventsForUser(ctx context.Context, userID string, filter entities.ListFilter) ([]entities.Event, int, error)

	// FindOverlappingEvents finds events of any of the given users whose
	// interval overlaps [start, end). excludeEventID is ignored when empty.
	FindOverlappingEvents(ctx context.Context, userIDs []string, start, end time.Time, excludeEventID string) ([]entities.Event, error)

	// Participant operations

	// SaveParticipant inserts a participant or updates the role of an existing one.
	SaveParticipant(ctx context.Context, participant *entities.Participant) error

	// SaveParticipants upserts several participants in one batch.
	SaveParticipants(ctx context.Context, participants []entities.Participant) error

	// FindParticipant finds the participant row of a user on an event.
	FindParticipant(ctx context.Context, eventID, userID string) (*entities.Participant, error)

	// ListParticipants lists all participants of an event ordered by user ID.
	ListParticipants(ctx context.Context, eventID string) ([]entities.Participant, error)

	// DeleteParticipant removes a participant row.
	DeleteParticipant(ctx context.Context, eventID, userID string) error

	// Snapshot operations

	// NextVersion returns the version number the next snapshot of an event must use.
	NextVersion(ctx context.Context, eventID string) (int, error)

	// SaveSnapshot appends a snapshot. Saving an existing (event, version) fails.
	SaveSnapshot(ctx context.Context, snapshot *entities.Snapshot) error

	// SaveSnapshots appends several snapshots in one batch.
	SaveSnapshots(ctx context.Context, snapshots []entities.Snapshot) error

	// ListSnapshots lists all snapshots of an event ordered by version ascending.
	ListSnapshots(ctx context.Context, eventID string) ([]entities.Snapshot, error)

	// FindSnapshot finds one version of an event.
	FindSnapshot(ctx context.Context, eventID string, version int) (*entities.Snapshot, error)

	// FindLatestSnapshot finds the most recent snapshot of an event.
	FindLatestSnapshot(ctx context.Context, eventID string) (*entities.Snapshot, error)
}

// EventStore is the persistence collaborator of the event core.
type EventStore interface {
	EventRepository

	// WithTx runs fn in a single transaction. The transaction commits when fn
	// returns nil and rolls back otherwise; fn must only use the repository it
	// is given.
	WithTx(ctx context.Context, fn func(repo EventRepository) error) error

	// EnsureSchema creates the storage schema if it doesn't exist.
	EnsureSchema(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
