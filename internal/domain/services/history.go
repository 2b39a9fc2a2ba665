package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/ersonp/calcore/internal/domain/entities"
	apperrors "github.com/ersonp/calcore/internal/domain/errors"
	"github.com/ersonp/calcore/internal/domain/ports"
)

// HistoryService reads the snapshot log of events and rolls events back to
// earlier versions.
//
// Any current participant may read an event's history. Once an event is
// deleted, the participants captured by its DELETE snapshot keep read access.
type HistoryService struct {
	store  ports.EventStore
	events *EventService
}

// NewHistoryService creates a new HistoryService. Rollbacks run through events.
func NewHistoryService(store ports.EventStore, events *EventService) *HistoryService {
	return &HistoryService{store: store, events: events}
}

// History returns all snapshots of an event, newest first.
func (s *HistoryService) History(ctx context.Context, principal entities.Principal, eventID string) ([]entities.Snapshot, error) {
	snapshots, err := s.readableSnapshots(ctx, principal, eventID)
	if err != nil {
		return nil, err
	}
	slices.Reverse(snapshots)
	return snapshots, nil
}

// Version returns one snapshot of an event.
func (s *HistoryService) Version(ctx context.Context, principal entities.Principal, eventID string, version int) (*entities.Snapshot, error) {
	if err := s.authorizeRead(ctx, principal, eventID); err != nil {
		return nil, err
	}
	return s.findVersion(ctx, eventID, version)
}

// Changelog returns every snapshot in version order with the fields that
// changed since the previous one. The first entry has no changes.
func (s *HistoryService) Changelog(ctx context.Context, principal entities.Principal, eventID string) ([]entities.ChangelogEntry, error) {
	snapshots, err := s.readableSnapshots(ctx, principal, eventID)
	if err != nil {
		return nil, err
	}

	entries := make([]entities.ChangelogEntry, len(snapshots))
	for i := range snapshots {
		snap := &snapshots[i]
		changes := []entities.FieldChange{}
		if i > 0 {
			changes = entities.CompareFields(&snapshots[i-1].Data.EventFields, &snap.Data.EventFields)
		}
		fields := make([]string, len(changes))
		for j, c := range changes {
			fields[j] = c.Field
		}
		entries[i] = entities.ChangelogEntry{
			Version:       snap.Version,
			ChangeType:    snap.ChangeType,
			ChangedBy:     snap.ChangedBy,
			Reason:        snap.Reason,
			ChangedAt:     snap.CreatedAt,
			ChangedFields: fields,
			Changes:       changes,
		}
	}
	return entries, nil
}

// Diff compares two versions of an event field by field.
func (s *HistoryService) Diff(ctx context.Context, principal entities.Principal, eventID string, version1, version2 int) (*entities.Diff, error) {
	if err := s.authorizeRead(ctx, principal, eventID); err != nil {
		return nil, err
	}
	v1, err := s.findVersion(ctx, eventID, version1)
	if err != nil {
		return nil, err
	}
	v2, err := s.findVersion(ctx, eventID, version2)
	if err != nil {
		return nil, err
	}

	changes := entities.CompareFields(&v1.Data.EventFields, &v2.Data.EventFields)
	diff := &entities.Diff{
		EventID:  eventID,
		Version1: version1,
		Version2: version2,
		Changes:  make([]entities.FieldDelta, len(changes)),
	}
	for i, c := range changes {
		diff.Changes[i] = entities.FieldDelta{Field: c.Field, Version1Value: c.Old, Version2Value: c.New}
	}
	return diff, nil
}

// Rollback restores the fields of an event from version. The rollback is
// recorded as a new UPDATE snapshot; history is never rewritten.
func (s *HistoryService) Rollback(ctx context.Context, principal entities.Principal, eventID string, version int) (*entities.Event, error) {
	return s.events.rollback(ctx, principal, eventID, version)
}

func (s *HistoryService) readableSnapshots(ctx context.Context, principal entities.Principal, eventID string) ([]entities.Snapshot, error) {
	if err := s.authorizeRead(ctx, principal, eventID); err != nil {
		return nil, err
	}
	snapshots, err := s.store.ListSnapshots(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	return snapshots, nil
}

func (s *HistoryService) authorizeRead(ctx context.Context, principal entities.Principal, eventID string) error {
	if err := requirePrincipal(principal); err != nil {
		return err
	}
	p, err := s.store.FindParticipant(ctx, eventID, principal.ID)
	if err != nil {
		return fmt.Errorf("finding participant: %w", err)
	}
	if p != nil {
		return nil
	}

	latest, err := s.store.FindLatestSnapshot(ctx, eventID)
	if err != nil {
		return fmt.Errorf("finding latest snapshot: %w", err)
	}
	if latest != nil && latest.ChangeType == entities.ChangeDelete &&
		slices.ContainsFunc(latest.Participants, func(p entities.Participant) bool { return p.UserID == principal.ID }) {
		return nil
	}
	return apperrors.NotFound("event", eventID)
}

func (s *HistoryService) findVersion(ctx context.Context, eventID string, version int) (*entities.Snapshot, error) {
	snap, err := s.store.FindSnapshot(ctx, eventID, version)
	if err != nil {
		return nil, fmt.Errorf("finding version: %w", err)
	}
	if snap == nil {
		return nil, apperrors.NotFound("version", fmt.Sprint(version))
	}
	return snap, nil
}
