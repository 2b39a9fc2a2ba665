package mocks

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ersonp/calcore/internal/domain/entities"
	"github.com/ersonp/calcore/internal/domain/ports"
)

// EventStore is an in-memory implementation of ports.EventStore.
// WithTx is serialized and restores the previous state when fn fails.
type EventStore struct {
	Events       map[string]entities.Event
	Participants map[string]map[string]entities.Participant // event ID -> user ID
	Snapshots    map[string][]entities.Snapshot

	// Err is returned by every operation when set.
	Err error
	// SaveSnapshotErr is returned by snapshot appends only.
	SaveSnapshotErr error

	TxCount       int
	RollbackCount int

	mu   sync.RWMutex
	txMu sync.Mutex
}

var _ ports.EventStore = (*EventStore)(nil)

// NewEventStore creates an empty in-memory store.
func NewEventStore() *EventStore {
	return &EventStore{
		Events:       make(map[string]entities.Event),
		Participants: make(map[string]map[string]entities.Participant),
		Snapshots:    make(map[string][]entities.Snapshot),
	}
}

// WithTx runs fn against the store and undoes its writes if fn fails.
func (m *EventStore) WithTx(_ context.Context, fn func(repo ports.EventRepository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	m.TxCount++
	events, participants, snapshots := m.cloneState()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.Events, m.Participants, m.Snapshots = events, participants, snapshots
		m.RollbackCount++
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *EventStore) cloneState() (map[string]entities.Event, map[string]map[string]entities.Participant, map[string][]entities.Snapshot) {
	events := make(map[string]entities.Event, len(m.Events))
	for id, e := range m.Events {
		events[id] = e
	}
	participants := make(map[string]map[string]entities.Participant, len(m.Participants))
	for id, byUser := range m.Participants {
		cp := make(map[string]entities.Participant, len(byUser))
		for u, p := range byUser {
			cp[u] = p
		}
		participants[id] = cp
	}
	snapshots := make(map[string][]entities.Snapshot, len(m.Snapshots))
	for id, list := range m.Snapshots {
		snapshots[id] = slices.Clone(list)
	}
	return events, participants, snapshots
}

// EnsureSchema is a no-op.
func (m *EventStore) EnsureSchema(_ context.Context) error {
	return m.Err
}

// Close is a no-op.
func (m *EventStore) Close() error {
	return nil
}

// Event methods.

// InsertEvent stores a new event.
func (m *EventStore) InsertEvent(_ context.Context, event *entities.Event) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Events[event.ID]; ok {
		return fmt.Errorf("event already exists: %s", event.ID)
	}
	m.Events[event.ID] = *event
	return nil
}

// InsertEvents stores several new events.
func (m *EventStore) InsertEvents(ctx context.Context, events []entities.Event) error {
	for i := range events {
		if err := m.InsertEvent(ctx, &events[i]); err != nil {
			return err
		}
	}
	return nil
}

// UpdateEvent overwrites an existing event.
func (m *EventStore) UpdateEvent(_ context.Context, event *entities.Event) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Events[event.ID]; !ok {
		return fmt.Errorf("event not found: %s", event.ID)
	}
	m.Events[event.ID] = *event
	return nil
}

// DeleteEvent removes an event and its participants.
func (m *EventStore) DeleteEvent(_ context.Context, eventID string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Events[eventID]; !ok {
		return fmt.Errorf("event not found: %s", eventID)
	}
	delete(m.Events, eventID)
	delete(m.Participants, eventID)
	return nil
}

// FindEvent finds an event by ID.
func (m *EventStore) FindEvent(_ context.Context, eventID string) (*entities.Event, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.Events[eventID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// ListEventsForUser lists the user's events matching the filter.
func (m *EventStore) ListEventsForUser(_ context.Context, userID string, filter entities.ListFilter) ([]entities.Event, int, error) {
	if m.Err != nil {
		return nil, 0, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := strings.ToLower(filter.Title)
	var matched []entities.Event
	for id, byUser := range m.Participants {
		if _, ok := byUser[userID]; !ok {
			continue
		}
		e, ok := m.Events[id]
		if !ok {
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(e.Title), title) {
			continue
		}
		matched = append(matched, e)
	}
	sortEvents(matched)

	total := len(matched)
	offset := filter.Offset()
	if offset >= total {
		return []entities.Event{}, total, nil
	}
	end := min(offset+filter.PageSize, total)
	return matched[offset:end], total, nil
}

// FindOverlappingEvents finds overlapping events of any of the users.
func (m *EventStore) FindOverlappingEvents(_ context.Context, userIDs []string, start, end time.Time, excludeEventID string) ([]entities.Event, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []entities.Event
	for id, byUser := range m.Participants {
		if id == excludeEventID {
			continue
		}
		involved := false
		for _, u := range userIDs {
			if _, ok := byUser[u]; ok {
				involved = true
				break
			}
		}
		if !involved {
			continue
		}
		e, ok := m.Events[id]
		if ok && e.Overlaps(start, end) {
			result = append(result, e)
		}
	}
	sortEvents(result)
	return result, nil
}

// Participant methods.

// SaveParticipant upserts a participant.
func (m *EventStore) SaveParticipant(_ context.Context, p *entities.Participant) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byUser, ok := m.Participants[p.EventID]
	if !ok {
		byUser = make(map[string]entities.Participant)
		m.Participants[p.EventID] = byUser
	}
	if existing, ok := byUser[p.UserID]; ok {
		existing.Role = p.Role
		byUser[p.UserID] = existing
		return nil
	}
	byUser[p.UserID] = *p
	return nil
}

// SaveParticipants upserts several participants.
func (m *EventStore) SaveParticipants(ctx context.Context, participants []entities.Participant) error {
	for i := range participants {
		if err := m.SaveParticipant(ctx, &participants[i]); err != nil {
			return err
		}
	}
	return nil
}

// FindParticipant finds a participant row.
func (m *EventStore) FindParticipant(_ context.Context, eventID, userID string) (*entities.Participant, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.Participants[eventID][userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// ListParticipants lists participants ordered by user ID.
func (m *EventStore) ListParticipants(_ context.Context, eventID string) ([]entities.Participant, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]entities.Participant, 0, len(m.Participants[eventID]))
	for _, p := range m.Participants[eventID] {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UserID < result[j].UserID
	})
	return result, nil
}

// DeleteParticipant removes a participant row.
func (m *EventStore) DeleteParticipant(_ context.Context, eventID, userID string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Participants[eventID][userID]; !ok {
		return fmt.Errorf("participant not found: %s/%s", eventID, userID)
	}
	delete(m.Participants[eventID], userID)
	return nil
}

// Snapshot methods.

// NextVersion returns the next version number of an event.
func (m *EventStore) NextVersion(_ context.Context, eventID string) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.Snapshots[eventID]
	if len(list) == 0 {
		return 1, nil
	}
	return list[len(list)-1].Version + 1, nil
}

// SaveSnapshot appends a snapshot.
func (m *EventStore) SaveSnapshot(_ context.Context, s *entities.Snapshot) error {
	if m.Err != nil {
		return m.Err
	}
	if m.SaveSnapshotErr != nil {
		return m.SaveSnapshotErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Snapshots[s.EventID] {
		if existing.Version == s.Version {
			return fmt.Errorf("snapshot version %d already exists for event %s", s.Version, s.EventID)
		}
	}
	m.Snapshots[s.EventID] = append(m.Snapshots[s.EventID], *s)
	sort.Slice(m.Snapshots[s.EventID], func(i, j int) bool {
		return m.Snapshots[s.EventID][i].Version < m.Snapshots[s.EventID][j].Version
	})
	return nil
}

// SaveSnapshots appends several snapshots.
func (m *EventStore) SaveSnapshots(ctx context.Context, snapshots []entities.Snapshot) error {
	for i := range snapshots {
		if err := m.SaveSnapshot(ctx, &snapshots[i]); err != nil {
			return err
		}
	}
	return nil
}

// ListSnapshots lists snapshots ordered by version ascending.
func (m *EventStore) ListSnapshots(_ context.Context, eventID string) ([]entities.Snapshot, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.Snapshots[eventID]), nil
}

// FindSnapshot finds one version of an event.
func (m *EventStore) FindSnapshot(_ context.Context, eventID string, version int) (*entities.Snapshot, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.Snapshots[eventID] {
		if s.Version == version {
			return &s, nil
		}
	}
	return nil, nil
}

// FindLatestSnapshot finds the most recent snapshot of an event.
func (m *EventStore) FindLatestSnapshot(_ context.Context, eventID string) (*entities.Snapshot, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.Snapshots[eventID]
	if len(list) == 0 {
		return nil, nil
	}
	latest := list[len(list)-1]
	return &latest, nil
}

// sortEvents orders events by start time, then ID, for deterministic results.
func sortEvents(events []entities.Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].ID < events[j].ID
	})
}
