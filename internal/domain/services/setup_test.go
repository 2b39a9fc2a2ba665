package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ersonp/calcore/internal/domain/entities"
	"github.com/ersonp/calcore/internal/domain/mocks"
)

var (
	alice = entities.Principal{ID: "alice"}
	bob   = entities.Principal{ID: "bob"}
	carol = entities.Principal{ID: "carol"}
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// at returns baseTime shifted by h hours.
func at(h int) time.Time {
	return baseTime.Add(time.Duration(h) * time.Hour)
}

func fieldsAt(title string, startHour, endHour int) entities.EventFields {
	return entities.EventFields{Title: title, Start: at(startHour), End: at(endHour)}
}

type testEnv struct {
	store       *mocks.EventStore
	cache       *mocks.Cache
	metrics     *mocks.Metrics
	events      *EventService
	permissions *PermissionService
	history     *HistoryService
}

func setupServices() *testEnv {
	store := mocks.NewEventStore()
	cache := mocks.NewCache()
	metrics := mocks.NewMetrics()
	invalidator := NewCacheInvalidator(cache, 0, nil)

	events := NewEventService(store, invalidator, metrics, nil)
	return &testEnv{
		store:       store,
		cache:       cache,
		metrics:     metrics,
		events:      events,
		permissions: NewPermissionService(store, invalidator, metrics, nil),
		history:     NewHistoryService(store, events),
	}
}

// createEvent creates an event owned by owner and shares it with the given roles.
func (e *testEnv) createEvent(t *testing.T, owner entities.Principal, fields entities.EventFields, grants ...entities.Grant) *entities.Event {
	t.Helper()
	ctx := context.Background()

	event, err := e.events.Create(ctx, owner, fields)
	require.NoError(t, err)
	if len(grants) > 0 {
		_, err = e.permissions.Share(ctx, owner, event.ID, grants)
		require.NoError(t, err)
	}
	return event
}
