package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ersonp/calcore/internal/domain/entities"
	"github.com/ersonp/calcore/internal/domain/mocks"
	"github.com/ersonp/calcore/internal/domain/services"
)

var (
	alice = entities.Principal{ID: "alice"}
	bob   = entities.Principal{ID: "bob"}
)

var exportTime = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type testEnv struct {
	store       *mocks.EventStore
	events      *EventHandler
	permissions *PermissionHandler
	history     *HistoryHandler
}

func setupHandlers() *testEnv {
	store := mocks.NewEventStore()
	cache := services.NewCacheInvalidator(mocks.NewCache(), 0, nil)

	eventService := services.NewEventService(store, cache, nil, nil)
	permissionService := services.NewPermissionService(store, cache, nil, nil)

	events := NewEventHandler(eventService, permissionService)
	events.now = func() time.Time { return exportTime }

	return &testEnv{
		store:       store,
		events:      events,
		permissions: NewPermissionHandler(permissionService),
		history:     NewHistoryHandler(services.NewHistoryService(store, eventService)),
	}
}

func (e *testEnv) create(t *testing.T, owner entities.Principal, title, start, end string) *entities.Event {
	t.Helper()
	event, err := e.events.CreateEvent(context.Background(), owner, EventInput{Title: title, StartTime: start, EndTime: end})
	require.NoError(t, err)
	return event
}

func ptr[T any](v T) *T {
	return &v
}
