package services

import (
	"context"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/calcore/internal/domain/entities"
	apperrors "github.com/ersonp/calcore/internal/domain/errors"
)

// renameThreeTimes creates an event and renames it three times, leaving
// four snapshots.
func renameThreeTimes(t *testing.T, env *testEnv) *entities.Event {
	t.Helper()
	ctx := context.Background()

	event := env.createEvent(t, alice, fieldsAt("v1", 0, 1),
		entities.Grant{UserID: "bob", Role: entities.RoleViewer})
	for _, title := range []string{"v2", "v3", "v4"} {
		_, err := env.events.Update(ctx, alice, event.ID, entities.EventPatch{Title: mo.Some(title)}, "retitle "+title)
		require.NoError(t, err)
	}
	return event
}

func TestHistoryService_History(t *testing.T) {
	env := setupServices()
	event := renameThreeTimes(t, env)
	ctx := context.Background()

	t.Run("newest first", func(t *testing.T) {
		snaps, err := env.history.History(ctx, bob, event.ID)
		require.NoError(t, err)
		require.Len(t, snaps, 4)
		for i, want := range []int{4, 3, 2, 1} {
			assert.Equal(t, want, snaps[i].Version)
		}
	})

	t.Run("outsider gets not found", func(t *testing.T) {
		_, err := env.history.History(ctx, carol, event.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("single version", func(t *testing.T) {
		snap, err := env.history.Version(ctx, alice, event.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, "v2", snap.Data.Title)
		assert.Equal(t, "retitle v2", snap.Reason)

		_, err = env.history.Version(ctx, alice, event.ID, 9)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestHistoryService_Changelog(t *testing.T) {
	env := setupServices()
	event := renameThreeTimes(t, env)

	entries, err := env.history.Changelog(context.Background(), alice, event.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, entities.ChangeCreate, entries[0].ChangeType)
	assert.Empty(t, entries[0].ChangedFields)
	assert.NotNil(t, entries[0].Changes)

	for i := 1; i < 4; i++ {
		assert.Equal(t, i+1, entries[i].Version)
		assert.Equal(t, entities.ChangeUpdate, entries[i].ChangeType)
		assert.Equal(t, []string{entities.FieldTitle}, entries[i].ChangedFields)
		assert.Equal(t, "alice", entries[i].ChangedBy)
	}
	assert.Equal(t, "v3", entries[2].Changes[0].Old)
	assert.Equal(t, "v4", entries[3].Changes[0].New)
}

func TestHistoryService_Diff(t *testing.T) {
	env := setupServices()
	ctx := context.Background()
	event := env.createEvent(t, alice, fieldsAt("Kickoff", 0, 1))
	_, err := env.events.Update(ctx, alice, event.ID, entities.EventPatch{
		Title:    mo.Some("Kickoff v2"),
		Location: mo.Some("HQ"),
	}, "")
	require.NoError(t, err)
	_, err = env.events.Update(ctx, alice, event.ID, entities.EventPatch{End: mo.Some(at(2))}, "")
	require.NoError(t, err)

	t.Run("non adjacent versions", func(t *testing.T) {
		diff, err := env.history.Diff(ctx, alice, event.ID, 1, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{entities.FieldTitle, entities.FieldEnd, entities.FieldLocation}, diff.ChangedFields())
		assert.Equal(t, "Kickoff", diff.Changes[0].Version1Value)
		assert.Equal(t, "Kickoff v2", diff.Changes[0].Version2Value)
	})

	t.Run("symmetric", func(t *testing.T) {
		forward, err := env.history.Diff(ctx, alice, event.ID, 1, 3)
		require.NoError(t, err)
		backward, err := env.history.Diff(ctx, alice, event.ID, 3, 1)
		require.NoError(t, err)

		require.Equal(t, forward.ChangedFields(), backward.ChangedFields())
		for i := range forward.Changes {
			assert.Equal(t, forward.Changes[i].Version1Value, backward.Changes[i].Version2Value)
			assert.Equal(t, forward.Changes[i].Version2Value, backward.Changes[i].Version1Value)
		}
	})

	t.Run("same version is empty", func(t *testing.T) {
		diff, err := env.history.Diff(ctx, alice, event.ID, 2, 2)
		require.NoError(t, err)
		assert.Empty(t, diff.Changes)
	})

	t.Run("unknown version", func(t *testing.T) {
		_, err := env.history.Diff(ctx, alice, event.ID, 1, 7)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestHistoryService_Rollback(t *testing.T) {
	t.Run("restores fields as a new version", func(t *testing.T) {
		env := setupServices()
		event := renameThreeTimes(t, env)
		ctx := context.Background()

		restored, err := env.history.Rollback(ctx, alice, event.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, "v2", restored.Title)
		assert.Equal(t, "v2", env.store.Events[event.ID].Title)

		snaps := env.store.Snapshots[event.ID]
		require.Len(t, snaps, 5)
		last := snaps[4]
		assert.Equal(t, 5, last.Version)
		assert.Equal(t, entities.ChangeUpdate, last.ChangeType)
		assert.Equal(t, "rollback to version 2", last.Reason)
		assert.Equal(t, "v4", snaps[3].Data.Title)

		diff, err := env.history.Diff(ctx, alice, event.ID, 2, 5)
		require.NoError(t, err)
		assert.Empty(t, diff.Changes)
	})

	t.Run("viewer cannot roll back", func(t *testing.T) {
		env := setupServices()
		event := renameThreeTimes(t, env)

		_, err := env.history.Rollback(context.Background(), bob, event.ID, 1)
		assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
		assert.Len(t, env.store.Snapshots[event.ID], 4)
	})

	t.Run("unknown version", func(t *testing.T) {
		env := setupServices()
		event := renameThreeTimes(t, env)

		_, err := env.history.Rollback(context.Background(), alice, event.ID, 42)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Len(t, env.store.Snapshots[event.ID], 4)
		assert.Equal(t, "v4", env.store.Events[event.ID].Title)
	})

	t.Run("restores a range that now overlaps", func(t *testing.T) {
		env := setupServices()
		ctx := context.Background()
		event := env.createEvent(t, alice, fieldsAt("Moving", 0, 1))
		_, err := env.events.Update(ctx, alice, event.ID,
			entities.EventPatch{Start: mo.Some(at(5)), End: mo.Some(at(6))}, "")
		require.NoError(t, err)
		env.createEvent(t, alice, fieldsAt("Took the slot", 0, 1))

		restored, err := env.history.Rollback(ctx, alice, event.ID, 1)
		require.NoError(t, err)
		assert.True(t, restored.Start.Equal(at(0)))
	})
}

func TestHistoryService_DeletedEvent(t *testing.T) {
	env := setupServices()
	ctx := context.Background()
	event := env.createEvent(t, alice, fieldsAt("Launch", 0, 1),
		entities.Grant{UserID: "bob", Role: entities.RoleViewer})
	_, err := env.events.Update(ctx, alice, event.ID, entities.EventPatch{Title: mo.Some("Launch!")}, "")
	require.NoError(t, err)
	require.NoError(t, env.events.Delete(ctx, alice, event.ID, "scrapped"))

	t.Run("delete is the last entry", func(t *testing.T) {
		entries, err := env.history.Changelog(ctx, bob, event.ID)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, entities.ChangeDelete, entries[2].ChangeType)
		assert.Empty(t, entries[2].ChangedFields)

		snaps, err := env.history.History(ctx, alice, event.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.ChangeDelete, snaps[0].ChangeType)
		assert.Equal(t, "Launch!", snaps[0].Data.Title)
	})

	t.Run("outsiders still get not found", func(t *testing.T) {
		_, err := env.history.History(ctx, carol, event.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("rollback of deleted event", func(t *testing.T) {
		_, err := env.history.Rollback(ctx, alice, event.ID, 1)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}
