package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/calcore/internal/domain/entities"
	apperrors "github.com/ersonp/calcore/internal/domain/errors"
)

func TestEventService_Create(t *testing.T) {
	t.Run("creates event with owner and snapshot", func(t *testing.T) {
		env := setupServices()
		ctx := context.Background()

		event, err := env.events.Create(ctx, alice, entities.EventFields{
			Title:    "  Standup  ",
			Start:    at(0),
			End:      at(1),
			Location: "Room 4",
		})
		require.NoError(t, err)
		require.NotNil(t, event)

		assert.NotEmpty(t, event.ID)
		assert.Equal(t, "Standup", event.Title)
		assert.Equal(t, event.CreatedAt, event.UpdatedAt)

		owner := env.store.Participants[event.ID]["alice"]
		assert.Equal(t, entities.RoleOwner, owner.Role)

		snaps := env.store.Snapshots[event.ID]
		require.Len(t, snaps, 1)
		assert.Equal(t, 1, snaps[0].Version)
		assert.Equal(t, entities.ChangeCreate, snaps[0].ChangeType)
		assert.Equal(t, "alice", snaps[0].ChangedBy)
		assert.Equal(t, "Standup", snaps[0].Data.Title)

		assert.Equal(t, 1, env.metrics.Mutations["create"])
		assert.Zero(t, env.metrics.Failures["create"])
	})

	t.Run("missing title", func(t *testing.T) {
		env := setupServices()

		_, err := env.events.Create(context.Background(), alice, fieldsAt("   ", 0, 1))
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Empty(t, env.store.Events)
	})

	t.Run("start must precede end", func(t *testing.T) {
		env := setupServices()

		_, err := env.events.Create(context.Background(), alice, fieldsAt("Backwards", 2, 1))
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrValidation)

		_, err = env.events.Create(context.Background(), alice, fieldsAt("Empty", 1, 1))
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("missing start time", func(t *testing.T) {
		env := setupServices()

		_, err := env.events.Create(context.Background(), alice, entities.EventFields{Title: "No start", End: at(1)})
		var appErr *apperrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, entities.FieldStart, appErr.Metadata["field"])
	})

	t.Run("times outside the supported range", func(t *testing.T) {
		env := setupServices()
		far := time.Date(2300, 1, 1, 10, 0, 0, 0, time.UTC)

		_, err := env.events.Create(context.Background(), alice, entities.EventFields{Title: "Far", Start: far, End: far.Add(time.Hour)})
		var appErr *apperrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeValidation, appErr.Code)
		assert.Equal(t, entities.FieldStart, appErr.Metadata["field"])

		early := time.Date(1899, 12, 31, 23, 0, 0, 0, time.UTC)
		_, err = env.events.Create(context.Background(), alice, entities.EventFields{Title: "Early", Start: early, End: early.Add(2 * time.Hour)})
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, entities.FieldStart, appErr.Metadata["field"])

		_, err = env.events.Create(context.Background(), alice, entities.EventFields{
			Title: "Last slot",
			Start: entities.MaxEventTime.Add(-time.Hour),
			End:   entities.MaxEventTime,
		})
		require.NoError(t, err)
		assert.Len(t, env.store.Events, 1)
	})

	t.Run("invalid recurrence pattern", func(t *testing.T) {
		env := setupServices()
		fields := fieldsAt("Gym", 0, 1)
		fields.IsRecurring = true
		fields.RecurrencePattern = "HOURLY"

		_, err := env.events.Create(context.Background(), alice, fields)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("overlap with own event conflicts", func(t *testing.T) {
		env := setupServices()
		env.createEvent(t, alice, fieldsAt("Morning", 0, 2))

		_, err := env.events.Create(context.Background(), alice, fieldsAt("Overlap", 1, 3))
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrScheduleConflict)
		assert.Len(t, env.store.Events, 1)
		assert.Equal(t, 1, env.metrics.Conflicts)
	})

	t.Run("back to back events do not conflict", func(t *testing.T) {
		env := setupServices()
		env.createEvent(t, alice, fieldsAt("First", 0, 1))

		_, err := env.events.Create(context.Background(), alice, fieldsAt("Second", 1, 2))
		require.NoError(t, err)
	})

	t.Run("other users events do not conflict", func(t *testing.T) {
		env := setupServices()
		env.createEvent(t, bob, fieldsAt("Bob's", 0, 2))

		_, err := env.events.Create(context.Background(), alice, fieldsAt("Alice's", 0, 2))
		require.NoError(t, err)
	})

	t.Run("snapshot failure leaves nothing behind", func(t *testing.T) {
		env := setupServices()
		env.store.SaveSnapshotErr = errors.New("disk full")

		_, err := env.events.Create(context.Background(), alice, fieldsAt("Doomed", 0, 1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.Equal(t, apperrors.CodeUnknown, apperrors.CodeOf(err))

		assert.Empty(t, env.store.Events)
		assert.Empty(t, env.store.Participants)
		assert.Equal(t, 1, env.store.RollbackCount)
		assert.Equal(t, 1, env.metrics.Failures["create"])
	})

	t.Run("requires principal", func(t *testing.T) {
		env := setupServices()

		_, err := env.events.Create(context.Background(), entities.Principal{}, fieldsAt("Anon", 0, 1))
		assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
	})
}

func TestEventService_Get(t *testing.T) {
	t.Run("participant reads through cache", func(t *testing.T) {
		env := setupServices()
		event := env.createEvent(t, alice, fieldsAt("Review", 0, 1))
		ctx := context.Background()

		got, err := env.events.Get(ctx, alice, event.ID)
		require.NoError(t, err)
		assert.Equal(t, event.ID, got.ID)
		assert.True(t, env.cache.Has(EventDetailKey(event.ID, "alice")))
		assert.Equal(t, DefaultCacheTTL, env.cache.TTLs[EventDetailKey(event.ID, "alice")])

		again, err := env.events.Get(ctx, alice, event.ID)
		require.NoError(t, err)
		assert.Equal(t, "Review", again.Title)
		assert.Equal(t, 1, env.cache.HitCount)
	})

	t.Run("non participant gets not found", func(t *testing.T) {
		env := setupServices()
		event := env.createEvent(t, alice, fieldsAt("Private", 0, 1))

		_, err := env.events.Get(context.Background(), bob, event.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.False(t, env.cache.Has(EventDetailKey(event.ID, "bob")))
	})

	t.Run("cache failure falls back to store", func(t *testing.T) {
		env := setupServices()
		event := env.createEvent(t, alice, fieldsAt("Review", 0, 1))
		env.cache.Err = errors.New("cache down")

		got, err := env.events.Get(context.Background(), alice, event.ID)
		require.NoError(t, err)
		assert.Equal(t, event.ID, got.ID)
	})

	t.Run("update invalidates detail for every participant", func(t *testing.T) {
		env := setupServices()
		event := env.createEvent(t, alice, fieldsAt("Review", 0, 1),
			entities.Grant{UserID: "bob", Role: entities.RoleViewer})
		ctx := context.Background()

		_, err := env.events.Get(ctx, alice, event.ID)
		require.NoError(t, err)
		_, err = env.events.Get(ctx, bob, event.ID)
		require.NoError(t, err)

		_, err = env.events.Update(ctx, alice, event.ID, entities.EventPatch{Title: mo.Some("Retro")}, "")
		require.NoError(t, err)
		assert.False(t, env.cache.Has(EventDetailKey(event.ID, "alice")))
		assert.False(t, env.cache.Has(EventDetailKey(event.ID, "bob")))

		got, err := env.events.Get(ctx, bob, event.ID)
		require.NoError(t, err)
		assert.Equal(t, "Retro", got.Title)
	})
}

func TestEventService_List(t *testing.T) {
	env := setupServices()
	ctx := context.Background()
	for i := range 12 {
		env.createEvent(t, alice, fieldsAt("Slot", i, i+1))
	}
	env.createEvent(t, alice, fieldsAt("Planning", 20, 21))
	env.createEvent(t, bob, fieldsAt("Bob only", 0, 1))

	t.Run("defaults to first page of ten", func(t *testing.T) {
		page, err := env.events.List(ctx, alice, entities.ListFilter{})
		require.NoError(t, err)
		assert.Equal(t, 13, page.Count)
		assert.Equal(t, 2, page.NumPages)
		assert.Equal(t, 1, page.CurrentPage)
		assert.Len(t, page.Results, entities.DefaultPageSize)
		assert.True(t, page.Results[0].Start.Equal(at(0)))
	})

	t.Run("second page", func(t *testing.T) {
		page, err := env.events.List(ctx, alice, entities.ListFilter{Page: 2})
		require.NoError(t, err)
		assert.Len(t, page.Results, 3)
		assert.Equal(t, 2, page.CurrentPage)
	})

	t.Run("title filter is case insensitive", func(t *testing.T) {
		page, err := env.events.List(ctx, alice, entities.ListFilter{Title: "PLAN"})
		require.NoError(t, err)
		require.Len(t, page.Results, 1)
		assert.Equal(t, "Planning", page.Results[0].Title)
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		page, err := env.events.List(ctx, bob, entities.ListFilter{Page: 5})
		require.NoError(t, err)
		assert.Empty(t, page.Results)
		assert.NotNil(t, page.Results)
		assert.Equal(t, 1, page.Count)
	})
}

func TestEventService_Update(t *testing.T) {
	t.Run("partial update records snapshot", func(t *testing.T) {
		env := setupServices()
		event := env.createEvent(t, alice, fieldsAt("Draft", 0, 1))

		updated, err := env.events.Update(context.Background(), alice, event.ID,
			entities.EventPatch{Title: mo.Some("Final")}, "rename")
		require.NoError(t, err)
		assert.Equal(t, "Final", updated.Title)
		assert.True(t, updated.Start.Equal(at(0)))

		snaps := env.store.Snapshots[event.ID]
		require.Len(t, snaps, 2)
		assert.Equal(t, 2, snaps[1].Version)
		assert.Equal(t, entities.ChangeUpdate, snaps[1].ChangeType)
		assert.Equal(t, "rename", snaps[1].Reason)
		assert.Equal(t, "Final", snaps[1].Data.Title)
		assert.Equal(t, "Final", env.store.Events[event.ID].Title)
	})

	t.Run("empty patch still records snapshot", func(t *testing.T) {
		env := setupServices()
		event := env.createEvent(t, alice, fieldsAt("Same", 0, 1))

		_, err := env.events.Update(context.Background(), alice, event.ID, entities.EventPatch{}, "")
		require.NoError(t, err)
		assert.Len(t, env.store.Snapshots[event.ID], 2)
	})

	t.Run("editor cannot update", func(t *testing.T) {
		env := setupServices()
		event := env.createEvent(t, alice, fieldsAt("Shared", 0, 1),
			entities.Grant{UserID: "bob", Role: entities.RoleEditor})

		_, err := env.events.Update(context.Background(), bob, event.ID, entities.EventPatch{Title: mo.Some("Mine")}, "")
		assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
		assert.Equal(t, "Shared", env.store.Events[event.ID].Title)
		assert.Len(t, env.store.Snapshots[event.ID], 1)
	})

	t.Run("missing event", func(t *testing.T) {
		env := setupServices()

		_, err := env.events.Update(context.Background(), alice, "nope", entities.EventPatch{}, "")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("partial time change is validated against stored value", func(t *testing.T) {
		env := setupServices()
		event := env.createEvent(t, alice, fieldsAt("Meeting", 2, 3))

		_, err := env.events.Update(context.Background(), alice, event.ID, entities.EventPatch{End: mo.Some(at(1))}, "")
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("conflict with another participant's event", func(t *testing.T) {
		env := setupServices()
		ctx := context.Background()
		event := env.createEvent(t, alice, fieldsAt("Sync", 0, 1),
			entities.Grant{UserID: "bob", Role: entities.RoleViewer})
		env.createEvent(t, bob, fieldsAt("Bob busy", 4, 6))

		_, err := env.events.Update(ctx, alice, event.ID,
			entities.EventPatch{Start: mo.Some(at(5)), End: mo.Some(at(7))}, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrScheduleConflict)
		assert.True(t, env.store.Events[event.ID].Start.Equal(at(0)))
	})

	t.Run("moving within own slot is not a conflict", func(t *testing.T) {
		env := setupServices()
		event := env.createEvent(t, alice, fieldsAt("Sync", 0, 2))

		_, err := env.events.Update(context.Background(), alice, event.ID,
			entities.EventPatch{Start: mo.Some(at(1)), End: mo.Some(at(3))}, "")
		require.NoError(t, err)
	})
}

func TestEventService_Delete(t *testing.T) {
	t.Run("records delete snapshot before removing", func(t *testing.T) {
		env := setupServices()
		ctx := context.Background()
		event := env.createEvent(t, alice, fieldsAt("Offsite", 0, 8),
			entities.Grant{UserID: "bob", Role: entities.RoleEditor})

		err := env.events.Delete(ctx, alice, event.ID, "cancelled")
		require.NoError(t, err)

		assert.NotContains(t, env.store.Events, event.ID)
		assert.Empty(t, env.store.Participants[event.ID])

		snaps := env.store.Snapshots[event.ID]
		require.Len(t, snaps, 2)
		last := snaps[len(snaps)-1]
		assert.Equal(t, entities.ChangeDelete, last.ChangeType)
		assert.Equal(t, "Offsite", last.Data.Title)
		assert.Equal(t, "cancelled", last.Reason)
		assert.Len(t, last.Participants, 2)

		_, err = env.events.Get(ctx, alice, event.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("editor cannot delete", func(t *testing.T) {
		env := setupServices()
		event := env.createEvent(t, alice, fieldsAt("Offsite", 0, 8),
			entities.Grant{UserID: "bob", Role: entities.RoleEditor})

		err := env.events.Delete(context.Background(), bob, event.ID, "")
		assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
		assert.Contains(t, env.store.Events, event.ID)
		assert.Len(t, env.store.Snapshots[event.ID], 1)
	})

	t.Run("no mutation after delete", func(t *testing.T) {
		env := setupServices()
		ctx := context.Background()
		event := env.createEvent(t, alice, fieldsAt("Gone", 0, 1))
		require.NoError(t, env.events.Delete(ctx, alice, event.ID, ""))

		_, err := env.events.Update(ctx, alice, event.ID, entities.EventPatch{Title: mo.Some("Back")}, "")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.ErrorIs(t, env.events.Delete(ctx, alice, event.ID, ""), apperrors.ErrNotFound)
		assert.Len(t, env.store.Snapshots[event.ID], 2)
	})

	t.Run("invalidates caches", func(t *testing.T) {
		env := setupServices()
		ctx := context.Background()
		event := env.createEvent(t, alice, fieldsAt("Gone", 0, 1))
		_, err := env.events.Get(ctx, alice, event.ID)
		require.NoError(t, err)
		_, err = env.permissions.List(ctx, alice, event.ID)
		require.NoError(t, err)

		require.NoError(t, env.events.Delete(ctx, alice, event.ID, ""))
		assert.False(t, env.cache.Has(EventDetailKey(event.ID, "alice")))
		assert.False(t, env.cache.Has(ParticipantsKey(event.ID)))
	})
}

func TestEventService_BulkCreate(t *testing.T) {
	t.Run("partial success", func(t *testing.T) {
		env := setupServices()

		result, err := env.events.BulkCreate(context.Background(), alice, []entities.EventFields{
			fieldsAt("One", 0, 1),
			fieldsAt("", 1, 2),
			fieldsAt("Three", 3, 2),
			fieldsAt("Four", 4, 5),
		})
		require.NoError(t, err)
		require.Len(t, result.Created, 2)
		require.Len(t, result.Errors, 2)

		assert.Equal(t, 1, result.Errors[0].Index)
		assert.Equal(t, entities.FieldTitle, result.Errors[0].Field)
		assert.Equal(t, 2, result.Errors[1].Index)
		assert.Equal(t, entities.FieldEnd, result.Errors[1].Field)

		for _, e := range result.Created {
			assert.Equal(t, entities.RoleOwner, env.store.Participants[e.ID]["alice"].Role)
			require.Len(t, env.store.Snapshots[e.ID], 1)
			assert.Equal(t, entities.ChangeCreate, env.store.Snapshots[e.ID][0].ChangeType)
		}
		assert.Equal(t, 1, env.store.TxCount)
	})

	t.Run("overlapping items are accepted", func(t *testing.T) {
		env := setupServices()
		env.createEvent(t, alice, fieldsAt("Existing", 0, 2))

		result, err := env.events.BulkCreate(context.Background(), alice, []entities.EventFields{
			fieldsAt("A", 0, 2),
			fieldsAt("B", 1, 3),
		})
		require.NoError(t, err)
		assert.Len(t, result.Created, 2)
		assert.Len(t, env.store.Events, 3)
	})

	t.Run("nothing valid", func(t *testing.T) {
		env := setupServices()

		result, err := env.events.BulkCreate(context.Background(), alice, []entities.EventFields{
			fieldsAt("", 0, 1),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		require.NotNil(t, result)
		assert.Empty(t, result.Created)
		assert.Len(t, result.Errors, 1)
		assert.Empty(t, env.store.Events)
	})

	t.Run("empty input", func(t *testing.T) {
		env := setupServices()

		_, err := env.events.BulkCreate(context.Background(), alice, nil)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("store failure creates nothing", func(t *testing.T) {
		env := setupServices()
		env.store.SaveSnapshotErr = errors.New("disk full")

		_, err := env.events.BulkCreate(context.Background(), alice, []entities.EventFields{
			fieldsAt("A", 0, 1),
			fieldsAt("B", 1, 2),
		})
		require.Error(t, err)
		assert.Empty(t, env.store.Events)
		assert.Empty(t, env.store.Participants)
	})
}
