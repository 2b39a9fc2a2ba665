package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ersonp/calcore/internal/domain/entities"
)

const eventColumns = `e.id, e.title, e.description, e.start_time, e.end_time, e.location,
	e.is_recurring, e.recurrence_pattern, e.created_at, e.updated_at`

const insertEventQuery = `
	INSERT INTO events (id, title, title_folded, description, start_time, end_time, location,
		is_recurring, recurrence_pattern, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// InsertEvent stores a new event.
func (q *queries) InsertEvent(ctx context.Context, event *entities.Event) error {
	_, err := q.db.ExecContext(ctx, insertEventQuery, eventArgs(event)...)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// InsertEvents stores several new events with one prepared statement.
func (q *queries) InsertEvents(ctx context.Context, events []entities.Event) error {
	if len(events) == 0 {
		return nil
	}

	stmt, err := q.db.PrepareContext(ctx, insertEventQuery)
	if err != nil {
		return fmt.Errorf("preparing event insert: %w", err)
	}
	defer stmt.Close()

	for i := range events {
		if _, err := stmt.ExecContext(ctx, eventArgs(&events[i])...); err != nil {
			return fmt.Errorf("inserting event %s: %w", events[i].ID, err)
		}
	}
	return nil
}

// UpdateEvent overwrites the fields of an existing event.
func (q *queries) UpdateEvent(ctx context.Context, event *entities.Event) error {
	query := `
		UPDATE events SET
			title = ?, title_folded = ?, description = ?, start_time = ?, end_time = ?, location = ?,
			is_recurring = ?, recurrence_pattern = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := q.db.ExecContext(ctx, query,
		event.Title,
		foldTitle(event.Title),
		event.Description,
		toNanos(event.Start),
		toNanos(event.End),
		event.Location,
		event.IsRecurring,
		string(event.RecurrencePattern),
		toNanos(event.UpdatedAt),
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("updating event: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("event not found: %s", event.ID)
	}
	return nil
}

// DeleteEvent deletes an event and its participants.
func (q *queries) DeleteEvent(ctx context.Context, eventID string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM participants WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("deleting participants: %w", err)
	}
	result, err := q.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, eventID)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("event not found: %s", eventID)
	}
	return nil
}

// FindEvent finds an event by ID.
func (q *queries) FindEvent(ctx context.Context, eventID string) (*entities.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.id = ?`
	event, err := scanEvent(q.db.QueryRowContext(ctx, query, eventID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning event: %w", err)
	}
	return event, nil
}

// ListEventsForUser lists one page of the events userID participates in,
// ordered by start time, and the total number of matching events.
func (q *queries) ListEventsForUser(ctx context.Context, userID string, filter entities.ListFilter) ([]entities.Event, int, error) {
	where := `FROM events e JOIN participants p ON p.event_id = e.id WHERE p.user_id = ?`
	args := []any{userID}
	if filter.Title != "" {
		where += ` AND e.title_folded LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(foldTitle(filter.Title))+"%")
	}

	var total int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting events: %w", err)
	}

	query := `SELECT ` + eventColumns + ` ` + where + ` ORDER BY e.start_time ASC, e.id ASC LIMIT ? OFFSET ?`
	events, err := q.queryEvents(ctx, query, append(args, filter.PageSize, filter.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// FindOverlappingEvents finds events of any of userIDs overlapping the
// half-open range [start, end), excluding excludeEventID.
func (q *queries) FindOverlappingEvents(ctx context.Context, userIDs []string, start, end time.Time, excludeEventID string) ([]entities.Event, error) {
	if len(userIDs) == 0 {
		return []entities.Event{}, nil
	}

	// Build placeholders for IN clause
	placeholders := make([]string, len(userIDs))
	args := make([]any, 0, len(userIDs)+3)
	for i, id := range userIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	args = append(args, excludeEventID, toNanos(end), toNanos(start))

	query := fmt.Sprintf(`
		SELECT DISTINCT %s
		FROM events e
		JOIN participants p ON p.event_id = e.id
		WHERE p.user_id IN (%s)
			AND e.id <> ?
			AND e.start_time < ?
			AND e.end_time > ?
		ORDER BY e.start_time ASC, e.id ASC
	`, eventColumns, strings.Join(placeholders, ","))

	return q.queryEvents(ctx, query, args...)
}

func (q *queries) queryEvents(ctx context.Context, query string, args ...any) ([]entities.Event, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	events := make([]entities.Event, 0, 16)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*entities.Event, error) {
	var (
		e                                entities.Event
		start, end, createdAt, updatedAt int64
		pattern                          string
	)
	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.Description,
		&start,
		&end,
		&e.Location,
		&e.IsRecurring,
		&pattern,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Start = fromNanos(start)
	e.End = fromNanos(end)
	e.RecurrencePattern = entities.RecurrencePattern(pattern)
	e.CreatedAt = fromNanos(createdAt)
	e.UpdatedAt = fromNanos(updatedAt)
	return &e, nil
}

func eventArgs(e *entities.Event) []any {
	return []any{
		e.ID,
		e.Title,
		foldTitle(e.Title),
		e.Description,
		toNanos(e.Start),
		toNanos(e.End),
		e.Location,
		e.IsRecurring,
		string(e.RecurrencePattern),
		toNanos(e.CreatedAt),
		toNanos(e.UpdatedAt),
	}
}

// toNanos stores the zero time as 0 so it reads back as the zero time.
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// foldTitle lowercases a title for the case-insensitive title filter. SQLite
// LIKE only folds ASCII, so the folded form is stored next to the title.
func foldTitle(title string) string {
	return strings.ToLower(title)
}

// escapeLike escapes LIKE wildcards so s matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
