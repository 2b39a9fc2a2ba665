package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ersonp/calcore/internal/domain/entities"
)

const saveParticipantQuery = `
	INSERT INTO participants (event_id, user_id, role, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(event_id, user_id) DO UPDATE SET
		role = excluded.role
`

// SaveParticipant inserts a participant or updates the role of an existing one.
func (q *queries) SaveParticipant(ctx context.Context, p *entities.Participant) error {
	_, err := q.db.ExecContext(ctx, saveParticipantQuery,
		p.EventID,
		p.UserID,
		string(p.Role),
		toNanos(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving participant: %w", err)
	}
	return nil
}

// SaveParticipants upserts several participants with one prepared statement.
func (q *queries) SaveParticipants(ctx context.Context, participants []entities.Participant) error {
	if len(participants) == 0 {
		return nil
	}

	stmt, err := q.db.PrepareContext(ctx, saveParticipantQuery)
	if err != nil {
		return fmt.Errorf("preparing participant upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range participants {
		if _, err := stmt.ExecContext(ctx, p.EventID, p.UserID, string(p.Role), toNanos(p.CreatedAt)); err != nil {
			return fmt.Errorf("saving participant %s: %w", p.UserID, err)
		}
	}
	return nil
}

// FindParticipant finds the participant row of userID on eventID.
func (q *queries) FindParticipant(ctx context.Context, eventID, userID string) (*entities.Participant, error) {
	query := `
		SELECT event_id, user_id, role, created_at
		FROM participants
		WHERE event_id = ? AND user_id = ?
	`
	p, err := scanParticipant(q.db.QueryRowContext(ctx, query, eventID, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning participant: %w", err)
	}
	return p, nil
}

// ListParticipants lists the participants of an event ordered by user ID.
func (q *queries) ListParticipants(ctx context.Context, eventID string) ([]entities.Participant, error) {
	query := `
		SELECT event_id, user_id, role, created_at
		FROM participants
		WHERE event_id = ?
		ORDER BY user_id ASC
	`
	rows, err := q.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("querying participants: %w", err)
	}
	defer rows.Close()

	participants := make([]entities.Participant, 0, 8)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning participant: %w", err)
		}
		participants = append(participants, *p)
	}
	return participants, rows.Err()
}

// DeleteParticipant removes userID from eventID.
func (q *queries) DeleteParticipant(ctx context.Context, eventID, userID string) error {
	result, err := q.db.ExecContext(ctx, `DELETE FROM participants WHERE event_id = ? AND user_id = ?`, eventID, userID)
	if err != nil {
		return fmt.Errorf("deleting participant: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("participant not found: %s/%s", eventID, userID)
	}
	return nil
}

func scanParticipant(row scanner) (*entities.Participant, error) {
	var (
		p         entities.Participant
		role      string
		createdAt int64
	)
	if err := row.Scan(&p.EventID, &p.UserID, &role, &createdAt); err != nil {
		return nil, err
	}
	p.Role = entities.Role(role)
	p.CreatedAt = fromNanos(createdAt)
	return &p, nil
}
