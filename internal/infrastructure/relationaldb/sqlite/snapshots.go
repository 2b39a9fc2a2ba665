package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ersonp/calcore/internal/domain/entities"
)

const snapshotColumns = `id, event_id, version, change_type, changed_by, reason, data, participants, created_at`

const insertSnapshotQuery = `
	INSERT INTO event_snapshots (` + snapshotColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// NextVersion returns the version number the next snapshot of eventID gets.
func (q *queries) NextVersion(ctx context.Context, eventID string) (int, error) {
	var next int
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM event_snapshots WHERE event_id = ?`,
		eventID,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("reading next version: %w", err)
	}
	return next, nil
}

// SaveSnapshot appends a snapshot.
func (q *queries) SaveSnapshot(ctx context.Context, s *entities.Snapshot) error {
	args, err := snapshotArgs(s)
	if err != nil {
		return err
	}
	if _, err := q.db.ExecContext(ctx, insertSnapshotQuery, args...); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// SaveSnapshots appends several snapshots with one prepared statement.
func (q *queries) SaveSnapshots(ctx context.Context, snapshots []entities.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	stmt, err := q.db.PrepareContext(ctx, insertSnapshotQuery)
	if err != nil {
		return fmt.Errorf("preparing snapshot insert: %w", err)
	}
	defer stmt.Close()

	for i := range snapshots {
		args, err := snapshotArgs(&snapshots[i])
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("saving snapshot of %s: %w", snapshots[i].EventID, err)
		}
	}
	return nil
}

// ListSnapshots lists all snapshots of an event, ordered by version ascending.
func (q *queries) ListSnapshots(ctx context.Context, eventID string) ([]entities.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM event_snapshots WHERE event_id = ? ORDER BY version ASC`
	rows, err := q.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]entities.Snapshot, 0, 16)
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *s)
	}
	return snapshots, rows.Err()
}

// FindSnapshot finds one version of an event.
func (q *queries) FindSnapshot(ctx context.Context, eventID string, version int) (*entities.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM event_snapshots WHERE event_id = ? AND version = ?`
	s, err := scanSnapshot(q.db.QueryRowContext(ctx, query, eventID, version))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// FindLatestSnapshot finds the most recent snapshot of an event.
func (q *queries) FindLatestSnapshot(ctx context.Context, eventID string) (*entities.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM event_snapshots
		WHERE event_id = ?
		ORDER BY version DESC
		LIMIT 1
	`
	s, err := scanSnapshot(q.db.QueryRowContext(ctx, query, eventID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func snapshotArgs(s *entities.Snapshot) ([]any, error) {
	data, err := json.Marshal(s.Data)
	if err != nil {
		return nil, fmt.Errorf("marshaling event data: %w", err)
	}

	var participants sql.NullString
	if len(s.Participants) > 0 {
		raw, err := json.Marshal(s.Participants)
		if err != nil {
			return nil, fmt.Errorf("marshaling participants: %w", err)
		}
		participants = sql.NullString{String: string(raw), Valid: true}
	}

	return []any{
		s.ID,
		s.EventID,
		s.Version,
		string(s.ChangeType),
		s.ChangedBy,
		s.Reason,
		string(data),
		participants,
		toNanos(s.CreatedAt),
	}, nil
}

// scanSnapshot scans a snapshot row. sql.ErrNoRows is returned unwrapped.
func scanSnapshot(row scanner) (*entities.Snapshot, error) {
	var (
		s                entities.Snapshot
		changeType, data string
		reason, members  sql.NullString
		createdAt        int64
	)
	err := row.Scan(
		&s.ID,
		&s.EventID,
		&s.Version,
		&changeType,
		&s.ChangedBy,
		&reason,
		&data,
		&members,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning snapshot: %w", err)
	}

	s.ChangeType = entities.ChangeType(changeType)
	s.Reason = reason.String
	s.CreatedAt = fromNanos(createdAt)

	if err := json.Unmarshal([]byte(data), &s.Data); err != nil {
		return nil, fmt.Errorf("unmarshaling event data: %w", err)
	}
	if members.Valid {
		if err := json.Unmarshal([]byte(members.String), &s.Participants); err != nil {
			return nil, fmt.Errorf("unmarshaling participants: %w", err)
		}
	}
	return &s, nil
}
