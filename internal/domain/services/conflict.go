package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ersonp/calcore/internal/domain/entities"
	apperrors "github.com/ersonp/calcore/internal/domain/errors"
	"github.com/ersonp/calcore/internal/domain/ports"
)

// ConflictDetector answers whether a time range collides with the existing
// events of a set of users. Intervals are half-open, so back-to-back events
// never conflict.
type ConflictDetector struct{}

// NewConflictDetector creates a ConflictDetector.
func NewConflictDetector() *ConflictDetector {
	return &ConflictDetector{}
}

// Conflicts returns the events of any of userIDs overlapping [start, end),
// ignoring excludeEventID.
func (d *ConflictDetector) Conflicts(ctx context.Context, repo ports.EventRepository, userIDs []string, start, end time.Time, excludeEventID string) ([]entities.Event, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	candidates, err := repo.FindOverlappingEvents(ctx, userIDs, start, end, excludeEventID)
	if err != nil {
		return nil, fmt.Errorf("finding overlapping events: %w", err)
	}

	conflicts := candidates[:0]
	for _, e := range candidates {
		if e.ID != excludeEventID && e.Overlaps(start, end) {
			conflicts = append(conflicts, e)
		}
	}
	return conflicts, nil
}

// HasConflict reports whether any of userIDs has an event overlapping [start, end).
func (d *ConflictDetector) HasConflict(ctx context.Context, repo ports.EventRepository, userIDs []string, start, end time.Time, excludeEventID string) (bool, error) {
	conflicts, err := d.Conflicts(ctx, repo, userIDs, start, end, excludeEventID)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}

// Check returns a schedule conflict error naming the colliding events, if any.
func (d *ConflictDetector) Check(ctx context.Context, repo ports.EventRepository, userIDs []string, start, end time.Time, excludeEventID string) error {
	conflicts, err := d.Conflicts(ctx, repo, userIDs, start, end, excludeEventID)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		return nil
	}

	ids := make([]string, len(conflicts))
	for i, e := range conflicts {
		ids[i] = e.ID
	}
	return apperrors.WithMetadata(apperrors.CodeScheduleConflict,
		"this event conflicts with an existing event",
		map[string]string{"conflicting_event_ids": strings.Join(ids, ",")})
}
