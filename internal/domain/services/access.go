package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ersonp/calcore/internal/domain/entities"
	apperrors "github.com/ersonp/calcore/internal/domain/errors"
	"github.com/ersonp/calcore/internal/domain/ports"
)

// authorize loads an event and checks that userID holds one of roles on it.
func authorize(ctx context.Context, repo ports.EventRepository, eventID, userID, action string, roles ...entities.Role) (*entities.Event, *entities.Participant, error) {
	event, err := repo.FindEvent(ctx, eventID)
	if err != nil {
		return nil, nil, fmt.Errorf("finding event: %w", err)
	}
	if event == nil {
		return nil, nil, apperrors.NotFound("event", eventID)
	}

	p, err := repo.FindParticipant(ctx, eventID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("finding participant: %w", err)
	}
	if p == nil || !slices.Contains(roles, p.Role) {
		return nil, nil, apperrors.NotAuthorized(action, eventID, userID)
	}
	return event, p, nil
}

func requirePrincipal(principal entities.Principal) error {
	if principal.ID == "" {
		return apperrors.New(apperrors.CodeNotAuthorized, "no acting user")
	}
	return nil
}

func userIDs(participants []entities.Participant) []string {
	ids := make([]string, len(participants))
	for i, p := range participants {
		ids[i] = p.UserID
	}
	return ids
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}

type noopMetrics struct{}

func (noopMetrics) RecordMutation(context.Context, string, error) {}
func (noopMetrics) RecordConflict(context.Context, string)        {}

// observer records the outcome of every mutating operation.
type observer struct {
	metrics ports.MetricsRecorder
	logger  *slog.Logger
}

func newObserver(metrics ports.MetricsRecorder, logger *slog.Logger) observer {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return observer{metrics: metrics, logger: loggerOrDiscard(logger)}
}

func (o observer) done(ctx context.Context, op string, err error, args ...any) {
	o.metrics.RecordMutation(ctx, op, err)
	args = append([]any{"operation", op}, args...)

	switch apperrors.CodeOf(err) {
	case "":
		o.logger.InfoContext(ctx, "operation completed", args...)
	case apperrors.CodeUnknown:
		o.logger.ErrorContext(ctx, "operation failed", append(args, "error", err)...)
	case apperrors.CodeScheduleConflict:
		o.metrics.RecordConflict(ctx, op)
		o.logger.InfoContext(ctx, "operation rejected", append(args, "error", err)...)
	default:
		o.logger.DebugContext(ctx, "operation rejected", append(args, "error", err)...)
	}
}
