package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/ersonp/calcore/internal/domain/entities"
	apperrors "github.com/ersonp/calcore/internal/domain/errors"
	"github.com/ersonp/calcore/internal/domain/services"
)

// HistoryHandler handles event history operations at the application layer.
type HistoryHandler struct {
	history *services.HistoryService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(history *services.HistoryService) *HistoryHandler {
	return &HistoryHandler{
		history: history,
	}
}

// ListHistory returns the snapshots of an event, newest first.
func (h *HistoryHandler) ListHistory(ctx context.Context, principal entities.Principal, eventID string) ([]entities.Snapshot, error) {
	return h.history.History(ctx, principal, eventID)
}

// GetHistoryVersion returns one snapshot of an event.
func (h *HistoryHandler) GetHistoryVersion(ctx context.Context, principal entities.Principal, eventID, version string) (*entities.Snapshot, error) {
	v, err := parseVersion("version", version)
	if err != nil {
		return nil, err
	}
	return h.history.Version(ctx, principal, eventID, v)
}

// GetChangelog returns the changelog of an event, oldest first.
func (h *HistoryHandler) GetChangelog(ctx context.Context, principal entities.Principal, eventID string) ([]entities.ChangelogEntry, error) {
	return h.history.Changelog(ctx, principal, eventID)
}

// GetDiff compares two versions of an event.
func (h *HistoryHandler) GetDiff(ctx context.Context, principal entities.Principal, eventID, version1, version2 string) (*entities.Diff, error) {
	v1, err := parseVersion("version_1", version1)
	if err != nil {
		return nil, err
	}
	v2, err := parseVersion("version_2", version2)
	if err != nil {
		return nil, err
	}
	return h.history.Diff(ctx, principal, eventID, v1, v2)
}

// RollbackEvent restores the fields of an earlier version.
func (h *HistoryHandler) RollbackEvent(ctx context.Context, principal entities.Principal, eventID, version string) (*entities.Event, error) {
	v, err := parseVersion("version", version)
	if err != nil {
		return nil, err
	}
	return h.history.Rollback(ctx, principal, eventID, v)
}

func parseVersion(field, s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s), "v"))
	if err != nil || v < 1 {
		return 0, apperrors.Validation(field, field+" must be a positive integer")
	}
	return v, nil
}
