package handlers

import (
	"context"
	"strings"

	"github.com/ersonp/calcore/internal/domain/entities"
	"github.com/ersonp/calcore/internal/domain/services"
)

// PermissionHandler handles event sharing at the application layer.
type PermissionHandler struct {
	permissions *services.PermissionService
}

// NewPermissionHandler creates a new PermissionHandler.
func NewPermissionHandler(permissions *services.PermissionService) *PermissionHandler {
	return &PermissionHandler{
		permissions: permissions,
	}
}

// GrantInput is one (user, role) pair of a share request.
type GrantInput struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// ShareEvent grants roles on an event and returns its permission list.
func (h *PermissionHandler) ShareEvent(ctx context.Context, principal entities.Principal, eventID string, grants []GrantInput) ([]entities.Permission, error) {
	parsed := make([]entities.Grant, len(grants))
	for i, g := range grants {
		parsed[i] = entities.Grant{UserID: strings.TrimSpace(g.UserID), Role: parseRole(g.Role)}
	}
	return h.permissions.Share(ctx, principal, eventID, parsed)
}

// ListPermissions returns the permission list of an event.
func (h *PermissionHandler) ListPermissions(ctx context.Context, principal entities.Principal, eventID string) ([]entities.Permission, error) {
	return h.permissions.List(ctx, principal, eventID)
}

// UpdatePermission changes the role of an existing participant.
func (h *PermissionHandler) UpdatePermission(ctx context.Context, principal entities.Principal, eventID, userID, role string) error {
	return h.permissions.UpdateRole(ctx, principal, eventID, strings.TrimSpace(userID), parseRole(role))
}

// RemovePermission removes a participant from an event.
func (h *PermissionHandler) RemovePermission(ctx context.Context, principal entities.Principal, eventID, userID string) error {
	return h.permissions.Revoke(ctx, principal, eventID, strings.TrimSpace(userID))
}

// parseRole normalizes a role; unknown values are left for the service to reject.
func parseRole(s string) entities.Role {
	r, _ := entities.ParseRole(s)
	return r
}
