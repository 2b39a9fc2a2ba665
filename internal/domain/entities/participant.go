package entities

import (
	"strings"
	"time"
)

// Role is the access level a participant holds on an event.
type Role string

const (
	// RoleOwner has full control, including permissions and deletion.
	RoleOwner Role = "OWNER"
	// RoleEditor collaborates on an event but cannot manage permissions.
	RoleEditor Role = "EDITOR"
	// RoleViewer has read-only access.
	RoleViewer Role = "VIEWER"
)

// Roles lists all roles from most to least privileged.
var Roles = []Role{RoleOwner, RoleEditor, RoleViewer}

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	default:
		return false
	}
}

// ParseRole normalizes s (case-insensitive) into a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// Principal is the authenticated identity making a request.
// Authentication happens outside the core; only the resolved ID is carried.
type Principal struct {
	ID string `json:"id"`
}

// Participant links a user to an event with a role.
// At most one participant row exists per (event, user) pair.
type Participant struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Permission is the public view of a participant in permission listings.
type Permission struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// Grant is a requested (user, role) pair when sharing an event.
type Grant struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// PermissionsOf converts participants into their permission view.
func PermissionsOf(participants []Participant) []Permission {
	perms := make([]Permission, len(participants))
	for i := range participants {
		perms[i] = Permission{UserID: participants[i].UserID, Role: participants[i].Role}
	}
	return perms
}
