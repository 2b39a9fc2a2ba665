package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/samber/mo"

	"github.com/ersonp/calcore/internal/domain/entities"
	apperrors "github.com/ersonp/calcore/internal/domain/errors"
	"github.com/ersonp/calcore/internal/domain/ports"
)

// PermissionService manages who participates in an event and with which role.
// Only OWNERs change permissions; any participant may list them.
type PermissionService struct {
	store    ports.EventStore
	cache    *CacheInvalidator
	observer observer
	now      func() time.Time
}

// NewPermissionService creates a new PermissionService. cache, metrics and logger may be nil.
func NewPermissionService(store ports.EventStore, cache *CacheInvalidator, metrics ports.MetricsRecorder, logger *slog.Logger) *PermissionService {
	return &PermissionService{
		store:    store,
		cache:    cache,
		observer: newObserver(metrics, logger),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RoleOf returns the role userID holds on eventID, if any.
func (s *PermissionService) RoleOf(ctx context.Context, eventID, userID string) (mo.Option[entities.Role], error) {
	p, err := s.store.FindParticipant(ctx, eventID, userID)
	if err != nil {
		return mo.None[entities.Role](), fmt.Errorf("finding participant: %w", err)
	}
	if p == nil {
		return mo.None[entities.Role](), nil
	}
	return mo.Some(p.Role), nil
}

// Grant gives userID the role on eventID, replacing any role they had.
// Granting to the caller is a no-op.
func (s *PermissionService) Grant(ctx context.Context, caller entities.Principal, eventID, userID string, role entities.Role) (err error) {
	defer func() {
		s.observer.done(ctx, "grant", err, "user_id", caller.ID, "event_id", eventID, "target_user_id", userID)
	}()

	if err := requirePrincipal(caller); err != nil {
		return err
	}

	err = s.store.WithTx(ctx, func(repo ports.EventRepository) error {
		if _, _, err := authorize(ctx, repo, eventID, caller.ID, "share", entities.RoleOwner); err != nil {
			return err
		}
		if userID == "" {
			return apperrors.Validation("user_id", "missing required field: user_id")
		}
		if !role.IsValid() {
			return invalidRole(role)
		}
		if userID == caller.ID {
			return nil
		}
		p := entities.Participant{EventID: eventID, UserID: userID, Role: role, CreatedAt: s.now()}
		if err := repo.SaveParticipant(ctx, &p); err != nil {
			return fmt.Errorf("saving participant: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.InvalidateParticipants(ctx, eventID)
	return nil
}

// Share grants several users a role on eventID in one transaction. The
// caller must own the event; every grant is then validated before anything
// is written. Grants naming the caller are skipped. It returns the
// resulting permission list.
func (s *PermissionService) Share(ctx context.Context, caller entities.Principal, eventID string, grants []entities.Grant) (_ []entities.Permission, err error) {
	defer func() {
		s.observer.done(ctx, "share", err, "user_id", caller.ID, "event_id", eventID, "grants", len(grants))
	}()

	if err := requirePrincipal(caller); err != nil {
		return nil, err
	}

	var perms []entities.Permission
	err = s.store.WithTx(ctx, func(repo ports.EventRepository) error {
		if _, _, err := authorize(ctx, repo, eventID, caller.ID, "share", entities.RoleOwner); err != nil {
			return err
		}
		if err := validateGrants(grants); err != nil {
			return err
		}

		now := s.now()
		participants := make([]entities.Participant, 0, len(grants))
		for _, g := range grants {
			if g.UserID == caller.ID {
				continue
			}
			participants = append(participants, entities.Participant{EventID: eventID, UserID: g.UserID, Role: g.Role, CreatedAt: now})
		}
		if err := repo.SaveParticipants(ctx, participants); err != nil {
			return fmt.Errorf("saving participants: %w", err)
		}

		all, err := repo.ListParticipants(ctx, eventID)
		if err != nil {
			return fmt.Errorf("listing participants: %w", err)
		}
		perms = entities.PermissionsOf(all)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateParticipants(ctx, eventID)
	return perms, nil
}

// List returns the permissions of eventID. Callers who do not participate
// in the event get a not found error.
func (s *PermissionService) List(ctx context.Context, caller entities.Principal, eventID string) ([]entities.Permission, error) {
	if err := requirePrincipal(caller); err != nil {
		return nil, err
	}
	perms, err := readThrough(ctx, s.cache, ParticipantsKey(eventID), func() ([]entities.Permission, error) {
		participants, err := s.store.ListParticipants(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("listing participants: %w", err)
		}
		return entities.PermissionsOf(participants), nil
	})
	if err != nil {
		return nil, err
	}
	for _, p := range perms {
		if p.UserID == caller.ID {
			return perms, nil
		}
	}
	return nil, apperrors.NotFound("event", eventID)
}

// Revoke removes userID from eventID. Owners cannot revoke themselves.
func (s *PermissionService) Revoke(ctx context.Context, caller entities.Principal, eventID, userID string) (err error) {
	defer func() {
		s.observer.done(ctx, "revoke", err, "user_id", caller.ID, "event_id", eventID, "target_user_id", userID)
	}()

	if err := requirePrincipal(caller); err != nil {
		return err
	}

	err = s.store.WithTx(ctx, func(repo ports.EventRepository) error {
		if _, _, err := authorize(ctx, repo, eventID, caller.ID, "revoke access to", entities.RoleOwner); err != nil {
			return err
		}
		if userID == caller.ID {
			return apperrors.WithMetadata(apperrors.CodeInvalidOperation,
				"owners cannot remove their own access",
				map[string]string{"event_id": eventID, "user_id": userID})
		}
		target, err := repo.FindParticipant(ctx, eventID, userID)
		if err != nil {
			return fmt.Errorf("finding participant: %w", err)
		}
		if target == nil {
			return apperrors.NotFound("participant", userID)
		}
		if err := repo.DeleteParticipant(ctx, eventID, userID); err != nil {
			return fmt.Errorf("deleting participant: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.InvalidateParticipants(ctx, eventID)
	s.cache.InvalidateDetail(ctx, eventID, userID)
	return nil
}

// UpdateRole changes the role of an existing participant. The last OWNER of
// an event cannot be demoted.
func (s *PermissionService) UpdateRole(ctx context.Context, caller entities.Principal, eventID, userID string, role entities.Role) (err error) {
	defer func() {
		s.observer.done(ctx, "update_role", err, "user_id", caller.ID, "event_id", eventID, "target_user_id", userID)
	}()

	if err := requirePrincipal(caller); err != nil {
		return err
	}

	err = s.store.WithTx(ctx, func(repo ports.EventRepository) error {
		if _, _, err := authorize(ctx, repo, eventID, caller.ID, "change roles on", entities.RoleOwner); err != nil {
			return err
		}
		target, err := repo.FindParticipant(ctx, eventID, userID)
		if err != nil {
			return fmt.Errorf("finding participant: %w", err)
		}
		if target == nil {
			return apperrors.NotFound("participant", userID)
		}
		if !role.IsValid() {
			return invalidRole(role)
		}
		if target.Role == role {
			return nil
		}

		if target.Role == entities.RoleOwner {
			participants, err := repo.ListParticipants(ctx, eventID)
			if err != nil {
				return fmt.Errorf("listing participants: %w", err)
			}
			if countRole(participants, entities.RoleOwner) <= 1 {
				return apperrors.WithMetadata(apperrors.CodeInvalidOperation,
					"an event must keep at least one owner",
					map[string]string{"event_id": eventID, "user_id": userID})
			}
		}

		target.Role = role
		if err := repo.SaveParticipant(ctx, target); err != nil {
			return fmt.Errorf("saving participant: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.InvalidateParticipants(ctx, eventID)
	return nil
}

// validateGrants checks every grant so that a bad entry fails the whole batch.
func validateGrants(grants []entities.Grant) error {
	if len(grants) == 0 {
		return apperrors.Validation("users", "at least one user is required")
	}
	for i, g := range grants {
		if g.UserID == "" {
			verr := apperrors.Validation("user_id", "missing required field: user_id")
			verr.Metadata["index"] = strconv.Itoa(i)
			return verr
		}
		if !g.Role.IsValid() {
			rerr := invalidRole(g.Role)
			rerr.Metadata["index"] = strconv.Itoa(i)
			return rerr
		}
	}
	return nil
}

func invalidRole(role entities.Role) *apperrors.Error {
	return apperrors.WithMetadata(apperrors.CodeInvalidRole,
		fmt.Sprintf("invalid role: %q", role),
		map[string]string{"role": string(role)})
}

func countRole(participants []entities.Participant, role entities.Role) int {
	n := 0
	for _, p := range participants {
		if p.Role == role {
			n++
		}
	}
	return n
}
