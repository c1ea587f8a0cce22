// Package roster answers who may administer the community. Super-admins come
// from configuration and cannot be changed at runtime; regular admins live in
// the database and are managed by super-admins only.
package roster

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/orris-inc/gatekeeper/internal/domain/admin"
	"github.com/orris-inc/gatekeeper/internal/domain/audit"
	"github.com/orris-inc/gatekeeper/internal/shared/biztime"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

// ErrNotAuthorized is returned when the actor lacks the permission.
var ErrNotAuthorized = errors.New("not authorized")

// PermissionChecker maps a role to its permissions.
type PermissionChecker interface {
	Enforce(role, resource, action string) (bool, error)
}

type Service struct {
	repo        admin.Repository
	superAdmins map[int64]struct{}
	superOrder  []int64
	enforcer    PermissionChecker
	audit       audit.Repository
	clock       biztime.Clock
	logger      logger.Interface
}

func NewService(
	repo admin.Repository,
	superAdminIDs []int64,
	enforcer PermissionChecker,
	auditRepo audit.Repository,
	clock biztime.Clock,
	logger logger.Interface,
) *Service {
	if clock == nil {
		clock = biztime.NowUTC
	}
	supers := make(map[int64]struct{}, len(superAdminIDs))
	order := make([]int64, 0, len(superAdminIDs))
	for _, id := range superAdminIDs {
		if _, dup := supers[id]; dup || id <= 0 {
			continue
		}
		supers[id] = struct{}{}
		order = append(order, id)
	}
	return &Service{
		repo:        repo,
		superAdmins: supers,
		superOrder:  order,
		enforcer:    enforcer,
		audit:       auditRepo,
		clock:       clock,
		logger:      logger,
	}
}

func (s *Service) IsSuperAdmin(userID int64) bool {
	_, ok := s.superAdmins[userID]
	return ok
}

func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	_, ok, err := s.RoleOf(ctx, userID)
	return ok, err
}

// RoleOf returns the actor's role, or false when the actor is not an admin.
func (s *Service) RoleOf(ctx context.Context, userID int64) (admin.Role, bool, error) {
	if s.IsSuperAdmin(userID) {
		return admin.RoleSuperAdmin, true, nil
	}
	ok, err := s.repo.Exists(ctx, userID)
	if err != nil {
		return "", false, fmt.Errorf("failed to check admin roster: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return admin.RoleAdmin, true, nil
}

// Authorize returns ErrNotAuthorized unless actorID's role grants perm.
func (s *Service) Authorize(ctx context.Context, actorID int64, perm admin.Permission) error {
	role, ok, err := s.RoleOf(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warnw("unauthorized admin action", "actor_id", actorID, "resource", perm.Resource, "action", perm.Action)
		return ErrNotAuthorized
	}
	allowed, err := s.enforcer.Enforce(role.String(), perm.Resource, perm.Action)
	if err != nil {
		return err
	}
	if !allowed {
		s.logger.Warnw("admin action denied", "actor_id", actorID, "role", role, "resource", perm.Resource, "action", perm.Action)
		return ErrNotAuthorized
	}
	return nil
}

// AddAdmin reports false, without an error, when actor is not a super-admin
// or target is already on the roster.
func (s *Service) AddAdmin(ctx context.Context, targetID, actorID int64) (bool, error) {
	if err := s.Authorize(ctx, actorID, admin.PermManageRoster); err != nil {
		if errors.Is(err, ErrNotAuthorized) {
			return false, nil
		}
		return false, err
	}
	if s.IsSuperAdmin(targetID) {
		return false, nil
	}

	now := s.clock()
	rec, err := admin.NewAdmin(targetID, actorID, now)
	if err != nil {
		return false, nil
	}
	added, err := s.repo.Add(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("failed to add admin: %w", err)
	}
	if !added {
		return false, nil
	}

	s.appendAudit(ctx, audit.ActionAdminAdded, targetID, actorID)
	s.logger.Infow("admin added", "user_id", targetID, "actor_id", actorID)
	return true, nil
}

// RemoveAdmin reports false when actor is not a super-admin, target is a
// protected super-admin, or target was not an admin.
func (s *Service) RemoveAdmin(ctx context.Context, targetID, actorID int64) (bool, error) {
	if err := s.Authorize(ctx, actorID, admin.PermManageRoster); err != nil {
		if errors.Is(err, ErrNotAuthorized) {
			return false, nil
		}
		return false, err
	}
	if s.IsSuperAdmin(targetID) {
		s.logger.Warnw("refusing to remove super admin", "user_id", targetID, "actor_id", actorID)
		return false, nil
	}

	removed, err := s.repo.Remove(ctx, targetID)
	if err != nil {
		return false, fmt.Errorf("failed to remove admin: %w", err)
	}
	if !removed {
		return false, nil
	}

	s.appendAudit(ctx, audit.ActionAdminRemoved, targetID, actorID)
	s.logger.Infow("admin removed", "user_id", targetID, "actor_id", actorID)
	return true, nil
}

// ListAdmins returns super-admins in configuration order, then stored admins
// by addition time ascending. Super-admin records carry a zero AddedAt.
func (s *Service) ListAdmins(ctx context.Context) ([]*admin.Record, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	out := make([]*admin.Record, 0, len(s.superOrder)+len(stored))
	for _, id := range s.superOrder {
		out = append(out, admin.NewSuperAdmin(id, time.Time{}))
	}
	sort.SliceStable(stored, func(i, j int) bool {
		return stored[i].AddedAt().Before(stored[j].AddedAt())
	})
	for _, rec := range stored {
		if s.IsSuperAdmin(rec.UserID()) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// AdminIDs lists everyone who should hear about new access requests.
func (s *Service) AdminIDs(ctx context.Context) ([]int64, error) {
	list, err := s.ListAdmins(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(list))
	for _, rec := range list {
		ids = append(ids, rec.UserID())
	}
	return ids, nil
}

func (s *Service) appendAudit(ctx context.Context, action audit.Action, targetID, actorID int64) {
	if s.audit == nil {
		return
	}
	actor := actorID
	if err := s.audit.Append(ctx, &audit.Entry{
		UserID:    targetID,
		ActorID:   &actor,
		Action:    action,
		Success:   true,
		CreatedAt: s.clock(),
	}); err != nil {
		s.logger.Errorw("failed to append roster audit entry", "action", action, "user_id", targetID, "error", err)
	}
}
