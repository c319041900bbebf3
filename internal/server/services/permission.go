// Package services contains the business core of the document service:
// the permission engine, the document lifecycle manager, account handling,
// and the audit recorder. Transport and storage details stay out.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"docvault/internal/common"
	"docvault/internal/logging"
	"docvault/internal/server/models"
	"docvault/internal/server/repositories/repomanager"
)

// PermissionService is the authorization core. It computes the effective role
// of a user on a document and manages the grant/update/revoke lifecycle.
//
// The owner's ADMIN is implicit: it is a short-circuit in EffectiveRole, never
// a stored row. That keeps the (document, user) uniqueness invariant simple
// and makes "cannot revoke the owner" true by construction.
type PermissionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	activity    *ActivityService
	logger      logging.Logger
}

func NewPermissionService(db *sql.DB, m repomanager.RepositoryManager, activity *ActivityService, logger logging.Logger) *PermissionService {
	return &PermissionService{db: db, repomanager: m, activity: activity, logger: logger}
}

// PermissionEntry is a caller-facing view of one grant. The owner appears as
// a synthesized entry with Implicit set.
type PermissionEntry struct {
	UserID    string
	Role      models.Role
	GrantedBy string
	// Implicit marks the owner's synthesized ADMIN entry.
	Implicit bool
}

// EffectiveRole returns the user's role on the document and whether one
// exists. The owner always gets ADMIN.
func (s *PermissionService) EffectiveRole(ctx context.Context, doc *models.Document, userID string) (models.Role, bool, error) {
	if doc.OwnerID == userID {
		return models.RoleAdmin, true, nil
	}

	perm, err := s.repomanager.Permissions(s.db).Get(ctx, doc.ID, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", false, nil
		}
		return "", false, common.Wrap(common.KindInternal, "loading permission", err)
	}

	return perm.Role, true, nil
}

// Require fails with Forbidden when the user's effective role is absent or
// below minimum, and with NotFound when the document is soft-deleted and the
// user is not its owner: deletion hides existence from everyone else, while
// the owner keeps visibility for recovery.
func (s *PermissionService) Require(ctx context.Context, doc *models.Document, userID string, minimum models.Role) error {
	if doc.IsDeleted && doc.OwnerID != userID {
		return common.E(common.KindNotFound, "document not found")
	}

	role, ok, err := s.EffectiveRole(ctx, doc, userID)
	if err != nil {
		return err
	}
	if !ok || !role.Covers(minimum) {
		return common.Errf(common.KindForbidden, "requires %s access", minimum)
	}

	return nil
}

// Grant gives targetUserID a role on the document. The grantor must hold
// ADMIN. Granting to the owner, to oneself, or on top of an existing row is a
// conflict.
func (s *PermissionService) Grant(ctx context.Context, documentID, grantorID, targetUserID string, role models.Role) (*models.Permission, error) {
	doc, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.Require(ctx, doc, grantorID, models.RoleAdmin); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, common.Errf(common.KindInvalidInput, "unknown role %q", role)
	}
	if targetUserID == doc.OwnerID {
		return nil, common.E(common.KindConflict, "the owner already has implicit admin access")
	}
	if targetUserID == grantorID {
		return nil, common.E(common.KindConflict, "cannot share a document with yourself")
	}

	// The target must be a real account; granting to an unknown id would
	// create an unusable row.
	if _, err := s.repomanager.Users(s.db).GetByID(ctx, targetUserID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.E(common.KindNotFound, "user not found")
		}
		return nil, common.Wrap(common.KindInternal, "loading user", err)
	}

	perm := &models.Permission{
		DocumentID: doc.ID,
		UserID:     targetUserID,
		Role:       role,
		GrantedBy:  grantorID,
	}

	created, err := s.repomanager.Permissions(s.db).Create(ctx, perm)
	if err != nil {
		if common.IsKind(err, common.KindConflict) {
			return nil, err
		}
		return nil, common.Wrap(common.KindInternal, "creating permission", err)
	}

	s.activity.Record(ctx, grantorID, &doc.ID, models.ActionGrant,
		fmt.Sprintf("granted %s to %s", role, targetUserID))

	return created, nil
}

// UpdateRole changes an existing grant in place. The owner's implicit role is
// not representable as a row and cannot be altered.
func (s *PermissionService) UpdateRole(ctx context.Context, documentID, actorID, targetUserID string, newRole models.Role) error {
	doc, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.Require(ctx, doc, actorID, models.RoleAdmin); err != nil {
		return err
	}
	if !newRole.Valid() {
		return common.Errf(common.KindInvalidInput, "unknown role %q", newRole)
	}
	if targetUserID == doc.OwnerID {
		return common.E(common.KindForbidden, "the owner's access cannot be changed")
	}

	err = s.repomanager.Permissions(s.db).UpdateRole(ctx, doc.ID, targetUserID, newRole)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.E(common.KindNotFound, "no permission exists for this user")
		}
		return common.Wrap(common.KindInternal, "updating permission", err)
	}

	s.activity.Record(ctx, actorID, &doc.ID, models.ActionUpdatePermission,
		fmt.Sprintf("changed role of %s to %s", targetUserID, newRole))

	return nil
}

// Revoke removes a grant. Revoking the owner is forbidden; revoking a user
// without a grant is NotFound.
func (s *PermissionService) Revoke(ctx context.Context, documentID, actorID, targetUserID string) error {
	doc, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.Require(ctx, doc, actorID, models.RoleAdmin); err != nil {
		return err
	}
	if targetUserID == doc.OwnerID {
		return common.E(common.KindForbidden, "the owner's access cannot be revoked")
	}

	err = s.repomanager.Permissions(s.db).Delete(ctx, doc.ID, targetUserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.E(common.KindNotFound, "no permission exists for this user")
		}
		return common.Wrap(common.KindInternal, "revoking permission", err)
	}

	s.activity.Record(ctx, actorID, &doc.ID, models.ActionRevoke,
		fmt.Sprintf("revoked access of %s", targetUserID))

	return nil
}

// List returns all grants on the document plus the synthesized owner entry,
// owner first. Requires READ.
func (s *PermissionService) List(ctx context.Context, documentID, actorID string) ([]*PermissionEntry, error) {
	doc, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.Require(ctx, doc, actorID, models.RoleRead); err != nil {
		return nil, err
	}

	perms, err := s.repomanager.Permissions(s.db).ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, common.Wrap(common.KindInternal, "listing permissions", err)
	}

	entries := make([]*PermissionEntry, 0, len(perms)+1)
	entries = append(entries, &PermissionEntry{
		UserID:   doc.OwnerID,
		Role:     models.RoleAdmin,
		Implicit: true,
	})
	for _, p := range perms {
		entries = append(entries, &PermissionEntry{
			UserID:    p.UserID,
			Role:      p.Role,
			GrantedBy: p.GrantedBy,
		})
	}

	return entries, nil
}

func (s *PermissionService) loadDocument(ctx context.Context, documentID string) (*models.Document, error) {
	doc, err := s.repomanager.Documents(s.db).GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.E(common.KindNotFound, "document not found")
		}
		return nil, common.Wrap(common.KindInternal, "loading document", err)
	}
	return doc, nil
}
