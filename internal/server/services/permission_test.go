package services

import (
	"context"
	"testing"

	"docvault/internal/common"
	"docvault/internal/server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionGrantAndEffectiveRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.mustRegister(t, "owner@example.com")
	reader := f.mustRegister(t, "reader@example.com")
	doc := f.mustCreateDocument(t, owner.ID, "shared report")

	perm, err := f.permissions.Grant(ctx, doc.ID, owner.ID, reader.ID, models.RoleRead)
	require.NoError(t, err)
	assert.Equal(t, models.RoleRead, perm.Role)
	assert.Equal(t, owner.ID, perm.GrantedBy)

	role, ok, err := f.permissions.EffectiveRole(ctx, doc, reader.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.RoleRead, role)

	// The owner holds ADMIN without a stored row.
	role, ok, err = f.permissions.EffectiveRole(ctx, doc, owner.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.RoleAdmin, role)
	_, err = f.rm.permissions.Get(ctx, doc.ID, owner.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPermissionGrantDuplicateIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.mustRegister(t, "owner@example.com")
	reader := f.mustRegister(t, "reader@example.com")
	doc := f.mustCreateDocument(t, owner.ID, "shared report")

	_, err := f.permissions.Grant(ctx, doc.ID, owner.ID, reader.ID, models.RoleRead)
	require.NoError(t, err)

	_, err = f.permissions.Grant(ctx, doc.ID, owner.ID, reader.ID, models.RoleEdit)
	assert.True(t, common.IsKind(err, common.KindConflict))

	// Role changes go through UpdateRole instead.
	require.NoError(t, f.permissions.UpdateRole(ctx, doc.ID, owner.ID, reader.ID, models.RoleEdit))
	role, _, err := f.permissions.EffectiveRole(ctx, doc, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleEdit, role)
}

func TestPermissionRevokeThenGrantSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.mustRegister(t, "owner@example.com")
	reader := f.mustRegister(t, "reader@example.com")
	doc := f.mustCreateDocument(t, owner.ID, "shared report")

	_, err := f.permissions.Grant(ctx, doc.ID, owner.ID, reader.ID, models.RoleRead)
	require.NoError(t, err)
	require.NoError(t, f.permissions.Revoke(ctx, doc.ID, owner.ID, reader.ID))

	_, _, err = f.documents.Get(ctx, doc.ID, reader.ID)
	assert.True(t, common.IsKind(err, common.KindForbidden))

	_, err = f.permissions.Grant(ctx, doc.ID, owner.ID, reader.ID, models.RoleEdit)
	require.NoError(t, err)
}

func TestPermissionOwnerIsImmune(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.mustRegister(t, "owner@example.com")
	admin := f.mustRegister(t, "admin@example.com")
	doc := f.mustCreateDocument(t, owner.ID, "shared report")

	_, err := f.permissions.Grant(ctx, doc.ID, owner.ID, admin.ID, models.RoleAdmin)
	require.NoError(t, err)

	// A delegated admin cannot touch the owner's access.
	_, err = f.permissions.Grant(ctx, doc.ID, admin.ID, owner.ID, models.RoleRead)
	assert.True(t, common.IsKind(err, common.KindConflict))

	err = f.permissions.UpdateRole(ctx, doc.ID, admin.ID, owner.ID, models.RoleRead)
	assert.True(t, common.IsKind(err, common.KindForbidden))

	err = f.permissions.Revoke(ctx, doc.ID, admin.ID, owner.ID)
	assert.True(t, common.IsKind(err, common.KindForbidden))

	role, _, err := f.permissions.EffectiveRole(ctx, doc, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)
}

func TestPermissionSelfShareIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.mustRegister(t, "owner@example.com")
	admin := f.mustRegister(t, "admin@example.com")
	doc := f.mustCreateDocument(t, owner.ID, "shared report")

	_, err := f.permissions.Grant(ctx, doc.ID, owner.ID, admin.ID, models.RoleAdmin)
	require.NoError(t, err)

	_, err = f.permissions.Grant(ctx, doc.ID, admin.ID, admin.ID, models.RoleEdit)
	assert.True(t, common.IsKind(err, common.KindConflict))
}

func TestPermissionGrantRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.mustRegister(t, "owner@example.com")
	editor := f.mustRegister(t, "editor@example.com")
	other := f.mustRegister(t, "other@example.com")
	doc := f.mustCreateDocument(t, owner.ID, "shared report")

	_, err := f.permissions.Grant(ctx, doc.ID, owner.ID, editor.ID, models.RoleEdit)
	require.NoError(t, err)

	// EDIT does not include sharing rights.
	_, err = f.permissions.Grant(ctx, doc.ID, editor.ID, other.ID, models.RoleRead)
	assert.True(t, common.IsKind(err, common.KindForbidden))
}

func TestPermissionGrantToUnknownUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.mustRegister(t, "owner@example.com")
	doc := f.mustCreateDocument(t, owner.ID, "shared report")

	_, err := f.permissions.Grant(ctx, doc.ID, owner.ID, "no-such-user", models.RoleRead)
	assert.True(t, common.IsKind(err, common.KindNotFound))
}

func TestPermissionInvalidRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.mustRegister(t, "owner@example.com")
	reader := f.mustRegister(t, "reader@example.com")
	doc := f.mustCreateDocument(t, owner.ID, "shared report")

	_, err := f.permissions.Grant(ctx, doc.ID, owner.ID, reader.ID, models.Role("SUPERUSER"))
	assert.True(t, common.IsKind(err, common.KindInvalidInput))
}

func TestPermissionDeletedDocumentIsHidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.mustRegister(t, "owner@example.com")
	admin := f.mustRegister(t, "admin@example.com")
	doc := f.mustCreateDocument(t, owner.ID, "shared report")

	_, err := f.permissions.Grant(ctx, doc.ID, owner.ID, admin.ID, models.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, f.documents.SoftDelete(ctx, doc.ID, owner.ID))

	deleted, err := f.rm.documents.GetByID(ctx, doc.ID)
	require.NoError(t, err)

	// Even a granted ADMIN sees NotFound after deletion; the owner keeps
	// visibility for recovery.
	err = f.permissions.Require(ctx, deleted, admin.ID, models.RoleRead)
	assert.True(t, common.IsKind(err, common.KindNotFound))
	assert.NoError(t, f.permissions.Require(ctx, deleted, owner.ID, models.RoleAdmin))
}

func TestPermissionListIncludesImplicitOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.mustRegister(t, "owner@example.com")
	reader := f.mustRegister(t, "reader@example.com")
	doc := f.mustCreateDocument(t, owner.ID, "shared report")

	_, err := f.permissions.Grant(ctx, doc.ID, owner.ID, reader.ID, models.RoleRead)
	require.NoError(t, err)

	entries, err := f.permissions.List(ctx, doc.ID, reader.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, owner.ID, entries[0].UserID)
	assert.True(t, entries[0].Implicit)
	assert.Equal(t, models.RoleAdmin, entries[0].Role)
	assert.Equal(t, reader.ID, entries[1].UserID)
	assert.False(t, entries[1].Implicit)
}

func TestRoleOrdering(t *testing.T) {
	assert.True(t, models.RoleAdmin.Covers(models.RoleRead))
	assert.True(t, models.RoleAdmin.Covers(models.RoleEdit))
	assert.True(t, models.RoleEdit.Covers(models.RoleRead))
	assert.False(t, models.RoleRead.Covers(models.RoleEdit))
	assert.False(t, models.RoleEdit.Covers(models.RoleAdmin))
}
