package repomanager

import (
	"context"
	"database/sql"

	"docvault/internal/dbx"
	"docvault/internal/server/repositories/activity"
	"docvault/internal/server/repositories/documents"
	"docvault/internal/server/repositories/permissions"
	"docvault/internal/server/repositories/refreshtokens"
	"docvault/internal/server/repositories/tags"
	"docvault/internal/server/repositories/users"
	"docvault/internal/server/repositories/versions"
)

// RepositoryManager vends repositories bound to a DBTX. Passing a *sql.Tx
// composes repository calls into one transaction; passing the *sql.DB runs
// them standalone.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Documents(db dbx.DBTX) documents.Repository
	Versions(db dbx.DBTX) versions.Repository
	Permissions(db dbx.DBTX) permissions.Repository
	Tags(db dbx.DBTX) tags.Repository
	Activity(db dbx.DBTX) activity.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
