// Package permissions persists per-document role grants. The
// (document_id, user_id) uniqueness constraint serializes concurrent grants.
package permissions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"docvault/internal/common"
	"docvault/internal/dbx"
	"docvault/internal/server/models"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresRepository implements permission storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Permission) (*models.Permission, error) {
	query := `
		INSERT INTO document_permissions (document_id, user_id, role, granted_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, granted_at
	`

	err := r.db.QueryRowContext(ctx, query,
		p.DocumentID, p.UserID, string(p.Role), p.GrantedBy).
		Scan(&p.ID, &p.GrantedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.E(common.KindConflict, "permission already exists for this user")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) Get(ctx context.Context, documentID, userID string) (*models.Permission, error) {
	query := `
		SELECT id, document_id, user_id, role, granted_by, granted_at
		FROM document_permissions
		WHERE document_id = $1 AND user_id = $2
	`

	p := &models.Permission{}
	var role string
	err := r.db.QueryRowContext(ctx, query, documentID, userID).
		Scan(&p.ID, &p.DocumentID, &p.UserID, &role, &p.GrantedBy, &p.GrantedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	p.Role = models.Role(role)

	return p, nil
}

// UpdateRole overwrites the role in place. Role changes are not version
// tracked; only the latest grant matters.
func (r *PostgresRepository) UpdateRole(ctx context.Context, documentID, userID string, role models.Role) error {
	query := `UPDATE document_permissions SET role = $3 WHERE document_id = $1 AND user_id = $2`
	return r.execOne(ctx, query, documentID, userID, string(role))
}

// Delete hard-deletes the grant. A permission is a capability, not an audit
// record; history lives in the activity log.
func (r *PostgresRepository) Delete(ctx context.Context, documentID, userID string) error {
	query := `DELETE FROM document_permissions WHERE document_id = $1 AND user_id = $2`
	return r.execOne(ctx, query, documentID, userID)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ListByDocument(ctx context.Context, documentID string) ([]*models.Permission, error) {
	query := `
		SELECT id, document_id, user_id, role, granted_by, granted_at
		FROM document_permissions
		WHERE document_id = $1
		ORDER BY granted_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Permission
	for rows.Next() {
		p := &models.Permission{}
		var role string
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.UserID, &role, &p.GrantedBy, &p.GrantedAt); err != nil {
			return nil, err
		}
		p.Role = models.Role(role)
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
