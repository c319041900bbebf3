// Package documents persists document records and owns the document-scoped
// row lock that serializes version allocation.
package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"docvault/internal/common"
	"docvault/internal/dbx"
	"docvault/internal/server/models"
)

const docColumns = `id, title, description, owner_id, current_version_id, file_type, created_at, updated_at, is_deleted, deleted_at`

const docListColumns = `d.id, d.title, d.description, d.owner_id, d.current_version_id, d.file_type, d.created_at, d.updated_at, d.is_deleted, d.deleted_at`

// PostgresRepository implements document storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a document with a caller-supplied id. The current version
// pointer stays NULL until the first version row is inserted in the same
// transaction.
func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) (*models.Document, error) {
	query := `
		INSERT INTO documents (id, title, description, owner_id, file_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		doc.ID, doc.Title, doc.Description, doc.OwnerID, doc.FileType).
		Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return doc, nil
}

// GetByID returns the document regardless of its deletion flag; callers
// decide whether a soft-deleted document is visible.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + docColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, query, id))
}

// LockForUpdate takes the exclusive row lock used to serialize
// "read max version, insert next" and soft delete per document.
func (r *PostgresRepository) LockForUpdate(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + docColumns + ` FROM documents WHERE id = $1 FOR UPDATE`
	return scanDocument(r.db.QueryRowContext(ctx, query, id))
}

func scanDocument(row *sql.Row) (*models.Document, error) {
	doc := &models.Document{}
	var description, currentVersionID sql.NullString
	var deletedAt sql.NullTime

	err := row.Scan(&doc.ID, &doc.Title, &description, &doc.OwnerID, &currentVersionID,
		&doc.FileType, &doc.CreatedAt, &doc.UpdatedAt, &doc.IsDeleted, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	doc.Description = description.String
	doc.CurrentVersionID = currentVersionID.String
	if deletedAt.Valid {
		doc.DeletedAt = &deletedAt.Time
	}

	return doc, nil
}

func (r *PostgresRepository) UpdateMetadata(ctx context.Context, id, title, description string) error {
	query := `
		UPDATE documents SET title = $2, description = $3, updated_at = now()
		WHERE id = $1 AND is_deleted = false
	`
	return r.execOne(ctx, query, id, title, description)
}

func (r *PostgresRepository) SetCurrentVersion(ctx context.Context, id, versionID string) error {
	query := `UPDATE documents SET current_version_id = $2, updated_at = now() WHERE id = $1`
	return r.execOne(ctx, query, id, versionID)
}

// SoftDelete flips the deletion flag. The version and permission rows stay
// untouched for audit and recovery.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	query := `
		UPDATE documents SET is_deleted = true, deleted_at = $2, updated_at = now()
		WHERE id = $1 AND is_deleted = false
	`
	return r.execOne(ctx, query, id, deletedAt)
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

// List filters non-deleted documents the user owns or holds any permission
// row on, newest first.
func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]*models.Document, int, error) {
	where := []string{
		`d.is_deleted = false`,
		`(d.owner_id = $1 OR d.id IN (SELECT document_id FROM document_permissions WHERE user_id = $1))`,
	}
	args := []any{f.UserID}

	if f.Title != "" {
		args = append(args, "%"+f.Title+"%")
		where = append(where, fmt.Sprintf(`d.title ILIKE $%d`, len(args)))
	}
	if f.FileType != "" {
		args = append(args, f.FileType)
		where = append(where, fmt.Sprintf(`d.file_type = $%d`, len(args)))
	}
	if len(f.Tags) > 0 {
		placeholders := make([]string, 0, len(f.Tags))
		for _, tag := range f.Tags {
			args = append(args, strings.ToLower(strings.TrimSpace(tag)))
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		where = append(where, fmt.Sprintf(
			`d.id IN (SELECT document_id FROM document_tags WHERE tag IN (%s))`,
			strings.Join(placeholders, ", ")))
	}

	cond := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT count(*) FROM documents d WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	query := fmt.Sprintf(`SELECT %s FROM documents d WHERE %s ORDER BY d.created_at DESC LIMIT $%d OFFSET $%d`,
		docListColumns, cond, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		doc := &models.Document{}
		var description, currentVersionID sql.NullString
		var deletedAt sql.NullTime
		if err := rows.Scan(&doc.ID, &doc.Title, &description, &doc.OwnerID, &currentVersionID,
			&doc.FileType, &doc.CreatedAt, &doc.UpdatedAt, &doc.IsDeleted, &deletedAt); err != nil {
			return nil, 0, err
		}
		doc.Description = description.String
		doc.CurrentVersionID = currentVersionID.String
		if deletedAt.Valid {
			doc.DeletedAt = &deletedAt.Time
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}
