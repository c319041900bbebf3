// Package versions persists immutable document versions.
package versions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"docvault/internal/common"
	"docvault/internal/dbx"
	"docvault/internal/server/models"
)

const versionColumns = `id, document_id, version_number, storage_key, file_name, file_size, mime_type, checksum, created_by, created_at`

// PostgresRepository implements version storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a version row. The (document_id, version_number) uniqueness
// constraint is the database-side backstop for the allocator; with the
// document row lock held it never fires.
func (r *PostgresRepository) Create(ctx context.Context, v *models.Version) (*models.Version, error) {
	query := `
		INSERT INTO document_versions (document_id, version_number, storage_key, file_name, file_size, mime_type, checksum, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		v.DocumentID, v.VersionNumber, v.StorageKey, v.FileName, v.FileSize,
		v.MimeType, v.Checksum, v.CreatedBy).
		Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return v, nil
}

func (r *PostgresRepository) MaxNumber(ctx context.Context, documentID string) (int, error) {
	query := `SELECT COALESCE(MAX(version_number), 0) FROM document_versions WHERE document_id = $1`

	var max int
	if err := r.db.QueryRowContext(ctx, query, documentID).Scan(&max); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return max, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, documentID, versionID string) (*models.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM document_versions WHERE id = $1 AND document_id = $2`

	v := &models.Version{}
	err := r.db.QueryRowContext(ctx, query, versionID, documentID).
		Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.StorageKey, &v.FileName,
			&v.FileSize, &v.MimeType, &v.Checksum, &v.CreatedBy, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return v, nil
}

// ListByDocument returns all versions, newest number first.
func (r *PostgresRepository) ListByDocument(ctx context.Context, documentID string) ([]*models.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM document_versions WHERE document_id = $1 ORDER BY version_number DESC`

	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Version
	for rows.Next() {
		v := &models.Version{}
		if err := rows.Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.StorageKey, &v.FileName,
			&v.FileSize, &v.MimeType, &v.Checksum, &v.CreatedBy, &v.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
