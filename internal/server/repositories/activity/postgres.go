// Package activity persists the append-only audit log.
package activity

import (
	"context"
	"database/sql"
	"fmt"

	"docvault/internal/dbx"
	"docvault/internal/server/models"
)

// PostgresRepository implements audit storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.ActivityLogEntry) error {
	query := `
		INSERT INTO activity_logs (user_id, document_id, action, details)
		VALUES ($1, $2, $3, $4)
	`

	var documentID sql.NullString
	if e.DocumentID != nil {
		documentID = sql.NullString{String: *e.DocumentID, Valid: true}
	}

	if _, err := r.db.ExecContext(ctx, query, e.UserID, documentID, e.Action, e.Details); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByDocument(ctx context.Context, documentID string, limit int) ([]*models.ActivityLogEntry, error) {
	query := `
		SELECT id, user_id, document_id, action, details, created_at
		FROM activity_logs
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.ActivityLogEntry
	for rows.Next() {
		e := &models.ActivityLogEntry{}
		// user_id is ON DELETE SET NULL in the schema.
		var userID sql.NullString
		var docID sql.NullString
		var details sql.NullString
		if err := rows.Scan(&e.ID, &userID, &docID, &e.Action, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.UserID = userID.String
		if docID.Valid {
			e.DocumentID = &docID.String
		}
		e.Details = details.String
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
