// Package tags persists document tags.
package tags

import (
	"context"
	"fmt"
	"strings"

	"docvault/internal/dbx"
)

// PostgresRepository implements tag storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Normalize lower-cases and trims tags and drops empties and duplicates,
// preserving first-seen order.
func Normalize(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		result = append(result, t)
	}
	return result
}

// Replace is expected to run inside a transaction together with the document
// write it belongs to.
func (r *PostgresRepository) Replace(ctx context.Context, documentID string, tags []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM document_tags WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	for _, tag := range Normalize(tags) {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO document_tags (document_id, tag) VALUES ($1, $2)`, documentID, tag)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) ListByDocument(ctx context.Context, documentID string) ([]string, error) {
	query := `SELECT tag FROM document_tags WHERE document_id = $1 ORDER BY tag`

	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		result = append(result, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
