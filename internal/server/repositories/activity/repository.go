package activity

import (
	"context"

	"docvault/internal/server/models"
)

type Repository interface {
	// Create appends an audit entry. Entries are never updated or deleted.
	Create(ctx context.Context, e *models.ActivityLogEntry) error
	ListByDocument(ctx context.Context, documentID string, limit int) ([]*models.ActivityLogEntry, error)
}
