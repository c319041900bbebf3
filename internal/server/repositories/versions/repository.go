package versions

import (
	"context"

	"docvault/internal/server/models"
)

type Repository interface {
	// Create inserts an immutable version row. There is no update or delete:
	// versions survive even document soft-deletion.
	Create(ctx context.Context, v *models.Version) (*models.Version, error)
	// MaxNumber returns the highest version_number for the document, or 0 when
	// it has none. Only meaningful under the document row lock.
	MaxNumber(ctx context.Context, documentID string) (int, error)
	GetByID(ctx context.Context, documentID, versionID string) (*models.Version, error)
	ListByDocument(ctx context.Context, documentID string) ([]*models.Version, error)
}
