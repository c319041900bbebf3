package permissions

import (
	"context"

	"docvault/internal/server/models"
)

type Repository interface {
	// Create inserts a grant. A second grant for the same (document, user)
	// pair fails with a Conflict error from the uniqueness constraint.
	Create(ctx context.Context, p *models.Permission) (*models.Permission, error)
	Get(ctx context.Context, documentID, userID string) (*models.Permission, error)
	UpdateRole(ctx context.Context, documentID, userID string, role models.Role) error
	Delete(ctx context.Context, documentID, userID string) error
	ListByDocument(ctx context.Context, documentID string) ([]*models.Permission, error)
}
