package documents

import (
	"context"
	"time"

	"docvault/internal/server/models"
)

// Filter narrows List results. Page is 1-based; Limit is clamped by the
// service before it gets here.
type Filter struct {
	// UserID scopes the listing to documents the user owns or has a
	// permission row on.
	UserID string
	// Title, when set, matches as a case-insensitive substring.
	Title string
	// FileType, when set, matches the document's extension class exactly.
	FileType string
	// Tags, when set, matches documents carrying ANY of the given tags.
	Tags  []string
	Page  int
	Limit int
}

type Repository interface {
	Create(ctx context.Context, doc *models.Document) (*models.Document, error)
	GetByID(ctx context.Context, id string) (*models.Document, error)
	// LockForUpdate loads the document row under an exclusive row lock.
	// Must be called inside a transaction; the lock is the serialization
	// point for version allocation and soft delete.
	LockForUpdate(ctx context.Context, id string) (*models.Document, error)
	UpdateMetadata(ctx context.Context, id, title, description string) error
	SetCurrentVersion(ctx context.Context, id, versionID string) error
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) error
	// List returns one page of non-deleted documents visible to f.UserID,
	// newest first, plus the total match count.
	List(ctx context.Context, f Filter) ([]*models.Document, int, error)
}
