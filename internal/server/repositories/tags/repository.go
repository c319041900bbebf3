package tags

import "context"

type Repository interface {
	// Replace swaps the document's tag set for the given one. Tags are
	// normalized (lower case, trimmed) and deduplicated before insert.
	Replace(ctx context.Context, documentID string, tags []string) error
	ListByDocument(ctx context.Context, documentID string) ([]string, error)
}
