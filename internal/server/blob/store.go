// Package blob adapts S3-compatible object storage for document content.
// The service layer only decides which key to touch; all byte plumbing and
// URL signing lives here.
package blob

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PutResult reports what landed in object storage.
type PutResult struct {
	Size int64
	// Checksum is the hex sha256 of the stored bytes.
	Checksum string
}

// Store is the blob-store contract consumed by services. Delete is unused by
// current flows but reserved for out-of-band garbage collection.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (*PutResult, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// StorageKey builds the object key for a new upload. The random component
// keeps keys collision-free without depending on the version number, which is
// only allocated later, inside the database transaction.
func StorageKey(documentID, filename string) string {
	return fmt.Sprintf("documents/%s/%s/%s", documentID, uuid.New(), filename)
}
