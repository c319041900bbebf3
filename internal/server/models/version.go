package models

import "time"

// Version is one immutable upload of a document's content. Rows are never
// updated or deleted; a new upload always inserts a new row. Version numbers
// are contiguous per document, starting at 1.
type Version struct {
	ID            string
	DocumentID    string
	VersionNumber int
	// StorageKey addresses the blob in object storage.
	StorageKey string
	FileName   string
	FileSize   int64
	MimeType   string
	// Checksum is the hex sha256 of the content, computed on upload.
	Checksum  string
	CreatedBy string
	CreatedAt time.Time
}
