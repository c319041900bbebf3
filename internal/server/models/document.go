package models

import "time"

// Document is the unit of sharing and versioning. The owner is fixed at
// creation. A non-deleted document always points at exactly one current
// version, which is the highest-numbered version it has.
type Document struct {
	ID          string
	Title       string
	Description string
	OwnerID     string
	// CurrentVersionID is the id of the latest Version. Empty only inside the
	// creation transaction, before the first version row exists.
	CurrentVersionID string
	// FileType is the extension class fixed at creation (e.g. "pdf").
	// New versions must keep this type.
	FileType  string
	CreatedAt time.Time
	UpdatedAt time.Time
	IsDeleted bool
	DeletedAt *time.Time
}
