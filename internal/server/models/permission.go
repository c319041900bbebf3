package models

import "time"

// Permission grants a user a role on a document. At most one row exists per
// (document, user) pair; re-granting is a conflict, not an upsert. The owner
// never has a row; ownership implies ADMIN by construction.
type Permission struct {
	ID         string
	DocumentID string
	UserID     string
	Role       Role
	GrantedBy  string
	GrantedAt  time.Time
}
