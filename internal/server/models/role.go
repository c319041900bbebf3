// Package models defines the server-side entities persisted in the database.
package models

// Role is an access level on a document. The hierarchy is totally ordered:
// ADMIN > EDIT > READ. The owner of a document holds an implicit ADMIN that is
// never stored as a permission row.
type Role string

const (
	RoleRead  Role = "READ"
	RoleEdit  Role = "EDIT"
	RoleAdmin Role = "ADMIN"
)

// Level returns the rank used for hierarchy comparisons; unknown roles rank 0.
func (r Role) Level() int {
	switch r {
	case RoleRead:
		return 1
	case RoleEdit:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

// Covers reports whether r satisfies the given minimum role.
func (r Role) Covers(minimum Role) bool {
	return r.Level() >= minimum.Level()
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	return r.Level() > 0
}
