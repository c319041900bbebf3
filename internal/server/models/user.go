package models

import "time"

// User is an account holder. Users are deactivated, never hard-deleted.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    *time.Time
	IsActive     bool
}
