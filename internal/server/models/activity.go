package models

import "time"

// Audit action names recorded by the activity log.
const (
	ActionRegister         = "register"
	ActionLogin            = "login"
	ActionLogout           = "logout"
	ActionUpload           = "upload"
	ActionUpdate           = "update"
	ActionDelete           = "delete"
	ActionNewVersion       = "new_version"
	ActionDownload         = "download"
	ActionGrant            = "grant"
	ActionUpdatePermission = "update_permission"
	ActionRevoke           = "revoke"
)

// ActivityLogEntry is an append-only audit record. Entries are never updated
// or deleted by the service.
type ActivityLogEntry struct {
	ID     string
	UserID string
	// DocumentID is nil for actions without a document (register, login).
	DocumentID *string
	Action     string
	Details    string
	CreatedAt  time.Time
}
