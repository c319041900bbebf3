package httpapi

import (
	"time"

	"docvault/internal/server/models"
	"docvault/internal/server/services"
)

type userResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func toTokenResponse(pair *services.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
	}
}

type documentResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	OwnerID          string    `json:"owner_id"`
	FileType         string    `json:"file_type"`
	CurrentVersionID string    `json:"current_version_id"`
	Tags             []string  `json:"tags"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	IsDeleted        bool      `json:"is_deleted"`
}

func toDocumentResponse(d *models.Document, tags []string) documentResponse {
	if tags == nil {
		tags = []string{}
	}
	return documentResponse{
		ID:               d.ID,
		Title:            d.Title,
		Description:      d.Description,
		OwnerID:          d.OwnerID,
		FileType:         d.FileType,
		CurrentVersionID: d.CurrentVersionID,
		Tags:             tags,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		IsDeleted:        d.IsDeleted,
	}
}

type versionResponse struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	VersionNumber int       `json:"version_number"`
	FileName      string    `json:"file_name"`
	FileSize      int64     `json:"file_size"`
	MimeType      string    `json:"mime_type"`
	Checksum      string    `json:"checksum"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

func toVersionResponse(v *models.Version) versionResponse {
	return versionResponse{
		ID:            v.ID,
		DocumentID:    v.DocumentID,
		VersionNumber: v.VersionNumber,
		FileName:      v.FileName,
		FileSize:      v.FileSize,
		MimeType:      v.MimeType,
		Checksum:      v.Checksum,
		CreatedBy:     v.CreatedBy,
		CreatedAt:     v.CreatedAt,
	}
}

type permissionResponse struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	GrantedBy string `json:"granted_by,omitempty"`
	Implicit  bool   `json:"implicit"`
}

type activityResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	DocumentID *string   `json:"document_id,omitempty"`
	Action     string    `json:"action"`
	Details    string    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type downloadResponse struct {
	DownloadURL      string `json:"download_url"`
	FileName         string `json:"file_name"`
	MimeType         string `json:"mime_type"`
	FileSize         int64  `json:"file_size"`
	VersionNumber    int    `json:"version_number"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

func (s *Server) toDownloadResponse(t *services.DownloadTarget) downloadResponse {
	return downloadResponse{
		DownloadURL:      t.URL,
		FileName:         t.Version.FileName,
		MimeType:         t.Version.MimeType,
		FileSize:         t.Version.FileSize,
		VersionNumber:    t.Version.VersionNumber,
		ExpiresInSeconds: int(s.config.PresignTTL.Seconds()),
	}
}
