package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"docvault/internal/common"
	"docvault/internal/dbx"
	"docvault/internal/logging"
	"docvault/internal/server/blob"
	"docvault/internal/server/config"
	"docvault/internal/server/models"
	"docvault/internal/server/repositories/documents"
	"docvault/internal/server/repositories/repomanager"

	"github.com/google/uuid"
)

const (
	defaultPageSize    = 20
	defaultContentType = "application/octet-stream"

	// maxPageNumber bounds the listing offset so arbitrary page values
	// cannot push (page-1)*limit past what the database will take.
	maxPageNumber = 100_000
)

// DocumentService orchestrates the document lifecycle: create, metadata
// update, new versions, soft delete, and downloads.
//
// Write ordering: the blob is always stored before the database transaction
// opens. If the transaction then fails, the orphaned blob is left behind for
// out-of-band garbage collection; the opposite ordering could commit a
// document whose content never landed.
//
// Version numbers are allocated under the document row lock, inside the same
// transaction as the version insert, so concurrent uploads to one document
// serialize and the numbers stay contiguous. The lock is never held across a
// blob upload.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blob        blob.Store
	permissions *PermissionService
	activity    *ActivityService
	config      *config.Config
	logger      logging.Logger
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, store blob.Store,
	perms *PermissionService, activity *ActivityService, cfg *config.Config, logger logging.Logger) *DocumentService {
	return &DocumentService{
		db:          db,
		repomanager: m,
		blob:        store,
		permissions: perms,
		activity:    activity,
		config:      cfg,
		logger:      logger,
	}
}

type CreateDocumentInput struct {
	Title       string
	Description string
	Tags        []string
	FileName    string
	MimeType    string
	Content     []byte
}

type UpdateDocumentInput struct {
	// Nil pointers leave the field unchanged.
	Title       *string
	Description *string
	// Nil leaves tags unchanged; an empty slice clears them.
	Tags []string
}

type UploadVersionInput struct {
	FileName string
	MimeType string
	Content  []byte
}

// ListDocumentsInput narrows and pages the listing. Limit is clamped to the
// configured ceiling.
type ListDocumentsInput struct {
	Title    string
	FileType string
	Tags     []string
	Page     int
	Limit    int
}

// DocumentPage is one page of listing results. Page and Limit are the values
// actually applied after defaulting and clamping, not the ones requested.
type DocumentPage struct {
	Documents []*models.Document
	Total     int
	Page      int
	Limit     int
}

// Create validates the upload, stores the blob, and then inserts the
// document, its first version, and its tags in one transaction.
func (s *DocumentService) Create(ctx context.Context, ownerID string, in CreateDocumentInput) (*models.Document, *models.Version, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, nil, common.E(common.KindInvalidInput, "title must not be empty")
	}

	ext, err := s.validateFile(in.FileName, in.Content)
	if err != nil {
		return nil, nil, err
	}

	// The id is generated here so the blob key can reference the document
	// before the row exists.
	docID := uuid.New().String()
	key := blob.StorageKey(docID, in.FileName)

	put, err := s.blob.Put(ctx, key, in.Content, contentTypeOrDefault(in.MimeType))
	if err != nil {
		return nil, nil, common.Wrap(common.KindStorageUnavailable, "storing file content", err)
	}

	doc := &models.Document{
		ID:          docID,
		Title:       title,
		Description: in.Description,
		OwnerID:     ownerID,
		FileType:    ext,
	}
	version := &models.Version{
		DocumentID:    docID,
		VersionNumber: 1,
		StorageKey:    key,
		FileName:      in.FileName,
		FileSize:      put.Size,
		MimeType:      contentTypeOrDefault(in.MimeType),
		Checksum:      put.Checksum,
		CreatedBy:     ownerID,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Documents(tx).Create(ctx, doc); err != nil {
			return err
		}
		if _, err := s.repomanager.Versions(tx).Create(ctx, version); err != nil {
			return err
		}
		if err := s.repomanager.Documents(tx).SetCurrentVersion(ctx, docID, version.ID); err != nil {
			return err
		}
		return s.repomanager.Tags(tx).Replace(ctx, docID, in.Tags)
	})
	if err != nil {
		// The blob stays behind; out-of-band GC reclaims it.
		s.logger.Error(ctx, "document creation failed after blob write",
			"document_id", docID, "storage_key", key, "error", err)
		return nil, nil, common.Wrap(common.KindInternal, "creating document", err)
	}
	doc.CurrentVersionID = version.ID

	s.activity.Record(ctx, ownerID, &docID, models.ActionUpload,
		fmt.Sprintf("uploaded %s (version 1)", in.FileName))

	return doc, version, nil
}

// Get loads a document with its tags, enforcing READ access. A soft-deleted
// document is hidden from everyone but its owner.
func (s *DocumentService) Get(ctx context.Context, documentID, actorID string) (*models.Document, []string, error) {
	doc, err := s.load(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.permissions.Require(ctx, doc, actorID, models.RoleRead); err != nil {
		return nil, nil, err
	}

	docTags, err := s.repomanager.Tags(s.db).ListByDocument(ctx, documentID)
	if err != nil {
		return nil, nil, common.Wrap(common.KindInternal, "loading tags", err)
	}

	return doc, docTags, nil
}

// UpdateMetadata changes title, description, and tags. Content and owner are
// immutable; new content goes through UploadNewVersion.
func (s *DocumentService) UpdateMetadata(ctx context.Context, documentID, actorID string, in UpdateDocumentInput) (*models.Document, error) {
	doc, err := s.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.IsDeleted {
		return nil, common.E(common.KindNotFound, "document not found")
	}
	if err := s.permissions.Require(ctx, doc, actorID, models.RoleEdit); err != nil {
		return nil, err
	}

	title := doc.Title
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, common.E(common.KindInvalidInput, "title must not be empty")
		}
	}
	description := doc.Description
	if in.Description != nil {
		description = *in.Description
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Documents(tx).UpdateMetadata(ctx, documentID, title, description); err != nil {
			return err
		}
		if in.Tags != nil {
			return s.repomanager.Tags(tx).Replace(ctx, documentID, in.Tags)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.E(common.KindNotFound, "document not found")
		}
		return nil, common.Wrap(common.KindInternal, "updating document", err)
	}

	s.activity.Record(ctx, actorID, &documentID, models.ActionUpdate, "updated metadata")

	return s.load(ctx, documentID)
}

// UploadNewVersion stores new content as the next version. The extension
// class is fixed at creation; uploads of a different type are rejected. The
// version number is allocated under the document row lock, in the same
// transaction as the insert.
func (s *DocumentService) UploadNewVersion(ctx context.Context, documentID, actorID string, in UploadVersionInput) (*models.Version, error) {
	doc, err := s.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.IsDeleted {
		return nil, common.E(common.KindNotFound, "document not found")
	}
	if err := s.permissions.Require(ctx, doc, actorID, models.RoleEdit); err != nil {
		return nil, err
	}

	ext, err := s.validateFile(in.FileName, in.Content)
	if err != nil {
		return nil, err
	}
	if ext != doc.FileType {
		return nil, common.Errf(common.KindInvalidInput,
			"document type is %s, cannot upload %s", doc.FileType, ext)
	}

	key := blob.StorageKey(documentID, in.FileName)
	put, err := s.blob.Put(ctx, key, in.Content, contentTypeOrDefault(in.MimeType))
	if err != nil {
		return nil, common.Wrap(common.KindStorageUnavailable, "storing file content", err)
	}

	version := &models.Version{
		DocumentID: documentID,
		StorageKey: key,
		FileName:   in.FileName,
		FileSize:   put.Size,
		MimeType:   contentTypeOrDefault(in.MimeType),
		Checksum:   put.Checksum,
		CreatedBy:  actorID,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// The row lock serializes concurrent uploads and delete on this
		// document until commit.
		locked, err := s.repomanager.Documents(tx).LockForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		if locked.IsDeleted {
			return common.E(common.KindNotFound, "document not found")
		}

		max, err := s.repomanager.Versions(tx).MaxNumber(ctx, documentID)
		if err != nil {
			return err
		}
		version.VersionNumber = max + 1

		if _, err := s.repomanager.Versions(tx).Create(ctx, version); err != nil {
			return err
		}
		return s.repomanager.Documents(tx).SetCurrentVersion(ctx, documentID, version.ID)
	})
	if err != nil {
		var appErr *common.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		s.logger.Error(ctx, "version upload failed after blob write",
			"document_id", documentID, "storage_key", key, "error", err)
		return nil, common.Wrap(common.KindInternal, "creating version", err)
	}

	s.activity.Record(ctx, actorID, &documentID, models.ActionNewVersion,
		fmt.Sprintf("uploaded %s (version %d)", in.FileName, version.VersionNumber))

	return version, nil
}

// SoftDelete hides the document from listings and access checks. Versions,
// permissions, and blobs stay behind for audit and recovery. Deleting twice
// is an error, not a no-op.
func (s *DocumentService) SoftDelete(ctx context.Context, documentID, actorID string) error {
	doc, err := s.load(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.IsDeleted {
		return common.E(common.KindNotFound, "document not found")
	}
	if err := s.permissions.Require(ctx, doc, actorID, models.RoleAdmin); err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// Same lock as version allocation, so a delete cannot slip between
		// an upload's number allocation and its insert.
		locked, err := s.repomanager.Documents(tx).LockForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		if locked.IsDeleted {
			return common.E(common.KindNotFound, "document not found")
		}
		return s.repomanager.Documents(tx).SoftDelete(ctx, documentID, time.Now().UTC())
	})
	if err != nil {
		var appErr *common.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return common.Wrap(common.KindInternal, "deleting document", err)
	}

	s.activity.Record(ctx, actorID, &documentID, models.ActionDelete, "soft-deleted document")

	return nil
}

// DownloadTarget is a presigned URL for one version's content.
type DownloadTarget struct {
	URL     string
	Version *models.Version
}

// GetDownloadTarget presigns the current version for download. Requires READ;
// soft-deleted documents are not downloadable through the API.
func (s *DocumentService) GetDownloadTarget(ctx context.Context, documentID, actorID string) (*DownloadTarget, error) {
	doc, err := s.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.IsDeleted {
		return nil, common.E(common.KindNotFound, "document not found")
	}
	if err := s.permissions.Require(ctx, doc, actorID, models.RoleRead); err != nil {
		return nil, err
	}

	return s.presignVersion(ctx, doc, doc.CurrentVersionID, actorID)
}

// GetVersionDownloadTarget presigns a specific historical version. The owner
// may still reach versions of a soft-deleted document for recovery.
func (s *DocumentService) GetVersionDownloadTarget(ctx context.Context, documentID, versionID, actorID string) (*DownloadTarget, error) {
	doc, err := s.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.permissions.Require(ctx, doc, actorID, models.RoleRead); err != nil {
		return nil, err
	}

	return s.presignVersion(ctx, doc, versionID, actorID)
}

func (s *DocumentService) presignVersion(ctx context.Context, doc *models.Document, versionID, actorID string) (*DownloadTarget, error) {
	if versionID == "" {
		// A document without a current version violates the creation
		// invariant and should never be observable.
		return nil, common.E(common.KindInternal, "document has no current version")
	}

	version, err := s.repomanager.Versions(s.db).GetByID(ctx, doc.ID, versionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.E(common.KindNotFound, "version not found")
		}
		return nil, common.Wrap(common.KindInternal, "loading version", err)
	}

	url, err := s.blob.PresignGet(ctx, version.StorageKey, s.config.PresignTTL)
	if err != nil {
		return nil, common.Wrap(common.KindStorageUnavailable, "generating download URL", err)
	}

	s.activity.Record(ctx, actorID, &doc.ID, models.ActionDownload,
		fmt.Sprintf("downloaded version %d", version.VersionNumber))

	return &DownloadTarget{URL: url, Version: version}, nil
}

// ListVersions returns the full version history, newest first. The owner may
// inspect history of a soft-deleted document.
func (s *DocumentService) ListVersions(ctx context.Context, documentID, actorID string) ([]*models.Version, error) {
	doc, err := s.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.permissions.Require(ctx, doc, actorID, models.RoleRead); err != nil {
		return nil, err
	}

	result, err := s.repomanager.Versions(s.db).ListByDocument(ctx, documentID)
	if err != nil {
		return nil, common.Wrap(common.KindInternal, "listing versions", err)
	}
	return result, nil
}

// List pages through non-deleted documents the actor owns or has access to,
// newest first.
func (s *DocumentService) List(ctx context.Context, actorID string, in ListDocumentsInput) (*DocumentPage, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > s.config.MaxPageSize {
		limit = s.config.MaxPageSize
	}
	page := in.Page
	if page < 1 {
		page = 1
	}
	if page > maxPageNumber {
		page = maxPageNumber
	}

	docs, total, err := s.repomanager.Documents(s.db).List(ctx, documents.Filter{
		UserID:   actorID,
		Title:    in.Title,
		FileType: in.FileType,
		Tags:     in.Tags,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return nil, common.Wrap(common.KindInternal, "listing documents", err)
	}

	return &DocumentPage{Documents: docs, Total: total, Page: page, Limit: limit}, nil
}

// load fetches a document, translating missing rows to NotFound. Deletion
// visibility is decided by the callers.
func (s *DocumentService) load(ctx context.Context, documentID string) (*models.Document, error) {
	doc, err := s.repomanager.Documents(s.db).GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.E(common.KindNotFound, "document not found")
		}
		return nil, common.Wrap(common.KindInternal, "loading document", err)
	}
	return doc, nil
}

// validateFile checks size and extension against the configured limits and
// returns the extension class.
func (s *DocumentService) validateFile(filename string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", common.E(common.KindInvalidInput, "file is empty")
	}
	if int64(len(content)) > s.config.MaxUploadSize {
		return "", common.Errf(common.KindInvalidInput,
			"file size %d exceeds maximum of %d bytes", len(content), s.config.MaxUploadSize)
	}

	ext := fileExtension(filename)
	if ext == "" || !s.config.ExtensionAllowed(ext) {
		return "", common.Errf(common.KindInvalidInput, "file type %q is not allowed", ext)
	}

	return ext, nil
}

// fileExtension returns the lower-case extension without the dot.
func fileExtension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
}

func contentTypeOrDefault(mime string) string {
	if mime == "" {
		return defaultContentType
	}
	return mime
}
