package services

import (
	"context"
	"database/sql"
	"errors"

	"docvault/internal/common"
	"docvault/internal/logging"
	"docvault/internal/server/models"
	"docvault/internal/server/repositories/repomanager"
)

const activityListLimit = 100

// ActivityService appends audit entries for every mutating action. Writes are
// best-effort: a failed append never fails the operation that triggered it,
// but it is surfaced to operators through the log.
type ActivityService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewActivityService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *ActivityService {
	return &ActivityService{db: db, repomanager: m, logger: logger.With("component", "activity")}
}

// Record appends an audit entry. documentID may be nil for account-level
// actions. Failures are logged, never returned.
func (s *ActivityService) Record(ctx context.Context, actorID string, documentID *string, action, details string) {
	repo := s.repomanager.Activity(s.db)

	entry := &models.ActivityLogEntry{
		UserID:     actorID,
		DocumentID: documentID,
		Action:     action,
		Details:    details,
	}

	if err := repo.Create(ctx, entry); err != nil {
		args := []any{"action", action, "actor_id", actorID, "error", err}
		if documentID != nil {
			args = append(args, "document_id", *documentID)
		}
		s.logger.Warn(ctx, "activity log write failed", args...)
	}
}

// ListForDocument returns the audit trail of a document, newest first. Only
// the owner may read it; soft-deleted documents remain visible to the owner.
func (s *ActivityService) ListForDocument(ctx context.Context, documentID, actorID string) ([]*models.ActivityLogEntry, error) {
	docRepo := s.repomanager.Documents(s.db)

	doc, err := docRepo.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.E(common.KindNotFound, "document not found")
		}
		return nil, common.Wrap(common.KindInternal, "loading document", err)
	}
	if doc.OwnerID != actorID {
		return nil, common.E(common.KindForbidden, "only the owner may read the activity log")
	}

	entries, err := s.repomanager.Activity(s.db).ListByDocument(ctx, documentID, activityListLimit)
	if err != nil {
		return nil, common.Wrap(common.KindInternal, "listing activity", err)
	}
	return entries, nil
}
