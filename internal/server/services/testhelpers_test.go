package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"docvault/internal/common"
	"docvault/internal/dbx"
	"docvault/internal/logging"
	"docvault/internal/server/blob"
	"docvault/internal/server/config"
	"docvault/internal/server/models"
	"docvault/internal/server/repositories/activity"
	"docvault/internal/server/repositories/documents"
	"docvault/internal/server/repositories/permissions"
	"docvault/internal/server/repositories/refreshtokens"
	"docvault/internal/server/repositories/tags"
	"docvault/internal/server/repositories/users"
	"docvault/internal/server/repositories/versions"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeRepoManager is an in-memory RepositoryManager. The DBTX argument is
// ignored; transactional flows still exercise dbx.WithTx through a sqlmock
// database, so begin/commit pairing stays observable in tests.
type fakeRepoManager struct {
	users         *fakeUsersRepo
	documents     *fakeDocumentsRepo
	versions      *fakeVersionsRepo
	permissions   *fakePermissionsRepo
	tags          *fakeTagsRepo
	activity      *fakeActivityRepo
	refreshTokens *fakeRefreshTokensRepo
}

func newFakeRepoManager() *fakeRepoManager {
	m := &fakeRepoManager{
		users:         &fakeUsersRepo{byID: map[string]*models.User{}},
		documents:     &fakeDocumentsRepo{byID: map[string]*models.Document{}},
		versions:      &fakeVersionsRepo{},
		permissions:   &fakePermissionsRepo{byKey: map[string]*models.Permission{}},
		tags:          &fakeTagsRepo{byDocument: map[string][]string{}},
		activity:      &fakeActivityRepo{},
		refreshTokens: &fakeRefreshTokensRepo{byToken: map[string]*models.RefreshToken{}},
	}
	m.documents.permissions = m.permissions
	return m
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.users }
func (m *fakeRepoManager) Documents(dbx.DBTX) documents.Repository         { return m.documents }
func (m *fakeRepoManager) Versions(dbx.DBTX) versions.Repository           { return m.versions }
func (m *fakeRepoManager) Permissions(dbx.DBTX) permissions.Repository     { return m.permissions }
func (m *fakeRepoManager) Tags(dbx.DBTX) tags.Repository                   { return m.tags }
func (m *fakeRepoManager) Activity(dbx.DBTX) activity.Repository           { return m.activity }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.refreshTokens }

type fakeUsersRepo struct {
	byID      map[string]*models.User
	createErr error
}

func (r *fakeUsersRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, existing := range r.byID {
		if existing.Email == user.Email {
			return nil, common.Errf(common.KindConflict, "user with email %s already exists", user.Email)
		}
	}
	stored := *user
	stored.ID = uuid.New().String()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.byID[stored.ID] = &stored
	return &stored, nil
}

func (r *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUsersRepo) UpdateLastLogin(_ context.Context, id string) error {
	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	now := time.Now()
	u.LastLogin = &now
	return nil
}

func (r *fakeUsersRepo) Deactivate(_ context.Context, id string) error {
	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsActive = false
	return nil
}

type fakeDocumentsRepo struct {
	byID        map[string]*models.Document
	permissions *fakePermissionsRepo
	createErr   error
}

func (r *fakeDocumentsRepo) Create(_ context.Context, doc *models.Document) (*models.Document, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	stored := *doc
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.byID[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (r *fakeDocumentsRepo) GetByID(_ context.Context, id string) (*models.Document, error) {
	doc, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeDocumentsRepo) LockForUpdate(ctx context.Context, id string) (*models.Document, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeDocumentsRepo) UpdateMetadata(_ context.Context, id, title, description string) error {
	doc, ok := r.byID[id]
	if !ok || doc.IsDeleted {
		return common.ErrorNotFound
	}
	doc.Title = title
	doc.Description = description
	doc.UpdatedAt = time.Now()
	return nil
}

func (r *fakeDocumentsRepo) SetCurrentVersion(_ context.Context, id, versionID string) error {
	doc, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	doc.CurrentVersionID = versionID
	doc.UpdatedAt = time.Now()
	return nil
}

func (r *fakeDocumentsRepo) SoftDelete(_ context.Context, id string, deletedAt time.Time) error {
	doc, ok := r.byID[id]
	if !ok || doc.IsDeleted {
		return common.ErrorNotFound
	}
	doc.IsDeleted = true
	doc.DeletedAt = &deletedAt
	return nil
}

func (r *fakeDocumentsRepo) List(_ context.Context, f documents.Filter) ([]*models.Document, int, error) {
	var matched []*models.Document
	for _, doc := range r.byID {
		if doc.IsDeleted {
			continue
		}
		if doc.OwnerID != f.UserID {
			if _, ok := r.permissions.byKey[permKey(doc.ID, f.UserID)]; !ok {
				continue
			}
		}
		if f.Title != "" && !strings.Contains(strings.ToLower(doc.Title), strings.ToLower(f.Title)) {
			continue
		}
		if f.FileType != "" && doc.FileType != f.FileType {
			continue
		}
		copied := *doc
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	offset := (f.Page - 1) * f.Limit
	if offset >= total {
		return nil, total, nil
	}
	end := offset + f.Limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

type fakeVersionsRepo struct {
	rows      []*models.Version
	createErr error
}

func (r *fakeVersionsRepo) Create(_ context.Context, v *models.Version) (*models.Version, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, existing := range r.rows {
		if existing.DocumentID == v.DocumentID && existing.VersionNumber == v.VersionNumber {
			return nil, common.Errf(common.KindConflict, "version %d already exists", v.VersionNumber)
		}
	}
	stored := *v
	stored.ID = uuid.New().String()
	stored.CreatedAt = time.Now()
	r.rows = append(r.rows, &stored)
	v.ID = stored.ID
	copied := stored
	return &copied, nil
}

func (r *fakeVersionsRepo) MaxNumber(_ context.Context, documentID string) (int, error) {
	max := 0
	for _, v := range r.rows {
		if v.DocumentID == documentID && v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max, nil
}

func (r *fakeVersionsRepo) GetByID(_ context.Context, documentID, versionID string) (*models.Version, error) {
	for _, v := range r.rows {
		if v.DocumentID == documentID && v.ID == versionID {
			copied := *v
			return &copied, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeVersionsRepo) ListByDocument(_ context.Context, documentID string) ([]*models.Version, error) {
	var result []*models.Version
	for _, v := range r.rows {
		if v.DocumentID == documentID {
			copied := *v
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].VersionNumber > result[j].VersionNumber
	})
	return result, nil
}

func permKey(documentID, userID string) string {
	return documentID + "/" + userID
}

type fakePermissionsRepo struct {
	byKey map[string]*models.Permission
}

func (r *fakePermissionsRepo) Create(_ context.Context, p *models.Permission) (*models.Permission, error) {
	key := permKey(p.DocumentID, p.UserID)
	if _, ok := r.byKey[key]; ok {
		return nil, common.E(common.KindConflict, "permission already exists for this user")
	}
	stored := *p
	stored.ID = uuid.New().String()
	stored.GrantedAt = time.Now()
	r.byKey[key] = &stored
	copied := stored
	return &copied, nil
}

func (r *fakePermissionsRepo) Get(_ context.Context, documentID, userID string) (*models.Permission, error) {
	p, ok := r.byKey[permKey(documentID, userID)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakePermissionsRepo) UpdateRole(_ context.Context, documentID, userID string, role models.Role) error {
	p, ok := r.byKey[permKey(documentID, userID)]
	if !ok {
		return common.ErrorNotFound
	}
	p.Role = role
	return nil
}

func (r *fakePermissionsRepo) Delete(_ context.Context, documentID, userID string) error {
	key := permKey(documentID, userID)
	if _, ok := r.byKey[key]; !ok {
		return common.ErrorNotFound
	}
	delete(r.byKey, key)
	return nil
}

func (r *fakePermissionsRepo) ListByDocument(_ context.Context, documentID string) ([]*models.Permission, error) {
	var result []*models.Permission
	for _, p := range r.byKey {
		if p.DocumentID == documentID {
			copied := *p
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].GrantedAt.After(result[j].GrantedAt)
	})
	return result, nil
}

type fakeTagsRepo struct {
	byDocument map[string][]string
}

func (r *fakeTagsRepo) Replace(_ context.Context, documentID string, t []string) error {
	r.byDocument[documentID] = tags.Normalize(t)
	return nil
}

func (r *fakeTagsRepo) ListByDocument(_ context.Context, documentID string) ([]string, error) {
	return r.byDocument[documentID], nil
}

type fakeActivityRepo struct {
	entries   []*models.ActivityLogEntry
	createErr error
}

func (r *fakeActivityRepo) Create(_ context.Context, e *models.ActivityLogEntry) error {
	if r.createErr != nil {
		return r.createErr
	}
	stored := *e
	stored.ID = uuid.New().String()
	stored.CreatedAt = time.Now()
	r.entries = append(r.entries, &stored)
	return nil
}

func (r *fakeActivityRepo) ListByDocument(_ context.Context, documentID string, limit int) ([]*models.ActivityLogEntry, error) {
	var result []*models.ActivityLogEntry
	for i := len(r.entries) - 1; i >= 0 && len(result) < limit; i-- {
		e := r.entries[i]
		if e.DocumentID != nil && *e.DocumentID == documentID {
			copied := *e
			result = append(result, &copied)
		}
	}
	return result, nil
}

// lastAction returns the most recently recorded action name, or "".
func (r *fakeActivityRepo) lastAction() string {
	if len(r.entries) == 0 {
		return ""
	}
	return r.entries[len(r.entries)-1].Action
}

type fakeRefreshTokensRepo struct {
	byToken map[string]*models.RefreshToken
}

func (r *fakeRefreshTokensRepo) Create(_ context.Context, userID, token string, validity time.Duration) error {
	r.byToken[token] = &models.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     token,
		Expires:   time.Now().Add(validity),
		CreatedAt: time.Now(),
	}
	return nil
}

func (r *fakeRefreshTokensRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	t, ok := r.byToken[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeRefreshTokensRepo) Delete(_ context.Context, token string) error {
	delete(r.byToken, token)
	return nil
}

// fakeBlobStore keeps objects in a map and fails on demand.
type fakeBlobStore struct {
	objects    map[string][]byte
	putErr     error
	presignErr error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}}
}

func (s *fakeBlobStore) Put(_ context.Context, key string, data []byte, _ string) (*blob.PutResult, error) {
	if s.putErr != nil {
		return nil, s.putErr
	}
	s.objects[key] = append([]byte(nil), data...)
	sum := sha256.Sum256(data)
	return &blob.PutResult{Size: int64(len(data)), Checksum: hex.EncodeToString(sum[:])}, nil
}

func (s *fakeBlobStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	if _, ok := s.objects[key]; !ok {
		return "", fmt.Errorf("no object at %s", key)
	}
	return "https://blobs.test/" + key, nil
}

func (s *fakeBlobStore) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

// fixture wires every service against the fake repositories, the fake blob
// store, and a sqlmock database that answers transaction begin/commit.
type fixture struct {
	db   *sql.DB
	mock sqlmock.Sqlmock
	rm   *fakeRepoManager
	blob *fakeBlobStore
	cfg  *config.Config

	users       *UserService
	documents   *DocumentService
	permissions *PermissionService
	activity    *ActivityService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// Transactional flows open and close transactions freely; the fakes hold
	// the state, so any begin/commit/rollback sequence is acceptable.
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 32; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}

	cfg := &config.Config{}
	cfg.LoadDefaults()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	rm := newFakeRepoManager()
	store := newFakeBlobStore()

	activitySvc := NewActivityService(db, rm, logger)
	permSvc := NewPermissionService(db, rm, activitySvc, logger)
	docSvc := NewDocumentService(db, rm, store, permSvc, activitySvc, cfg, logger)
	userSvc := NewUserService(db, rm, activitySvc, cfg, logger)

	return &fixture{
		db:          db,
		mock:        mock,
		rm:          rm,
		blob:        store,
		cfg:         cfg,
		users:       userSvc,
		documents:   docSvc,
		permissions: permSvc,
		activity:    activitySvc,
	}
}

// mustRegister creates an account through the service.
func (f *fixture) mustRegister(t *testing.T, email string) *models.User {
	t.Helper()
	user, err := f.users.Register(context.Background(), RegisterInput{
		Email:    email,
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return user
}

// mustCreateDocument uploads a small pdf owned by ownerID.
func (f *fixture) mustCreateDocument(t *testing.T, ownerID, title string) *models.Document {
	t.Helper()
	doc, _, err := f.documents.Create(context.Background(), ownerID, CreateDocumentInput{
		Title:    title,
		FileName: "report.pdf",
		MimeType: "application/pdf",
		Content:  []byte("%PDF-1.4 test content"),
		Tags:     []string{"test"},
	})
	require.NoError(t, err)
	return doc
}
