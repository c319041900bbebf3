package versions

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"docvault/internal/common"
	"docvault/internal/server/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO document_versions`).
		WithArgs("d1", 2, "documents/d1/k/q3.pdf", "q3.pdf", int64(9), "application/pdf", "abc", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("v2", now))

	v, err := repo.Create(context.Background(), &models.Version{
		DocumentID: "d1", VersionNumber: 2, StorageKey: "documents/d1/k/q3.pdf",
		FileName: "q3.pdf", FileSize: 9, MimeType: "application/pdf",
		Checksum: "abc", CreatedBy: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "v2", v.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaxNumber(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(version_number\), 0\) FROM document_versions`).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(3))

	max, err := repo.MaxNumber(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, 3, max)

	// A document with no versions yields zero, not an error.
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(version_number\), 0\) FROM document_versions`).
		WithArgs("d2").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))

	max, err = repo.MaxNumber(context.Background(), "d2")
	require.NoError(t, err)
	assert.Zero(t, max)
}

func TestGetByIDScopedToDocument(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`SELECT (.+) FROM document_versions WHERE id = \$1 AND document_id = \$2`).
		WithArgs("v1", "other-doc").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "other-doc", "v1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListByDocument(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "document_id", "version_number", "storage_key", "file_name",
		"file_size", "mime_type", "checksum", "created_by", "created_at",
	}).
		AddRow("v2", "d1", 2, "k2", "b.pdf", int64(2), "application/pdf", "c2", "u1", now).
		AddRow("v1", "d1", 1, "k1", "a.pdf", int64(1), "application/pdf", "c1", "u1", now)

	mock.ExpectQuery(`SELECT (.+) FROM document_versions WHERE document_id = \$1 ORDER BY version_number DESC`).
		WithArgs("d1").
		WillReturnRows(rows)

	versions, err := repo.ListByDocument(context.Background(), "d1")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].VersionNumber)
	assert.Equal(t, 1, versions[1].VersionNumber)
}
