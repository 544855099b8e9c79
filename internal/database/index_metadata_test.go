package database_test

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/database"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/domain"
)

var metadataColumns = []string{"id", "index_name", "status", "created_at", "updated_at"}

func newMock(t *testing.T) (*database.Connection, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return database.NewFromDB(db), mock
}

func TestMigrationSource(t *testing.T) {
	t.Parallel()

	src, err := database.MigrationSource()
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	version, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	up, _, err := src.ReadUp(version)
	require.NoError(t, err)
	defer func() { _ = up.Close() }()

	body, err := io.ReadAll(up)
	require.NoError(t, err)
	assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS index_metadata")

	down, _, err := src.ReadDown(version)
	require.NoError(t, err)
	_ = down.Close()
}

func TestSaveIndexMetadata(t *testing.T) {
	t.Parallel()

	conn, mock := newMock(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO index_metadata")).
		WithArgs("articles", domain.IndexStatusActive, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(metadataColumns).AddRow(7, "articles", "active", now, now))

	m, err := conn.SaveIndexMetadata(context.Background(), "articles", domain.IndexStatusActive)
	require.NoError(t, err)
	assert.Equal(t, 7, m.ID)
	assert.Equal(t, "articles", m.IndexName)
	assert.Equal(t, now, m.CreatedAt)
}

func TestSaveIndexMetadata_Error(t *testing.T) {
	t.Parallel()

	conn, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO index_metadata")).
		WillReturnError(errors.New("connection reset"))

	_, err := conn.SaveIndexMetadata(context.Background(), "articles", domain.IndexStatusActive)
	require.ErrorContains(t, err, "connection reset")
}

func TestGetIndexMetadata(t *testing.T) {
	t.Parallel()

	conn, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM index_metadata")).
		WithArgs("articles").
		WillReturnRows(sqlmock.NewRows(metadataColumns).AddRow(1, "articles", "deleted", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM index_metadata")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(metadataColumns))

	m, err := conn.GetIndexMetadata(context.Background(), "articles")
	require.NoError(t, err)
	assert.Equal(t, domain.IndexStatusDeleted, m.Status)

	_, err = conn.GetIndexMetadata(context.Background(), "missing")
	require.ErrorIs(t, err, database.ErrIndexMetadataNotFound)
}

func TestListIndexMetadata(t *testing.T) {
	t.Parallel()

	conn, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM index_metadata WHERE status = $1 ORDER BY index_name")).
		WithArgs("active").
		WillReturnRows(sqlmock.NewRows(metadataColumns).
			AddRow(1, "a", "active", now, now).
			AddRow(2, "b", "active", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM index_metadata ORDER BY index_name")).
		WillReturnRows(sqlmock.NewRows(metadataColumns))

	list, err := conn.ListIndexMetadata(context.Background(), "active")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[1].IndexName)

	list, err = conn.ListIndexMetadata(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConfig_DSN(t *testing.T) {
	t.Parallel()

	cfg := database.Config{Host: "db", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=d sslmode=disable", cfg.DSN())
}
