package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"l10ntrack/pkg/errors"
)

var resultRowColumns = []string{
	"id", "site_id", "language_code", "total_content_files", "translated_content_files",
	"content_completion_rate", "missing_content_files", "total_i18n_keys", "translated_i18n_keys",
	"i18n_completion_rate", "missing_i18n_keys", "extra_i18n_keys", "duration_ms", "error_message", "analyzed_at",
}

var siteRowColumns = []string{
	"id", "name", "repo_owner", "repo_name", "branch", "content_path", "i18n_path",
	"config_path", "base_language", "created_at", "updated_at",
}

func newMockStore(t *testing.T, dialect Dialect) (*SQLStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewSQLStore(db, dialect)
	store.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return store, mock
}

func TestRebind(t *testing.T) {
	pg := NewSQLStore(nil, DialectPostgres)
	sf := NewSQLStore(nil, DialectSnowflake)

	q := `SELECT * FROM analyses WHERE site_id = ? AND id NOT IN (?,?)`
	assert.Equal(t, `SELECT * FROM analyses WHERE site_id = $1 AND id NOT IN ($2,$3)`, pg.rebind(q))
	assert.Equal(t, q, sf.rebind(q))
}

func TestMigrate(t *testing.T) {
	t.Run("postgres creates tables and indexes once", func(t *testing.T) {
		store, mock := newMockStore(t, DialectPostgres)
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS sites").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS site_languages").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("seq BIGSERIAL").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_analyses_site_analyzed").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_analyses_site_language").WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, store.Migrate(context.Background()))
		require.NoError(t, store.Migrate(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("snowflake skips indexes", func(t *testing.T) {
		store, mock := newMockStore(t, DialectSnowflake)
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS sites").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS site_languages").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("seq INTEGER AUTOINCREMENT").WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, store.Migrate(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure is remembered", func(t *testing.T) {
		store, mock := newMockStore(t, DialectPostgres)
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS sites").WillReturnError(sql.ErrConnDone)

		err := store.Migrate(context.Background())
		assert.Equal(t, errors.ErrCodeStorage, errors.GetErrorCode(err))
		assert.Error(t, store.Migrate(context.Background()))
	})
}

func TestSQLGetSite(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, name, .* FROM sites WHERE id = \$1`).
		WithArgs("site-1").
		WillReturnRows(sqlmock.NewRows(siteRowColumns).
			AddRow("site-1", "docs", "acme", "docs", "main", "content", "i18n", "", "en", created, created))
	mock.ExpectQuery(`SELECT site_id, code, name, native_name, weight FROM site_languages WHERE site_id = \$1`).
		WithArgs("site-1").
		WillReturnRows(sqlmock.NewRows([]string{"site_id", "code", "name", "native_name", "weight"}).
			AddRow("site-1", "en", "English", "", 0).
			AddRow("site-1", "fr", "French", "Français", 1))

	site, err := store.GetSite(context.Background(), "site-1")
	require.NoError(t, err)
	assert.Equal(t, "docs", site.Name)
	assert.Equal(t, []string{"en", "fr"}, codes(site.Languages))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLGetSiteNotFound(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)

	mock.ExpectQuery(`FROM sites WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(siteRowColumns))

	_, err := store.GetSite(context.Background(), "missing")
	assert.Equal(t, errors.ErrCodeSiteNotFound, errors.GetErrorCode(err))
}

func TestSQLCreateSite(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	site := testSite("docs")

	mock.ExpectQuery(`FROM sites WHERE name = \$1`).
		WithArgs("docs").
		WillReturnRows(sqlmock.NewRows(siteRowColumns))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO sites`).
		WithArgs(sqlmock.AnyArg(), "docs", "acme", "docs", "main", "content", "i18n", "", "en",
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	for _, code := range []string{"en", "ja", "fr"} {
		mock.ExpectExec(`INSERT INTO site_languages`).
			WithArgs(sqlmock.AnyArg(), code, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, store.CreateSite(context.Background(), site))
	assert.NotEmpty(t, site.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCreateSiteRollsBackOnLanguageFailure(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)

	mock.ExpectQuery(`FROM sites WHERE name = \$1`).WillReturnRows(sqlmock.NewRows(siteRowColumns))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO sites`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO site_languages`).WillReturnError(sql.ErrTxDone)
	mock.ExpectRollback()

	err := store.CreateSite(context.Background(), testSite("docs"))
	assert.Equal(t, errors.ErrCodeStorage, errors.GetErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLDeleteSiteCascades(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM analyses WHERE site_id = \$1`).WithArgs("site-1").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`DELETE FROM site_languages WHERE site_id = \$1`).WithArgs("site-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM sites WHERE id = \$1`).WithArgs("site-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.DeleteSite(context.Background(), "site-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSaveResult(t *testing.T) {
	store, mock := newMockStore(t, DialectSnowflake)
	result := testResult("site-1", "fr", time.Time{})

	mock.ExpectExec(`INSERT INTO analyses`).
		WithArgs(sqlmock.AnyArg(), "site-1", "fr", 3, 1, 33.33, `["b.md","c.md"]`,
			0, 0, 0.0, `[]`, `[]`, int64(0), "", store.now()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.SaveResult(context.Background(), result))
	assert.Equal(t, store.now(), result.AnalyzedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLatestResults(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM analyses\s+WHERE site_id = \$1 ORDER BY analyzed_at DESC, seq DESC`).
		WithArgs("site-1").
		WillReturnRows(sqlmock.NewRows(resultRowColumns).
			AddRow("r3", "site-1", "fr", 2, 2, 100.0, `[]`, 4, 4, 100.0, `[]`, `["new.key"]`, 120, "", t0.Add(time.Hour)).
			AddRow("r2", "site-1", "ja", 2, 1, 50.0, `["b.md"]`, 4, 0, 0.0, `not json`, `[]`, 90, "", t0).
			AddRow("r1", "site-1", "fr", 2, 0, 0.0, `["a.md","b.md"]`, 4, 0, 0.0, `[]`, `[]`, 80, "", t0))

	results, err := store.LatestResults(context.Background(), "site-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "r3", results[0].ID)
	assert.Equal(t, []string{"new.key"}, results[0].ExtraI18nKeys)
	assert.Equal(t, "r2", results[1].ID)
	assert.Equal(t, []string{}, results[1].MissingI18nKeys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLResultHistoryDefaultLimit(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)

	mock.ExpectQuery(`LIMIT 10`).WithArgs("site-1").WillReturnRows(sqlmock.NewRows(resultRowColumns))

	results, err := store.ResultHistory(context.Background(), "site-1", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLDeleteExcept(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)

	mock.ExpectExec(`DELETE FROM analyses WHERE site_id = \$1 AND id NOT IN \(\$2,\$3\)`).
		WithArgs("site-1", "r9", "r8").
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := store.DeleteExcept(context.Background(), "site-1", []string{"r9", "r8"})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLListRefs(t *testing.T) {
	store, mock := newMockStore(t, DialectSnowflake)
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, analyzed_at, seq FROM analyses WHERE site_id = \?`).
		WithArgs("site-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "analyzed_at", "seq"}).
			AddRow("r1", t0, 1).
			AddRow("r2", t0, 2))

	refs, err := store.ListRefs(context.Background(), "site-1")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, int64(2), refs[1].Seq)
}

func TestSQLPing(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	mock.ExpectExec(`SELECT 1`).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.Ping(context.Background()))
}
