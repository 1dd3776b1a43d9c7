package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// Dialect selects placeholder syntax and DDL for a SQL backend.
type Dialect string

const (
	DialectPostgres  Dialect = "postgres"
	DialectSnowflake Dialect = "snowflake"
)

// driverName is the database/sql driver registered for the dialect.
func (d Dialect) driverName() string {
	if d == DialectSnowflake {
		return "snowflake"
	}
	return "pgx"
}

// SQLStore persists sites and results in a relational database.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time

	schemaOnce sync.Once
	schemaErr  error
}

// OpenSQL opens and pings a database for the given dialect.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(dialect.driverName(), strings.TrimSpace(dsn))
	if err != nil {
		return nil, storageError(err, "open database")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to connect to database").
			WithContext("driver", string(dialect)).
			WithSuggestions("Check database.dsn in the configuration")
	}
	return NewSQLStore(db, dialect), nil
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

func (s *SQLStore) schema() []string {
	seqColumn := "seq BIGSERIAL"
	if s.dialect == DialectSnowflake {
		seqColumn = "seq INTEGER AUTOINCREMENT"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sites (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  repo_owner TEXT NOT NULL,
  repo_name TEXT NOT NULL,
  branch TEXT NOT NULL,
  content_path TEXT NOT NULL,
  i18n_path TEXT NOT NULL,
  config_path TEXT NOT NULL DEFAULT '',
  base_language TEXT NOT NULL,
  created_at TIMESTAMP WITH TIME ZONE NOT NULL,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS site_languages (
  site_id TEXT NOT NULL,
  code TEXT NOT NULL,
  name TEXT NOT NULL,
  native_name TEXT NOT NULL DEFAULT '',
  weight INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (site_id, code)
)`,
		`CREATE TABLE IF NOT EXISTS analyses (
  id TEXT PRIMARY KEY,
  ` + seqColumn + `,
  site_id TEXT NOT NULL,
  language_code TEXT NOT NULL,
  total_content_files INTEGER NOT NULL,
  translated_content_files INTEGER NOT NULL,
  content_completion_rate DOUBLE PRECISION NOT NULL,
  missing_content_files TEXT NOT NULL,
  total_i18n_keys INTEGER NOT NULL,
  translated_i18n_keys INTEGER NOT NULL,
  i18n_completion_rate DOUBLE PRECISION NOT NULL,
  missing_i18n_keys TEXT NOT NULL,
  extra_i18n_keys TEXT NOT NULL,
  duration_ms BIGINT NOT NULL,
  error_message TEXT NOT NULL DEFAULT '',
  analyzed_at TIMESTAMP WITH TIME ZONE NOT NULL
)`,
	}

	// Snowflake has no secondary indexes on standard tables.
	if s.dialect == DialectPostgres {
		stmts = append(stmts,
			`CREATE INDEX IF NOT EXISTS idx_analyses_site_analyzed ON analyses (site_id, analyzed_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_analyses_site_language ON analyses (site_id, language_code, analyzed_at DESC)`,
		)
	}
	return stmts
}

// Migrate creates the tables if they do not exist. Only the first call does any work.
func (s *SQLStore) Migrate(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		for _, stmt := range s.schema() {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				s.schemaErr = storageError(err, "create schema")
				return
			}
		}
	})
	return s.schemaErr
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const siteColumns = `id, name, repo_owner, repo_name, branch, content_path, i18n_path, config_path, base_language, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSite(row rowScanner) (models.Site, error) {
	var site models.Site
	err := row.Scan(
		&site.ID,
		&site.Name,
		&site.RepoOwner,
		&site.RepoName,
		&site.Branch,
		&site.ContentPath,
		&site.I18nPath,
		&site.ConfigPath,
		&site.BaseLanguage,
		&site.CreatedAt,
		&site.UpdatedAt,
	)
	return site, err
}

func (s *SQLStore) ListSites(ctx context.Context) ([]models.Site, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY created_at DESC`)
	if err != nil {
		return nil, storageError(err, "list sites")
	}
	defer rows.Close()

	sites := []models.Site{}
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, storageError(err, "scan site")
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "list sites")
	}

	langs, err := s.languages(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range sites {
		sites[i].Languages = langs[sites[i].ID]
	}
	return sites, nil
}

// languages loads languages grouped by site, ordered by weight. An empty siteID loads every site.
func (s *SQLStore) languages(ctx context.Context, siteID string) (map[string][]models.Language, error) {
	query := `SELECT site_id, code, name, native_name, weight FROM site_languages`
	var args []any
	if siteID != "" {
		query += ` WHERE site_id = ?`
		args = append(args, siteID)
	}
	query += ` ORDER BY site_id, weight, code`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, storageError(err, "list languages")
	}
	defer rows.Close()

	out := make(map[string][]models.Language)
	for rows.Next() {
		var id string
		var l models.Language
		if err := rows.Scan(&id, &l.Code, &l.Name, &l.NativeName, &l.Weight); err != nil {
			return nil, storageError(err, "scan language")
		}
		out[id] = append(out[id], l)
	}
	return out, storageError(rows.Err(), "list languages")
}

func (s *SQLStore) getSiteBy(ctx context.Context, column, value string) (*models.Site, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+siteColumns+` FROM sites WHERE `+column+` = ?`), value)
	site, err := scanSite(row)
	if err != nil {
		return nil, err
	}

	langs, err := s.languages(ctx, site.ID)
	if err != nil {
		return nil, err
	}
	site.Languages = langs[site.ID]
	return &site, nil
}

func (s *SQLStore) GetSite(ctx context.Context, id string) (*models.Site, error) {
	site, err := s.getSiteBy(ctx, "id", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.SiteNotFound(id)
	}
	if err != nil {
		return nil, storageError(err, "get site")
	}
	return site, nil
}

func (s *SQLStore) GetSiteByName(ctx context.Context, name string) (*models.Site, error) {
	site, err := s.getSiteBy(ctx, "name", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(err, "get site")
	}
	return site, nil
}

func (s *SQLStore) CreateSite(ctx context.Context, site *models.Site) error {
	existing, err := s.GetSiteByName(ctx, site.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		return duplicateName(site.Name)
	}

	prepareSite(site, s.now().UTC())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO sites (`+siteColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`),
		site.ID, site.Name, site.RepoOwner, site.RepoName, site.Branch,
		site.ContentPath, site.I18nPath, site.ConfigPath, site.BaseLanguage,
		site.CreatedAt, site.UpdatedAt)
	if err != nil {
		return storageError(err, "insert site")
	}

	for _, l := range site.Languages {
		_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO site_languages (site_id, code, name, native_name, weight)
VALUES (?,?,?,?,?)`), site.ID, l.Code, l.Name, l.NativeName, l.Weight)
		if err != nil {
			return storageError(err, "insert language")
		}
	}

	return storageError(tx.Commit(), "commit site")
}

func (s *SQLStore) UpdateSite(ctx context.Context, site *models.Site) error {
	existing, err := s.GetSiteByName(ctx, site.Name)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != site.ID {
		return duplicateName(site.Name)
	}

	site.UpdatedAt = s.now().UTC()
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE sites
SET name = ?, branch = ?, content_path = ?, i18n_path = ?, config_path = ?, updated_at = ?
WHERE id = ?`),
		site.Name, site.Branch, site.ContentPath, site.I18nPath, site.ConfigPath, site.UpdatedAt, site.ID)
	if err != nil {
		return storageError(err, "update site")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.SiteNotFound(site.ID)
	}
	return nil
}

func (s *SQLStore) DeleteSite(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM analyses WHERE site_id = ?`), id); err != nil {
		return storageError(err, "delete analyses")
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM site_languages WHERE site_id = ?`), id); err != nil {
		return storageError(err, "delete languages")
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM sites WHERE id = ?`), id)
	if err != nil {
		return storageError(err, "delete site")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.SiteNotFound(id)
	}
	return storageError(tx.Commit(), "commit site deletion")
}

const resultColumns = `id, site_id, language_code, total_content_files, translated_content_files,
content_completion_rate, missing_content_files, total_i18n_keys, translated_i18n_keys,
i18n_completion_rate, missing_i18n_keys, extra_i18n_keys, duration_ms, error_message, analyzed_at`

func (s *SQLStore) SaveResult(ctx context.Context, result *models.AnalysisResult) error {
	prepareResult(result, s.now().UTC())

	missingFiles, _ := json.Marshal(result.MissingContentFiles)
	missingKeys, _ := json.Marshal(result.MissingI18nKeys)
	extraKeys, _ := json.Marshal(result.ExtraI18nKeys)

	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO analyses (`+resultColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`),
		result.ID, result.SiteID, result.LanguageCode,
		result.TotalContentFiles, result.TranslatedContentFiles, result.ContentCompletionRate, string(missingFiles),
		result.TotalI18nKeys, result.TranslatedI18nKeys, result.I18nCompletionRate, string(missingKeys), string(extraKeys),
		result.DurationMs, result.ErrorMessage, result.AnalyzedAt)
	return storageError(err, "save analysis result")
}

func scanResult(row rowScanner) (models.AnalysisResult, error) {
	var r models.AnalysisResult
	var missingFiles, missingKeys, extraKeys string
	err := row.Scan(
		&r.ID, &r.SiteID, &r.LanguageCode,
		&r.TotalContentFiles, &r.TranslatedContentFiles, &r.ContentCompletionRate, &missingFiles,
		&r.TotalI18nKeys, &r.TranslatedI18nKeys, &r.I18nCompletionRate, &missingKeys, &extraKeys,
		&r.DurationMs, &r.ErrorMessage, &r.AnalyzedAt,
	)
	if err != nil {
		return r, err
	}
	r.MissingContentFiles = decodeList(missingFiles)
	r.MissingI18nKeys = decodeList(missingKeys)
	r.ExtraI18nKeys = decodeList(extraKeys)
	return r, nil
}

// decodeList reads a JSON string array; anything unreadable is an empty list.
func decodeList(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func (s *SQLStore) queryResults(ctx context.Context, query string, args ...any) ([]models.AnalysisResult, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, storageError(err, "query analysis results")
	}
	defer rows.Close()

	results := []models.AnalysisResult{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, storageError(err, "scan analysis result")
		}
		results = append(results, r)
	}
	return results, storageError(rows.Err(), "query analysis results")
}

func (s *SQLStore) LatestResults(ctx context.Context, siteID string) ([]models.AnalysisResult, error) {
	results, err := s.queryResults(ctx, `SELECT `+resultColumns+` FROM analyses
WHERE site_id = ? ORDER BY analyzed_at DESC, seq DESC`, siteID)
	if err != nil {
		return nil, err
	}
	return latestPerLanguage(results), nil
}

func (s *SQLStore) LatestResult(ctx context.Context, siteID, languageCode string) (*models.AnalysisResult, error) {
	results, err := s.queryResults(ctx, `SELECT `+resultColumns+` FROM analyses
WHERE site_id = ? AND language_code = ? ORDER BY analyzed_at DESC, seq DESC LIMIT 1`, siteID, languageCode)
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return &results[0], nil
}

func (s *SQLStore) ResultHistory(ctx context.Context, siteID string, limit int) ([]models.AnalysisResult, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.queryResults(ctx, fmt.Sprintf(`SELECT `+resultColumns+` FROM analyses
WHERE site_id = ? ORDER BY analyzed_at DESC, seq DESC LIMIT %d`, limit), siteID)
}

func (s *SQLStore) ListRefs(ctx context.Context, siteID string) ([]models.ResultRef, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, analyzed_at, seq FROM analyses WHERE site_id = ?`), siteID)
	if err != nil {
		return nil, storageError(err, "list analysis results")
	}
	defer rows.Close()

	refs := []models.ResultRef{}
	for rows.Next() {
		var ref models.ResultRef
		if err := rows.Scan(&ref.ID, &ref.AnalyzedAt, &ref.Seq); err != nil {
			return nil, storageError(err, "scan analysis result")
		}
		refs = append(refs, ref)
	}
	return refs, storageError(rows.Err(), "list analysis results")
}

func (s *SQLStore) DeleteExcept(ctx context.Context, siteID string, keepIDs []string) (int, error) {
	query := `DELETE FROM analyses WHERE site_id = ?`
	args := []any{siteID}
	if len(keepIDs) > 0 {
		query += ` AND id NOT IN (?` + strings.Repeat(",?", len(keepIDs)-1) + `)`
		for _, id := range keepIDs {
			args = append(args, id)
		}
	}

	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return 0, storageError(err, "delete analysis results")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageError(err, "count deleted analysis results")
	}
	return int(n), nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `SELECT 1`); err != nil {
		return storageError(err, "ping database")
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
