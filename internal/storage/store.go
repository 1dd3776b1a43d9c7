// Package storage persists sites and their analysis results.
package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// DefaultHistoryLimit is the number of results returned by ResultHistory when no limit is given.
const DefaultHistoryLimit = 10

// SiteStore persists sites together with their languages.
// Sites are returned with languages ordered by weight.
type SiteStore interface {
	ListSites(ctx context.Context) ([]models.Site, error)
	GetSite(ctx context.Context, id string) (*models.Site, error)
	// GetSiteByName returns nil and no error when no site has that name.
	GetSiteByName(ctx context.Context, name string) (*models.Site, error)
	CreateSite(ctx context.Context, site *models.Site) error
	UpdateSite(ctx context.Context, site *models.Site) error
	// DeleteSite removes the site, its languages and its results.
	DeleteSite(ctx context.Context, id string) error
}

// ResultStore persists analysis results. Results are never modified after SaveResult.
type ResultStore interface {
	SaveResult(ctx context.Context, result *models.AnalysisResult) error
	// LatestResults returns the newest result of every language of the site, newest first.
	LatestResults(ctx context.Context, siteID string) ([]models.AnalysisResult, error)
	// LatestResult returns nil and no error when the language has no result yet.
	LatestResult(ctx context.Context, siteID, languageCode string) (*models.AnalysisResult, error)
	ResultHistory(ctx context.Context, siteID string, limit int) ([]models.AnalysisResult, error)
	ListRefs(ctx context.Context, siteID string) ([]models.ResultRef, error)
	DeleteExcept(ctx context.Context, siteID string, keepIDs []string) (int, error)
}

// Store is a complete persistence backend.
type Store interface {
	SiteStore
	ResultStore
	Ping(ctx context.Context) error
	Close() error
}

func newID() string {
	return uuid.NewString()
}

// prepareSite fills in the identifier and timestamps of a site about to be created.
func prepareSite(site *models.Site, now time.Time) {
	if site.ID == "" {
		site.ID = newID()
	}
	if site.CreatedAt.IsZero() {
		site.CreatedAt = now
	}
	site.UpdatedAt = now
	site.SortLanguages()
}

// prepareResult fills in the identifier and timestamp of a result about to be saved.
func prepareResult(result *models.AnalysisResult, now time.Time) {
	if result.ID == "" {
		result.ID = newID()
	}
	if result.AnalyzedAt.IsZero() {
		result.AnalyzedAt = now
	}
	result.MissingContentFiles = nonNil(result.MissingContentFiles)
	result.MissingI18nKeys = nonNil(result.MissingI18nKeys)
	result.ExtraI18nKeys = nonNil(result.ExtraI18nKeys)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func duplicateName(name string) error {
	return errors.New(errors.ErrCodeDuplicateName, fmt.Sprintf("site with name %q already exists", name)).
		WithContext("name", name)
}

func storageError(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, errors.ErrCodeStorage, fmt.Sprintf("failed to %s", op))
}

// latestPerLanguage keeps the first result seen for each language of an
// already newest-first slice.
func latestPerLanguage(ordered []models.AnalysisResult) []models.AnalysisResult {
	seen := make(map[string]struct{})
	out := []models.AnalysisResult{}
	for _, r := range ordered {
		if _, ok := seen[r.LanguageCode]; ok {
			continue
		}
		seen[r.LanguageCode] = struct{}{}
		out = append(out, r)
	}
	return out
}

type storedResult struct {
	models.AnalysisResult
	Seq int64 `json:"seq"`
}

// sortNewestFirst orders results by AnalyzedAt descending, later inserts first on ties.
func sortNewestFirst(results []storedResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if !results[i].AnalyzedAt.Equal(results[j].AnalyzedAt) {
			return results[i].AnalyzedAt.After(results[j].AnalyzedAt)
		}
		return results[i].Seq > results[j].Seq
	})
}
