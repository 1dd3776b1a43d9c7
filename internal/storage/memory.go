package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// MemoryStore keeps everything in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	sites   map[string]models.Site
	results []storedResult
	seq     int64
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sites: make(map[string]models.Site),
		now:   time.Now,
	}
}

func (m *MemoryStore) ListSites(ctx context.Context) ([]models.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sites := make([]models.Site, 0, len(m.sites))
	for _, s := range m.sites {
		sites = append(sites, copySite(s))
	}
	sort.SliceStable(sites, func(i, j int) bool {
		if !sites[i].CreatedAt.Equal(sites[j].CreatedAt) {
			return sites[i].CreatedAt.After(sites[j].CreatedAt)
		}
		return sites[i].Name < sites[j].Name
	})
	return sites, nil
}

func (m *MemoryStore) GetSite(ctx context.Context, id string) (*models.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sites[id]
	if !ok {
		return nil, errors.SiteNotFound(id)
	}
	site := copySite(s)
	return &site, nil
}

func (m *MemoryStore) GetSiteByName(ctx context.Context, name string) (*models.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sites {
		if s.Name == name {
			site := copySite(s)
			return &site, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) CreateSite(ctx context.Context, site *models.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sites {
		if s.Name == site.Name {
			return duplicateName(site.Name)
		}
	}
	prepareSite(site, m.now())
	m.sites[site.ID] = copySite(*site)
	return nil
}

func (m *MemoryStore) UpdateSite(ctx context.Context, site *models.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sites[site.ID]
	if !ok {
		return errors.SiteNotFound(site.ID)
	}
	for id, s := range m.sites {
		if id != site.ID && s.Name == site.Name {
			return duplicateName(site.Name)
		}
	}

	site.CreatedAt = existing.CreatedAt
	site.UpdatedAt = m.now()
	site.SortLanguages()
	m.sites[site.ID] = copySite(*site)
	return nil
}

func (m *MemoryStore) DeleteSite(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sites[id]; !ok {
		return errors.SiteNotFound(id)
	}
	delete(m.sites, id)

	kept := m.results[:0]
	for _, r := range m.results {
		if r.SiteID != id {
			kept = append(kept, r)
		}
	}
	m.results = kept
	return nil
}

func (m *MemoryStore) SaveResult(ctx context.Context, result *models.AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prepareResult(result, m.now())
	m.seq++
	m.results = append(m.results, storedResult{AnalysisResult: copyResult(*result), Seq: m.seq})
	return nil
}

// siteResults returns the results of a site newest first. Callers hold mu.
func (m *MemoryStore) siteResults(siteID string) []storedResult {
	var out []storedResult
	for _, r := range m.results {
		if r.SiteID == siteID {
			out = append(out, r)
		}
	}
	sortNewestFirst(out)
	return out
}

func (m *MemoryStore) LatestResults(ctx context.Context, siteID string) ([]models.AnalysisResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return latestPerLanguage(unwrap(m.siteResults(siteID))), nil
}

func (m *MemoryStore) LatestResult(ctx context.Context, siteID, languageCode string) (*models.AnalysisResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.siteResults(siteID) {
		if r.LanguageCode == languageCode {
			res := copyResult(r.AnalysisResult)
			return &res, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ResultHistory(ctx context.Context, siteID string, limit int) ([]models.AnalysisResult, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := unwrap(m.siteResults(siteID))
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryStore) ListRefs(ctx context.Context, siteID string) ([]models.ResultRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	refs := []models.ResultRef{}
	for _, r := range m.results {
		if r.SiteID == siteID {
			refs = append(refs, models.ResultRef{ID: r.ID, AnalyzedAt: r.AnalyzedAt, Seq: r.Seq})
		}
	}
	return refs, nil
}

func (m *MemoryStore) DeleteExcept(ctx context.Context, siteID string, keepIDs []string) (int, error) {
	keep := make(map[string]struct{}, len(keepIDs))
	for _, id := range keepIDs {
		keep[id] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	kept := m.results[:0]
	for _, r := range m.results {
		if r.SiteID == siteID {
			if _, ok := keep[r.ID]; !ok {
				deleted++
				continue
			}
		}
		kept = append(kept, r)
	}
	m.results = kept
	return deleted, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) Close() error {
	return nil
}

func unwrap(results []storedResult) []models.AnalysisResult {
	out := make([]models.AnalysisResult, len(results))
	for i, r := range results {
		out[i] = copyResult(r.AnalysisResult)
	}
	return out
}

func copySite(s models.Site) models.Site {
	s.Languages = append([]models.Language(nil), s.Languages...)
	return s
}

func copyResult(r models.AnalysisResult) models.AnalysisResult {
	r.MissingContentFiles = append([]string{}, r.MissingContentFiles...)
	r.MissingI18nKeys = append([]string{}, r.MissingI18nKeys...)
	r.ExtraI18nKeys = append([]string{}, r.ExtraI18nKeys...)
	return r
}
