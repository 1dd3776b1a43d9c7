// Package analyzer drives the per-language completeness analysis of a site.
//
// A run takes one repository tree listing, compares every target language's
// content manifest and translation keys against the base language, persists
// each successful result as soon as it is ready and finally applies the
// retention policy.
package analyzer

import (
	"context"
	"path"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"l10ntrack/internal/diff"
	"l10ntrack/internal/i18n"
	"l10ntrack/internal/manifest"
	"l10ntrack/internal/observability"
	"l10ntrack/internal/retention"
	"l10ntrack/internal/vcs"
	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// FileFetcher returns the content of a repository file. A missing file must
// be reported with an UpstreamNotFound error.
type FileFetcher func(ctx context.Context, path string) (string, error)

// Store persists results and exposes what the retention policy prunes.
type Store interface {
	SaveResult(ctx context.Context, result *models.AnalysisResult) error
	retention.Store
}

// Options tunes an Analyzer.
type Options struct {
	// Workers bounds how many languages are analyzed at once. Values below 1 mean 1.
	Workers int
	// I18nFormat selects the translation file extension, {i18nPath}/{code}.{ext}.
	I18nFormat i18n.Format
	// ContentSuffix selects content files, ".md" when empty.
	ContentSuffix string
	// KeepCount is the per-site retention cap; zero or less keeps everything.
	KeepCount int
}

// DefaultOptions returns sequential analysis of TOML translation files keeping ten results.
func DefaultOptions() Options {
	return Options{
		Workers:       1,
		I18nFormat:    i18n.FormatTOML,
		ContentSuffix: manifest.DefaultSuffix,
		KeepCount:     retention.DefaultKeepCount,
	}
}

// Analyzer is stateless between runs and safe for concurrent use.
type Analyzer struct {
	provider vcs.Provider
	store    Store
	policy   retention.Policy
	opts     Options
	logger   *observability.Logger
	metrics  *observability.AnalysisMetrics
	now      func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the analyzer's logger.
func WithLogger(l *observability.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics records run and language counters into m.
func WithMetrics(m *observability.AnalysisMetrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// New creates an Analyzer. store may be nil, in which case nothing is persisted or pruned.
func New(provider vcs.Provider, store Store, opts Options, options ...Option) *Analyzer {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.I18nFormat == i18n.FormatUnknown {
		opts.I18nFormat = i18n.FormatTOML
	}
	if opts.ContentSuffix == "" {
		opts.ContentSuffix = manifest.DefaultSuffix
	}

	a := &Analyzer{
		provider: provider,
		store:    store,
		policy:   retention.NewPolicy(opts.KeepCount),
		opts:     opts,
		logger:   observability.NewNopLogger(),
		metrics:  observability.NewAnalysisMetrics(),
		now:      time.Now,
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// Progress reports one finished language of a run.
type Progress struct {
	SiteID    string                 `json:"siteId"`
	Language  string                 `json:"language"`
	Completed int                    `json:"completed"`
	Total     int                    `json:"total"`
	Result    *models.AnalysisResult `json:"result"`
}

// ProgressFunc receives progress events. It may be called from several goroutines.
type ProgressFunc func(Progress)

// RunOption configures a single run.
type RunOption func(*runConfig)

type runConfig struct {
	progress ProgressFunc
}

// WithProgress registers a callback invoked after each language completes.
func WithProgress(fn ProgressFunc) RunOption {
	return func(c *runConfig) { c.progress = fn }
}

// Report is the outcome of AnalyzeSite.
type Report struct {
	Results []models.AnalysisResult `json:"results"`
	Summary models.AnalysisSummary  `json:"summary"`
	Pruned  int                     `json:"-"`
}

// AnalyzeSite fetches the site's tree once and runs the analysis over it.
// Tree fetch failures abort the run without producing any results.
func (a *Analyzer) AnalyzeSite(ctx context.Context, site *models.Site, opts ...RunOption) (*Report, error) {
	start := a.now()

	tree, err := a.provider.GetTree(ctx, site.RepoOwner, site.RepoName, site.Branch)
	if err != nil {
		a.metrics.Runs.Inc()
		a.metrics.RunFailures.Inc()
		a.logger.WithError(err).WarnWithFields("Failed to fetch repository tree", map[string]interface{}{
			"site":       site.Name,
			"repository": site.Repository(),
			"branch":     site.Branch,
		})
		return nil, err
	}

	fetch := func(ctx context.Context, p string) (string, error) {
		return a.provider.GetFileContent(ctx, site.RepoOwner, site.RepoName, p, site.Branch)
	}

	results, pruned, err := a.run(ctx, site, tree, fetch, start, opts)
	if err != nil {
		return nil, err
	}

	return &Report{
		Results: results,
		Summary: models.AnalysisSummary{
			TotalLanguages: len(results),
			AnalyzedAt:     start,
			DurationMs:     a.now().Sub(start).Milliseconds(),
		},
		Pruned: pruned,
	}, nil
}

// Run analyzes every target language of site against a pre-fetched tree,
// persisting each successful result and pruning history afterwards. Results
// come back in site.Languages order; failed languages carry ErrorMessage and
// zeroed metrics.
func (a *Analyzer) Run(ctx context.Context, site *models.Site, tree []models.RepositoryTreeEntry, fetch FileFetcher, opts ...RunOption) ([]models.AnalysisResult, error) {
	results, _, err := a.run(ctx, site, tree, fetch, a.now(), opts)
	return results, err
}

func (a *Analyzer) run(ctx context.Context, site *models.Site, tree []models.RepositoryTreeEntry, fetch FileFetcher, start time.Time, opts []RunOption) ([]models.AnalysisResult, int, error) {
	cfg := runConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	a.metrics.Runs.Inc()
	targets := site.TargetLanguages()
	log := a.logger.WithFields(map[string]interface{}{
		"site":       site.Name,
		"repository": site.Repository(),
		"languages":  len(targets),
	})
	log.Info("Starting analysis")

	baseManifest := manifest.ExtractWithSuffix(tree, site.ContentPath, site.BaseLanguage, a.opts.ContentSuffix)

	results := make([]*models.AnalysisResult, len(targets))
	var (
		mu        sync.Mutex
		completed int
	)

	var g errgroup.Group
	g.SetLimit(a.opts.Workers)
	for i, lang := range targets {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			result, err := a.analyzeLanguage(ctx, site, lang, tree, baseManifest, fetch, start)
			if ctx.Err() != nil {
				// abandoned: nothing is persisted for languages still in flight
				return nil
			}
			if err != nil {
				result = a.failedResult(site, lang, start, err)
			} else if a.store != nil {
				saveErr := a.saveResult(ctx, result)
				if ctx.Err() != nil {
					return nil
				}
				if saveErr != nil {
					result = a.failedResult(site, lang, start, saveErr)
				}
			}

			a.metrics.Languages.Inc()
			fields := map[string]interface{}{
				"language":    lang.Code,
				"duration_ms": result.DurationMs,
			}
			if result.Failed() {
				a.metrics.LanguageErrors.Inc()
				fields["error"] = result.ErrorMessage
				log.WarnWithFields("Language analysis failed", fields)
			} else {
				fields["content_rate"] = result.ContentCompletionRate
				fields["i18n_rate"] = result.I18nCompletionRate
				log.InfoWithFields("Language analyzed", fields)
			}

			results[i] = result

			if cfg.progress != nil {
				mu.Lock()
				completed++
				event := Progress{
					SiteID:    site.ID,
					Language:  lang.Code,
					Completed: completed,
					Total:     len(targets),
					Result:    result,
				}
				mu.Unlock()
				cfg.progress(event)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		a.metrics.RunFailures.Inc()
		log.Warn("Analysis cancelled")
		return nil, 0, err
	}

	out := make([]models.AnalysisResult, 0, len(results))
	for _, r := range results {
		out = append(out, *r)
	}

	pruned := 0
	if a.store != nil {
		n, err := a.policy.Prune(ctx, a.store, site.ID)
		if err != nil {
			log.WithError(err).Warn("Failed to prune analysis history")
		} else {
			pruned = n
			a.metrics.ResultsPruned.Add(float64(n))
		}
	}

	elapsed := a.now().Sub(start)
	a.metrics.RunDuration.Observe(elapsed.Seconds())
	log.InfoWithFields("Analysis finished", map[string]interface{}{
		"duration_ms": elapsed.Milliseconds(),
		"pruned":      pruned,
	})

	return out, pruned, nil
}

// saveResult persists result unless the run was cancelled first.
func (a *Analyzer) saveResult(ctx context.Context, result *models.AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.store.SaveResult(ctx, result)
}

// analyzeLanguage compares one target language against the base language.
func (a *Analyzer) analyzeLanguage(ctx context.Context, site *models.Site, lang models.Language, tree []models.RepositoryTreeEntry, baseManifest []string, fetch FileFetcher, start time.Time) (*models.AnalysisResult, error) {
	targetManifest := manifest.ExtractWithSuffix(tree, site.ContentPath, lang.Code, a.opts.ContentSuffix)
	content := diff.Compare(baseManifest, targetManifest)

	baseKeys, err := a.loadKeys(ctx, site, site.BaseLanguage, fetch)
	if err != nil {
		return nil, err
	}

	targetKeys, err := a.loadKeys(ctx, site, lang.Code, fetch)
	if err != nil {
		if !errors.IsNotFound(err) {
			return nil, err
		}
		// an absent target file means nothing has been translated yet
		targetKeys = models.FlatKeyMap{}
	}

	keys := diff.Compare(baseKeys.Keys(), targetKeys.Keys())

	return &models.AnalysisResult{
		SiteID:                 site.ID,
		LanguageCode:           lang.Code,
		TotalContentFiles:      content.Total,
		TranslatedContentFiles: content.Translated,
		ContentCompletionRate:  content.Rate,
		MissingContentFiles:    content.Missing,
		TotalI18nKeys:          keys.Total,
		TranslatedI18nKeys:     keys.Translated,
		I18nCompletionRate:     keys.Rate,
		MissingI18nKeys:        keys.Missing,
		ExtraI18nKeys:          keys.Extra,
		DurationMs:             a.now().Sub(start).Milliseconds(),
		AnalyzedAt:             a.now(),
	}, nil
}

// loadKeys fetches and flattens {i18nPath}/{code}.{ext}.
func (a *Analyzer) loadKeys(ctx context.Context, site *models.Site, code string, fetch FileFetcher) (models.FlatKeyMap, error) {
	p := ConfigPath(site.I18nPath, code, a.opts.I18nFormat)

	content, err := fetch(ctx, p)
	if err != nil {
		return nil, err
	}

	doc, err := i18n.Parse(content, a.opts.I18nFormat)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return nil, appErr.WithContext("path", p)
		}
		return nil, err
	}
	return i18n.Flatten(doc), nil
}

func (a *Analyzer) failedResult(site *models.Site, lang models.Language, start time.Time, err error) *models.AnalysisResult {
	return &models.AnalysisResult{
		SiteID:              site.ID,
		LanguageCode:        lang.Code,
		MissingContentFiles: []string{},
		MissingI18nKeys:     []string{},
		ExtraI18nKeys:       []string{},
		DurationMs:          a.now().Sub(start).Milliseconds(),
		ErrorMessage:        errors.Summary(err),
		AnalyzedAt:          a.now(),
	}
}

// ConfigPath builds the translation file path for one language.
func ConfigPath(i18nPath, code string, format i18n.Format) string {
	return path.Join(i18nPath, code+"."+format.Extension())
}
