// Package app wires configuration into the long-lived services the CLI and
// the HTTP server share.
package app

import (
	"context"
	"io"
	"net/http"
	"strings"

	"l10ntrack/internal/analyzer"
	"l10ntrack/internal/export"
	"l10ntrack/internal/i18n"
	"l10ntrack/internal/observability"
	"l10ntrack/internal/server"
	"l10ntrack/internal/site"
	"l10ntrack/internal/storage"
	"l10ntrack/internal/vcs"
	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// App holds one instance of every service built from a Config.
type App struct {
	Config   *models.Config
	Logger   *observability.Logger
	Metrics  *observability.AnalysisMetrics
	Health   *observability.HealthManager
	Store    storage.Store
	Provider vcs.Provider
	Analyzer *analyzer.Analyzer
	Sites    *site.Service

	closers []io.Closer
}

// Option overrides a dependency New would otherwise build from the config.
type Option func(*App)

// WithStore uses store instead of opening cfg.Database.
func WithStore(store storage.Store) Option {
	return func(a *App) { a.Store = store }
}

// WithProvider uses p instead of building cfg.Provider.
func WithProvider(p vcs.Provider) Option {
	return func(a *App) { a.Provider = p }
}

// WithLogger uses logger instead of one built from cfg.Logging.
func WithLogger(logger *observability.Logger) Option {
	return func(a *App) { a.Logger = logger }
}

// New builds the application. The caller must Close it.
func New(ctx context.Context, cfg *models.Config, version string, opts ...Option) (*App, error) {
	a := &App{Config: cfg, Metrics: observability.NewAnalysisMetrics()}
	for _, o := range opts {
		o(a)
	}

	if a.Logger == nil {
		logger, closer, err := observability.NewLoggerFromConfig(cfg.Logging, version)
		if err != nil {
			return nil, err
		}
		a.Logger = logger
		a.closers = append(a.closers, closer)
	}

	if a.Store == nil {
		store, err := storage.Open(ctx, cfg.Database)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Store = store
		a.closers = append(a.closers, store)
	}

	if a.Provider == nil {
		provider, err := vcs.New(cfg.Provider, a.Logger.WithField("component", "vcs"), a.Metrics.ProviderRetries.Inc)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Provider = provider
	}

	format, ok := i18n.FormatFromExtension(strings.ToLower(cfg.Analysis.I18nFormat))
	if !ok {
		_ = a.Close()
		return nil, errors.ConfigError("unsupported analysis.i18n_format "+cfg.Analysis.I18nFormat, "analysis.i18n_format")
	}

	a.Analyzer = analyzer.New(a.Provider, a.Store, analyzer.Options{
		Workers:       cfg.Analysis.Workers,
		I18nFormat:    format,
		ContentSuffix: cfg.Analysis.ContentSuffix,
		KeepCount:     cfg.Analysis.KeepCount,
	},
		analyzer.WithLogger(a.Logger.WithField("component", "analyzer")),
		analyzer.WithMetrics(a.Metrics),
	)
	a.Sites = site.NewService(a.Store, a.Provider, a.Logger.WithField("component", "site"))

	a.Health = observability.NewHealthManager(0, a.Logger)
	a.Health.RegisterCheck("store", a.Store.Ping)

	return a, nil
}

// Handler returns the HTTP API over this application's services.
func (a *App) Handler() http.Handler {
	return server.NewHandler(a.Config.Server, server.Dependencies{
		Sites:    a.Sites,
		Results:  a.Store,
		Analyzer: a.Analyzer,
		Health:   a.Health,
		Metrics:  a.Metrics,
		Logger:   a.Logger.WithField("component", "http"),
	})
}

// Server returns an HTTP server for Handler bound to server.addr.
func (a *App) Server() *server.Server {
	return server.New(a.Config.Server, a.Handler(), a.Logger)
}

// Uploader returns the S3 uploader configured under export.s3.
func (a *App) Uploader() (export.Uploader, error) {
	u, err := export.NewS3Uploader(a.Config.Export.S3)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Close releases the store and the log output, in reverse order of creation.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
