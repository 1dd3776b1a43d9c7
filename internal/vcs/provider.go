// Package vcs reads repository trees and file contents from a hosting
// provider. Two providers exist: the GitHub REST API and a local go-git
// mirror kept under a cache directory.
package vcs

import (
	"context"
	"fmt"
	"strings"

	"l10ntrack/internal/observability"
	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// Provider is the read-only view of a hosted repository the analyzer needs.
type Provider interface {
	// GetTree lists every entry of the branch head, recursively.
	GetTree(ctx context.Context, owner, repo, branch string) ([]models.RepositoryTreeEntry, error)
	// GetFileContent returns the decoded text of one file at ref.
	GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error)
	// CheckRepository reports whether owner/repo exists.
	CheckRepository(ctx context.Context, owner, repo string) (bool, error)
	// CheckBranch reports whether branch exists in owner/repo.
	CheckBranch(ctx context.Context, owner, repo, branch string) (bool, error)
}

// Provider types accepted in configuration.
const (
	TypeGitHub = "github"
	TypeGit    = "git"
)

// New builds the provider selected by cfg. Content reads are wrapped in an
// LRU cache when cfg.CacheSize is positive.
func New(cfg models.Provider, logger *observability.Logger, onRetry func()) (Provider, error) {
	var p Provider
	switch strings.ToLower(cfg.Type) {
	case "", TypeGitHub:
		opts := []GitHubOption{WithLogger(logger)}
		if cfg.GitHubAPIURL != "" {
			opts = append(opts, WithBaseURL(cfg.GitHubAPIURL))
		}
		if cfg.MaxRetries > 0 {
			opts = append(opts, WithMaxRetries(cfg.MaxRetries))
		}
		if onRetry != nil {
			opts = append(opts, WithOnRetry(onRetry))
		}
		p = NewGitHubProvider(ResolveToken(), opts...)
	case TypeGit:
		p = NewGitProvider(GitOptions{
			CacheDir:    cfg.CacheDir,
			URLTemplate: cfg.GitURLTemplate,
			Sync:        cfg.Sync,
			Token:       ResolveToken(),
			Logger:      logger,
		})
	default:
		return nil, errors.ConfigError(fmt.Sprintf("unknown provider type %q", cfg.Type), "provider.type")
	}

	if cfg.CacheSize > 0 {
		p = NewCachedProvider(p, cfg.CacheSize, cfg.CacheTTL)
	}
	return p, nil
}
