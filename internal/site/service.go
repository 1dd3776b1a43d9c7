package site

import (
	"context"
	"fmt"

	"l10ntrack/internal/observability"
	"l10ntrack/internal/storage"
	"l10ntrack/internal/vcs"
	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// Service creates, updates and removes tracked sites.
type Service struct {
	store    storage.SiteStore
	provider vcs.Provider
	logger   *observability.Logger
}

// NewService creates a site service. provider may be nil to skip repository checks.
func NewService(store storage.SiteStore, provider vcs.Provider, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Service{store: store, provider: provider, logger: logger}
}

// List returns every site.
func (s *Service) List(ctx context.Context) ([]models.Site, error) {
	return s.store.ListSites(ctx)
}

// Get returns the site with the given id.
func (s *Service) Get(ctx context.Context, id string) (*models.Site, error) {
	return s.store.GetSite(ctx, id)
}

// Resolve finds a site by name, falling back to its id.
func (s *Service) Resolve(ctx context.Context, idOrName string) (*models.Site, error) {
	byName, err := s.store.GetSiteByName(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	if byName != nil {
		return byName, nil
	}
	return s.store.GetSite(ctx, idOrName)
}

// Create validates site, confirms its repository and branch exist and stores it.
func (s *Service) Create(ctx context.Context, site *models.Site) (*models.Site, error) {
	ApplyDefaults(site)
	if err := Validate(site); err != nil {
		return nil, err
	}

	existing, err := s.store.GetSiteByName(ctx, site.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New(errors.ErrCodeDuplicateName, fmt.Sprintf("site with name %q already exists", site.Name)).
			WithContext("name", site.Name)
	}

	if err := s.checkRepository(ctx, site.RepoOwner, site.RepoName, site.Branch); err != nil {
		return nil, err
	}

	if err := s.store.CreateSite(ctx, site); err != nil {
		return nil, err
	}

	s.logger.InfoWithFields("Site created", map[string]interface{}{
		"site":       site.Name,
		"id":         site.ID,
		"repository": site.Repository(),
		"languages":  len(site.Languages),
	})
	return site, nil
}

// Update applies u to the site with the given id. A changed branch is
// checked against the provider first.
func (s *Service) Update(ctx context.Context, id string, u models.SiteUpdate) (*models.Site, error) {
	if err := ValidateUpdate(u); err != nil {
		return nil, err
	}

	site, err := s.store.GetSite(ctx, id)
	if err != nil {
		return nil, err
	}
	oldBranch := site.Branch
	u.Apply(site)

	if site.Branch != oldBranch && s.provider != nil {
		ok, err := s.provider.CheckBranch(ctx, site.RepoOwner, site.RepoName, site.Branch)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.UpstreamNotFound(fmt.Sprintf("branch %s", site.Branch), nil)
		}
	}

	if err := s.store.UpdateSite(ctx, site); err != nil {
		return nil, err
	}
	s.logger.InfoWithFields("Site updated", map[string]interface{}{"site": site.Name, "id": site.ID})
	return site, nil
}

// Delete removes the site together with its languages and results.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteSite(ctx, id); err != nil {
		return err
	}
	s.logger.InfoWithFields("Site deleted", map[string]interface{}{"id": id})
	return nil
}

func (s *Service) checkRepository(ctx context.Context, owner, repo, branch string) error {
	if s.provider == nil {
		return nil
	}

	ok, err := s.provider.CheckRepository(ctx, owner, repo)
	if err != nil {
		return err
	}
	if !ok {
		return errors.UpstreamNotFound(fmt.Sprintf("repository %s/%s", owner, repo), nil).
			WithSuggestions("Check the owner and repository name", "Private repositories need a token: 'l10ntrack token set'")
	}

	ok, err = s.provider.CheckBranch(ctx, owner, repo, branch)
	if err != nil {
		return err
	}
	if !ok {
		return errors.UpstreamNotFound(fmt.Sprintf("branch %s", branch), nil)
	}
	return nil
}
