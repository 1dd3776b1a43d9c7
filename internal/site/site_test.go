package site

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"l10ntrack/internal/storage"
	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

func validSite() *models.Site {
	return &models.Site{
		Name:        "docs",
		RepoOwner:   "acme",
		RepoName:    "docs",
		ContentPath: "content",
		I18nPath:    "i18n",
		Languages: []models.Language{
			{Code: "ja", Name: "Japanese", Weight: 2},
			{Code: "en", Name: "English"},
		},
	}
}

func TestApplyDefaults(t *testing.T) {
	s := validSite()
	s.Name = "  docs "
	ApplyDefaults(s)

	assert.Equal(t, "docs", s.Name)
	assert.Equal(t, "main", s.Branch)
	assert.Equal(t, "en", s.BaseLanguage)
	assert.Equal(t, "en", s.Languages[0].Code)
	assert.NoError(t, Validate(s))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Site)
		field  string
	}{
		{"missing name", func(s *models.Site) { s.Name = "" }, "name"},
		{"long owner", func(s *models.Site) { s.RepoOwner = strings.Repeat("a", 101) }, "repoOwner"},
		{"missing content path", func(s *models.Site) { s.ContentPath = "" }, "contentPath"},
		{"missing i18n path", func(s *models.Site) { s.I18nPath = "" }, "i18nPath"},
		{"long base language", func(s *models.Site) { s.BaseLanguage = "eng" }, "baseLanguage"},
		{"no languages", func(s *models.Site) { s.Languages = nil }, "languages"},
		{"bad code", func(s *models.Site) { s.Languages[1].Code = "jpn" }, "languages[1].code"},
		{"missing language name", func(s *models.Site) { s.Languages[1].Name = "" }, "languages[1].name"},
		{"negative weight", func(s *models.Site) { s.Languages[1].Weight = -1 }, "languages[1].weight"},
		{"duplicate codes", func(s *models.Site) { s.Languages[1].Code = "en" }, "languages"},
		{"base not listed", func(s *models.Site) { s.BaseLanguage = "de" }, "baseLanguage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSite()
			ApplyDefaults(s)
			tt.mutate(s)

			err := Validate(s)
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeValidationFailed, errors.GetErrorCode(err))

			var appErr *errors.AppError
			require.True(t, errors.As(err, &appErr))
			fields, ok := appErr.Context["fields"].([]FieldError)
			require.True(t, ok)
			var names []string
			for _, f := range fields {
				names = append(names, f.Field)
			}
			assert.Contains(t, names, tt.field)
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	empty := ""
	long := strings.Repeat("b", 101)
	ok := "develop"

	assert.NoError(t, ValidateUpdate(models.SiteUpdate{}))
	assert.NoError(t, ValidateUpdate(models.SiteUpdate{Branch: &ok}))
	assert.Error(t, ValidateUpdate(models.SiteUpdate{Name: &empty}))
	assert.Error(t, ValidateUpdate(models.SiteUpdate{Branch: &long}))
	assert.Error(t, ValidateUpdate(models.SiteUpdate{I18nPath: &empty}))
}

type stubProvider struct {
	repos    map[string]bool
	branches map[string]bool
	err      error
}

func (p *stubProvider) GetTree(ctx context.Context, owner, repo, branch string) ([]models.RepositoryTreeEntry, error) {
	return nil, nil
}

func (p *stubProvider) GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	return "", nil
}

func (p *stubProvider) CheckRepository(ctx context.Context, owner, repo string) (bool, error) {
	return p.repos[owner+"/"+repo], p.err
}

func (p *stubProvider) CheckBranch(ctx context.Context, owner, repo, branch string) (bool, error) {
	return p.branches[branch], p.err
}

func newService() (*Service, *stubProvider) {
	p := &stubProvider{
		repos:    map[string]bool{"acme/docs": true},
		branches: map[string]bool{"main": true, "develop": true},
	}
	return NewService(storage.NewMemoryStore(), p, nil), p
}

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	created, err := svc.Create(ctx, validSite())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	resolved, err := svc.Resolve(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, created.ID, resolved.ID)

	resolved, err = svc.Resolve(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "docs", resolved.Name)

	_, err = svc.Create(ctx, validSite())
	assert.Equal(t, errors.ErrCodeDuplicateName, errors.GetErrorCode(err))

	_, err = svc.Resolve(ctx, "unknown")
	assert.Equal(t, errors.ErrCodeSiteNotFound, errors.GetErrorCode(err))
}

func TestServiceCreateChecksRepository(t *testing.T) {
	ctx := context.Background()
	svc, p := newService()

	s := validSite()
	s.RepoName = "gone"
	_, err := svc.Create(ctx, s)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, errors.APIGitHubError, errors.ToAPICode(err))

	s = validSite()
	s.Branch = "release"
	_, err = svc.Create(ctx, s)
	assert.True(t, errors.IsNotFound(err))

	p.err = errors.UpstreamRateLimited(nil)
	_, err = svc.Create(ctx, validSite())
	assert.Equal(t, errors.APIRateLimitExceeded, errors.ToAPICode(err))

	sites, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestServiceUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	created, err := svc.Create(ctx, validSite())
	require.NoError(t, err)

	branch := "develop"
	updated, err := svc.Update(ctx, created.ID, models.SiteUpdate{Branch: &branch})
	require.NoError(t, err)
	assert.Equal(t, "develop", updated.Branch)

	missing := "nope"
	_, err = svc.Update(ctx, created.ID, models.SiteUpdate{Branch: &missing})
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.Equal(t, errors.ErrCodeSiteNotFound, errors.GetErrorCode(err))
}
