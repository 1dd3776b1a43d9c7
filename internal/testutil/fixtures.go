package testutil

import "l10ntrack/pkg/models"

// SampleRepository is a two-language docs repository: French lacks b.md and
// the home.body key, so both of its rates are 50%.
func SampleRepository() *MockProvider {
	p := NewMockProvider([]models.RepositoryTreeEntry{
		{Path: "content", Type: models.EntryTree},
		{Path: "content/en/a.md", Type: models.EntryBlob},
		{Path: "content/en/b.md", Type: models.EntryBlob},
		{Path: "content/fr/a.md", Type: models.EntryBlob},
	}, map[string]string{
		"i18n/en.toml": "[home]\ntitle = \"Home\"\nbody = \"Body\"\n",
		"i18n/fr.toml": "[home]\ntitle = \"Accueil\"\n",
	})
	p.MissingRepos["missing"] = true
	return p
}

// SampleSite returns a site over SampleRepository with English as base.
func SampleSite(name string) *models.Site {
	return &models.Site{
		Name:         name,
		RepoOwner:    "acme",
		RepoName:     "docs",
		Branch:       "main",
		ContentPath:  "content",
		I18nPath:     "i18n",
		BaseLanguage: "en",
		Languages: []models.Language{
			{Code: "en", Name: "English", Weight: 0},
			{Code: "fr", Name: "French", Weight: 1},
		},
	}
}
