package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"l10ntrack/pkg/models"
)

func blob(path string) models.RepositoryTreeEntry {
	return models.RepositoryTreeEntry{Path: path, Type: models.EntryBlob}
}

func dir(path string) models.RepositoryTreeEntry {
	return models.RepositoryTreeEntry{Path: path, Type: models.EntryTree}
}

func TestExtract(t *testing.T) {
	tree := []models.RepositoryTreeEntry{
		dir("content"),
		dir("content/en"),
		blob("content/en/index.md"),
		blob("content/en/docs/setup.md"),
		blob("content/en/docs/logo.png"),
		dir("content/en/blog.md"),
		blob("content/english/about.md"),
		blob("content/fr/index.md"),
		blob("other/en/index.md"),
		blob("content/en.md"),
	}

	tests := []struct {
		name     string
		root     string
		language string
		want     []string
	}{
		{"base language", "content", "en", []string{"docs/setup.md", "index.md"}},
		{"target language", "content", "fr", []string{"index.md"}},
		{"trailing slash on root", "content/", "en", []string{"docs/setup.md", "index.md"}},
		{"absent language", "content", "de", []string{}},
		{"language prefix is a directory boundary", "content", "e", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tree, tt.root, tt.language))
		})
	}
}

func TestExtractSortsAndDedupes(t *testing.T) {
	tree := []models.RepositoryTreeEntry{
		blob("content/en/z.md"),
		blob("content/en/a.md"),
		blob("content/en/z.md"),
		blob("content/en/M.md"),
	}

	assert.Equal(t, []string{"M.md", "a.md", "z.md"}, Extract(tree, "content", "en"))
}

func TestExtractWithSuffix(t *testing.T) {
	tree := []models.RepositoryTreeEntry{
		blob("site/ja/index.mdx"),
		blob("site/ja/index.md"),
	}

	assert.Equal(t, []string{"index.mdx"}, ExtractWithSuffix(tree, "site", "ja", ".mdx"))
}

func TestExtractEmptyTree(t *testing.T) {
	assert.Empty(t, Extract(nil, "content", "en"))
	assert.NotNil(t, Extract(nil, "content", "en"))
}
