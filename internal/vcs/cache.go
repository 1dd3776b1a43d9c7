package vcs

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"l10ntrack/pkg/models"
)

// CachedProvider memoises file reads. Trees and existence checks always go
// to the wrapped provider so branch heads stay current.
type CachedProvider struct {
	Provider
	files *expirable.LRU[string, string]
}

// NewCachedProvider wraps p with an LRU of size entries. A zero ttl keeps entries until evicted.
func NewCachedProvider(p Provider, size int, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		Provider: p,
		files:    expirable.NewLRU[string, string](size, nil, ttl),
	}
}

// GetFileContent serves repeated reads of the same owner/repo/ref/path from memory.
func (c *CachedProvider) GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	key := owner + "/" + repo + "@" + ref + ":" + path
	if content, ok := c.files.Get(key); ok {
		return content, nil
	}
	content, err := c.Provider.GetFileContent(ctx, owner, repo, path, ref)
	if err != nil {
		return "", err
	}
	c.files.Add(key, content)
	return content, nil
}

// GetTree is passed through uncached.
func (c *CachedProvider) GetTree(ctx context.Context, owner, repo, branch string) ([]models.RepositoryTreeEntry, error) {
	return c.Provider.GetTree(ctx, owner, repo, branch)
}

// Purge drops every cached file.
func (c *CachedProvider) Purge() {
	c.files.Purge()
}

// Len reports the number of cached files.
func (c *CachedProvider) Len() int {
	return c.files.Len()
}
