// Package testutil provides a scriptable version control provider and the
// sample repository the command and API tests analyze.
package testutil

import (
	"context"
	"sync"

	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// MockProvider serves a fixed tree and file set for every repository.
type MockProvider struct {
	mu sync.Mutex

	Tree  []models.RepositoryTreeEntry
	Files map[string]string

	// Error simulation
	TreeErr      error
	TreeErrors   map[string]error // by "owner/repo"
	FileErrors   map[string]error
	MissingRepos map[string]bool

	// Operation tracking
	Operations []Operation
}

// Operation records one provider call.
type Operation struct {
	Method string
	Repo   string
	Path   string
}

// NewMockProvider creates a provider serving tree and files.
func NewMockProvider(tree []models.RepositoryTreeEntry, files map[string]string) *MockProvider {
	return &MockProvider{
		Tree:         tree,
		Files:        files,
		TreeErrors:   make(map[string]error),
		FileErrors:   make(map[string]error),
		MissingRepos: make(map[string]bool),
	}
}

func (m *MockProvider) record(method, repo, path string) {
	m.Operations = append(m.Operations, Operation{Method: method, Repo: repo, Path: path})
}

// GetTree returns Tree, or the error scripted for the repository or TreeErr when set.
func (m *MockProvider) GetTree(ctx context.Context, owner, repo, branch string) ([]models.RepositoryTreeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetTree", owner+"/"+repo, "")

	if err, ok := m.TreeErrors[owner+"/"+repo]; ok {
		return nil, err
	}
	if m.TreeErr != nil {
		return nil, m.TreeErr
	}
	return append([]models.RepositoryTreeEntry(nil), m.Tree...), nil
}

// GetFileContent returns the file at path, the error scripted for it, or NotFound.
func (m *MockProvider) GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetFileContent", owner+"/"+repo, path)

	if err, ok := m.FileErrors[path]; ok {
		return "", err
	}
	content, ok := m.Files[path]
	if !ok {
		return "", errors.UpstreamNotFound(path, nil)
	}
	return content, nil
}

// CheckRepository reports false for repositories named in MissingRepos.
func (m *MockProvider) CheckRepository(ctx context.Context, owner, repo string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CheckRepository", owner+"/"+repo, "")
	return !m.MissingRepos[repo], nil
}

// CheckBranch always succeeds.
func (m *MockProvider) CheckBranch(ctx context.Context, owner, repo, branch string) (bool, error) {
	return true, nil
}

// SetTreeError makes later GetTree calls fail with err.
func (m *MockProvider) SetTreeError(err error) {
	m.mu.Lock()
	m.TreeErr = err
	m.mu.Unlock()
}

// Calls counts recorded operations of method.
func (m *MockProvider) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, op := range m.Operations {
		if op.Method == method {
			n++
		}
	}
	return n
}
