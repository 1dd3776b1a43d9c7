package vcs

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/go-git/go-git/v5/storage/memory"

	"l10ntrack/internal/common"
	"l10ntrack/internal/observability"
	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// DefaultGitURLTemplate builds clone URLs for public GitHub repositories.
const DefaultGitURLTemplate = "https://github.com/{owner}/{repo}.git"

// GitOptions configures a GitProvider.
type GitOptions struct {
	// CacheDir holds one bare mirror per repository.
	CacheDir string
	// URLTemplate may reference {owner} and {repo}.
	URLTemplate string
	// Sync fetches from the remote before a tree is listed.
	Sync   bool
	Token  string
	Logger *observability.Logger
}

// GitProvider serves trees and files from local go-git mirrors.
type GitProvider struct {
	opts GitOptions

	mu    sync.Mutex
	repos map[string]*git.Repository
}

// NewGitProvider creates a provider rooted at opts.CacheDir.
func NewGitProvider(opts GitOptions) *GitProvider {
	if opts.CacheDir == "" {
		opts.CacheDir = DefaultCacheDir()
	}
	if opts.URLTemplate == "" {
		opts.URLTemplate = DefaultGitURLTemplate
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewNopLogger()
	}
	return &GitProvider{opts: opts, repos: make(map[string]*git.Repository)}
}

// DefaultCacheDir returns the default mirror directory under the user's home.
func DefaultCacheDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".l10ntrack", "repos")
	}
	return filepath.Join(homeDir, ".l10ntrack", "repos")
}

// RepoURL expands the URL template for owner/repo.
func (p *GitProvider) RepoURL(owner, repo string) string {
	return strings.NewReplacer("{owner}", owner, "{repo}", repo).Replace(p.opts.URLTemplate)
}

// RepoPath is the local mirror location for owner/repo.
func (p *GitProvider) RepoPath(owner, repo string) string {
	return filepath.Join(p.opts.CacheDir, owner+"_"+repo)
}

// GetTree lists every blob and directory of the branch head.
func (p *GitProvider) GetTree(ctx context.Context, owner, repo, branch string) ([]models.RepositoryTreeEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, err := p.open(ctx, owner, repo, p.opts.Sync)
	if err != nil {
		return nil, err
	}
	commit, err := resolveCommit(r, branch)
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, errors.UpstreamError("failed to get commit tree", err)
	}

	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()

	var entries []models.RepositoryTreeEntry
	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.UpstreamError("failed to walk commit tree", err)
		}
		switch {
		case entry.Mode == filemode.Dir:
			entries = append(entries, models.RepositoryTreeEntry{Path: name, Type: models.EntryTree})
		case entry.Mode.IsFile():
			entries = append(entries, models.RepositoryTreeEntry{Path: name, Type: models.EntryBlob})
		}
	}
	return entries, nil
}

// GetFileContent reads path from the commit ref points at.
func (p *GitProvider) GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, err := p.open(ctx, owner, repo, false)
	if err != nil {
		return "", err
	}
	commit, err := resolveCommit(r, ref)
	if err != nil {
		return "", err
	}

	file, err := commit.File(path)
	if err != nil {
		if stderrors.Is(err, object.ErrFileNotFound) || stderrors.Is(err, object.ErrDirectoryNotFound) {
			return "", errors.UpstreamNotFound(fmt.Sprintf("%s in %s/%s@%s", path, owner, repo, ref), err)
		}
		return "", errors.UpstreamError("failed to get file from commit", err)
	}

	content, err := file.Contents()
	if err != nil {
		return "", errors.UpstreamError("failed to get file content", err)
	}
	return content, nil
}

// CheckRepository reports whether a mirror exists or the remote answers a ref listing.
func (p *GitProvider) CheckRepository(ctx context.Context, owner, repo string) (bool, error) {
	if !p.opts.Sync && p.hasMirror(owner, repo) {
		return true, nil
	}
	_, err := p.listRemote(ctx, owner, repo)
	if err != nil {
		if errors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CheckBranch looks the branch up in the mirror, or in the remote's advertised refs.
func (p *GitProvider) CheckBranch(ctx context.Context, owner, repo, branch string) (bool, error) {
	if !p.opts.Sync && p.hasMirror(owner, repo) {
		p.mu.Lock()
		defer p.mu.Unlock()
		r, err := p.open(ctx, owner, repo, false)
		if err != nil {
			return false, err
		}
		if _, err := resolveCommit(r, branch); err != nil {
			if errors.IsNotFound(err) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}

	refs, err := p.listRemote(ctx, owner, repo)
	if err != nil {
		if errors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	want := plumbing.NewBranchReferenceName(branch)
	for _, ref := range refs {
		if ref.Name() == want {
			return true, nil
		}
	}
	return false, nil
}

func (p *GitProvider) hasMirror(owner, repo string) bool {
	_, err := git.PlainOpen(p.RepoPath(owner, repo))
	return err == nil
}

// open returns the mirror for owner/repo, cloning it on first use. Callers hold p.mu.
func (p *GitProvider) open(ctx context.Context, owner, repo string, fetch bool) (*git.Repository, error) {
	localPath := p.RepoPath(owner, repo)
	if r, ok := p.repos[localPath]; ok {
		if fetch {
			if err := p.fetch(ctx, r, owner, repo); err != nil {
				return nil, err
			}
		}
		return r, nil
	}

	r, err := git.PlainOpen(localPath)
	switch {
	case err == nil:
		if fetch {
			if err := p.fetch(ctx, r, owner, repo); err != nil {
				return nil, err
			}
		}
	case stderrors.Is(err, git.ErrRepositoryNotExists):
		r, err = p.clone(ctx, owner, repo, localPath)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.UpstreamError("failed to open repository mirror", err).WithContext("path", localPath)
	}

	p.repos[localPath] = r
	return r, nil
}

func (p *GitProvider) clone(ctx context.Context, owner, repo, localPath string) (*git.Repository, error) {
	if err := os.MkdirAll(filepath.Dir(localPath), common.DirPermissionNormal); err != nil {
		return nil, errors.UpstreamError("failed to create cache directory", err)
	}

	gitURL := p.RepoURL(owner, repo)
	p.opts.Logger.InfoWithFields("Cloning repository", map[string]interface{}{
		"url":  gitURL,
		"path": localPath,
	})

	r, err := git.PlainCloneContext(ctx, localPath, true, &git.CloneOptions{
		URL:  gitURL,
		Auth: p.auth(gitURL),
	})
	if err != nil {
		_ = os.RemoveAll(localPath)
		return nil, transportError(err, owner+"/"+repo)
	}
	return r, nil
}

// mirrorRefSpec updates the mirror's own branches, which resolveCommit reads first.
const mirrorRefSpec = config.RefSpec("+refs/heads/*:refs/heads/*")

func (p *GitProvider) fetch(ctx context.Context, r *git.Repository, owner, repo string) error {
	remote, err := r.Remote("origin")
	if err != nil {
		return errors.UpstreamError("failed to get remote", err)
	}
	gitURL := p.RepoURL(owner, repo)
	err = remote.FetchContext(ctx, &git.FetchOptions{
		RefSpecs: []config.RefSpec{mirrorRefSpec},
		Auth:     p.auth(gitURL),
		Force:    true,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return transportError(err, owner+"/"+repo)
	}
	return nil
}

func (p *GitProvider) listRemote(ctx context.Context, owner, repo string) ([]*plumbing.Reference, error) {
	gitURL := p.RepoURL(owner, repo)
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{gitURL},
	})
	refs, err := remote.ListContext(ctx, &git.ListOptions{Auth: p.auth(gitURL)})
	if err != nil {
		return nil, transportError(err, owner+"/"+repo)
	}
	return refs, nil
}

// auth picks credentials for the URL scheme.
func (p *GitProvider) auth(gitURL string) transport.AuthMethod {
	if strings.HasPrefix(gitURL, "git@") || strings.HasPrefix(gitURL, "ssh://") {
		sshKeyPath := filepath.Join(os.Getenv("HOME"), ".ssh", "id_rsa")
		if _, err := os.Stat(sshKeyPath); err == nil {
			if auth, err := ssh.NewPublicKeysFromFile("git", sshKeyPath, ""); err == nil {
				return auth
			}
		}
		return nil
	}
	if strings.HasPrefix(gitURL, "https://") && p.opts.Token != "" {
		return &http.BasicAuth{Username: "token", Password: p.opts.Token}
	}
	return nil
}

// resolveCommit finds branch under refs/heads, then refs/remotes/origin, then as a hash.
func resolveCommit(r *git.Repository, branch string) (*object.Commit, error) {
	candidates := []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(branch),
		plumbing.NewRemoteReferenceName("origin", branch),
	}
	for _, name := range candidates {
		ref, err := r.Reference(name, true)
		if err != nil {
			continue
		}
		commit, err := r.CommitObject(ref.Hash())
		if err != nil {
			return nil, errors.UpstreamError("failed to get commit object", err)
		}
		return commit, nil
	}

	if plumbing.IsHash(branch) {
		if commit, err := r.CommitObject(plumbing.NewHash(branch)); err == nil {
			return commit, nil
		}
	}
	return nil, errors.UpstreamNotFound("branch "+branch, nil)
}

func transportError(err error, what string) error {
	switch {
	case stderrors.Is(err, transport.ErrRepositoryNotFound):
		return errors.UpstreamNotFound(what, err)
	case stderrors.Is(err, transport.ErrAuthenticationRequired), stderrors.Is(err, transport.ErrAuthorizationFailed):
		e := errors.New(errors.ErrCodeUpstreamAuth, "git remote rejected the credentials").
			WithSuggestions("Store a valid token with 'l10ntrack token set'")
		e.Cause = err
		return e
	case stderrors.Is(err, transport.ErrEmptyRemoteRepository):
		return errors.UpstreamNotFound(what, err)
	default:
		return errors.UpstreamError(fmt.Sprintf("git transport failed for %s", what), err).AsRecoverable()
	}
}
