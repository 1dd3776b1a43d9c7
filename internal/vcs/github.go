package vcs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"l10ntrack/internal/observability"
	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// DefaultGitHubAPIURL is the public GitHub REST endpoint.
const DefaultGitHubAPIURL = "https://api.github.com"

// GitHubProvider reads repositories through the GitHub REST API.
type GitHubProvider struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *observability.Logger
	retry   *errors.RetryConfig
	breaker *errors.CircuitBreaker
	onRetry func()
}

// GitHubOption configures a GitHubProvider.
type GitHubOption func(*GitHubProvider)

// WithBaseURL points the provider at another API root, such as GitHub Enterprise or a test server.
func WithBaseURL(u string) GitHubOption {
	return func(p *GitHubProvider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) GitHubOption {
	return func(p *GitHubProvider) { p.client = c }
}

// WithLogger sets the logger used for retry and truncation warnings.
func WithLogger(l *observability.Logger) GitHubOption {
	return func(p *GitHubProvider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMaxRetries sets how many times a recoverable failure is retried.
func WithMaxRetries(n int) GitHubOption {
	return func(p *GitHubProvider) { p.retry.MaxRetries = n }
}

// WithRetryDelay sets the first backoff delay.
func WithRetryDelay(d time.Duration) GitHubOption {
	return func(p *GitHubProvider) { p.retry.InitialDelay = d }
}

// WithOnRetry registers a hook invoked once per retry.
func WithOnRetry(fn func()) GitHubOption {
	return func(p *GitHubProvider) { p.onRetry = fn }
}

// NewGitHubProvider creates a provider authenticating with token when it is non-empty.
func NewGitHubProvider(token string, opts ...GitHubOption) *GitHubProvider {
	p := &GitHubProvider{
		baseURL: DefaultGitHubAPIURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  observability.NewNopLogger(),
		retry: &errors.RetryConfig{
			MaxRetries:     3,
			InitialDelay:   500 * time.Millisecond,
			MaxDelay:       10 * time.Second,
			Multiplier:     2.0,
			Jitter:         true,
			RetryableError: errors.IsRecoverable,
		},
		breaker: errors.NewCircuitBreaker("github", 5, 30*time.Second),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.retry.OnRetry = func(attempt int, delay time.Duration, err error) {
		p.logger.WarnWithFields("Retrying GitHub request", map[string]interface{}{
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   errors.Summary(err),
		})
		if p.onRetry != nil {
			p.onRetry()
		}
	}
	return p
}

type refResponse struct {
	Object struct {
		SHA string `json:"sha"`
	} `json:"object"`
}

type treeResponse struct {
	SHA  string `json:"sha"`
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

type contentResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// GetTree resolves the branch head and lists its tree recursively.
func (p *GitHubProvider) GetTree(ctx context.Context, owner, repo, branch string) ([]models.RepositoryTreeEntry, error) {
	var ref refResponse
	refPath := fmt.Sprintf("/repos/%s/%s/git/ref/heads/%s", url.PathEscape(owner), url.PathEscape(repo), escapePath(branch))
	if err := p.get(ctx, refPath, fmt.Sprintf("branch %s of %s/%s", branch, owner, repo), &ref); err != nil {
		return nil, err
	}

	var tree treeResponse
	treePath := fmt.Sprintf("/repos/%s/%s/git/trees/%s?recursive=1", url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(ref.Object.SHA))
	if err := p.get(ctx, treePath, fmt.Sprintf("tree %s of %s/%s", ref.Object.SHA, owner, repo), &tree); err != nil {
		return nil, err
	}
	if tree.Truncated {
		p.logger.WarnWithFields("Repository tree listing was truncated", map[string]interface{}{
			"repository": owner + "/" + repo,
			"branch":     branch,
			"entries":    len(tree.Tree),
		})
	}

	entries := make([]models.RepositoryTreeEntry, 0, len(tree.Tree))
	for _, e := range tree.Tree {
		switch models.EntryType(e.Type) {
		case models.EntryBlob, models.EntryTree:
			entries = append(entries, models.RepositoryTreeEntry{Path: e.Path, Type: models.EntryType(e.Type)})
		}
	}
	return entries, nil
}

// GetFileContent fetches one file and decodes its base64 payload.
func (p *GitHubProvider) GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	reqPath := fmt.Sprintf("/repos/%s/%s/contents/%s", url.PathEscape(owner), url.PathEscape(repo), escapePath(path))
	if ref != "" {
		reqPath += "?ref=" + url.QueryEscape(ref)
	}

	var raw json.RawMessage
	if err := p.get(ctx, reqPath, fmt.Sprintf("%s in %s/%s@%s", path, owner, repo, ref), &raw); err != nil {
		return "", err
	}

	// directories come back as a JSON array
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		return "", errors.UpstreamError(fmt.Sprintf("%s is a directory, not a file", path), nil).
			WithContext("path", path)
	}

	var content contentResponse
	if err := json.Unmarshal(raw, &content); err != nil {
		return "", errors.UpstreamError("failed to decode content response", err)
	}
	if content.Type != "file" {
		return "", errors.UpstreamError(fmt.Sprintf("%s is a %s, not a file", path, content.Type), nil).
			WithContext("path", path)
	}
	if content.Encoding != "" && content.Encoding != "base64" {
		return "", errors.UpstreamError(fmt.Sprintf("unsupported content encoding %q", content.Encoding), nil)
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content.Content, "\n", ""))
	if err != nil {
		return "", errors.UpstreamError("failed to decode file content", err).WithContext("path", path)
	}
	return string(decoded), nil
}

// CheckRepository reports whether owner/repo is visible to the configured credentials.
func (p *GitHubProvider) CheckRepository(ctx context.Context, owner, repo string) (bool, error) {
	reqPath := fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo))
	return p.exists(ctx, reqPath, owner+"/"+repo)
}

// CheckBranch reports whether branch exists in owner/repo.
func (p *GitHubProvider) CheckBranch(ctx context.Context, owner, repo, branch string) (bool, error) {
	reqPath := fmt.Sprintf("/repos/%s/%s/branches/%s", url.PathEscape(owner), url.PathEscape(repo), escapePath(branch))
	return p.exists(ctx, reqPath, fmt.Sprintf("branch %s of %s/%s", branch, owner, repo))
}

func (p *GitHubProvider) exists(ctx context.Context, reqPath, what string) (bool, error) {
	err := p.get(ctx, reqPath, what, nil)
	if err == nil {
		return true, nil
	}
	if errors.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// get issues a GET through the circuit breaker with retries and decodes the body into out.
func (p *GitHubProvider) get(ctx context.Context, reqPath, what string, out interface{}) error {
	return errors.Retry(ctx, p.retry, func(ctx context.Context) error {
		return p.breaker.Execute(ctx, func() error {
			return p.do(ctx, reqPath, what, out)
		}, countsAsFailure)
	})
}

func (p *GitHubProvider) do(ctx context.Context, reqPath, what string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+reqPath, nil)
	if err != nil {
		return errors.UpstreamError("failed to build request", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "l10ntrack")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.UpstreamError("request to GitHub failed", err).AsRecoverable()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return statusError(resp.StatusCode, what, strings.TrimSpace(string(body)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.UpstreamError("failed to decode GitHub response", err)
	}
	return nil
}

func statusError(status int, what, body string) error {
	cause := fmt.Errorf("GitHub API returned %d: %s", status, body)
	switch {
	case status == http.StatusNotFound:
		return errors.UpstreamNotFound(what, cause)
	case status == http.StatusUnauthorized:
		e := errors.New(errors.ErrCodeUpstreamAuth, "GitHub rejected the access token").
			WithSuggestions("Store a valid token with 'l10ntrack token set'")
		e.Cause = cause
		return e
	case status == http.StatusForbidden, status == http.StatusTooManyRequests:
		return errors.UpstreamRateLimited(cause)
	case status >= 500:
		return errors.UpstreamError(fmt.Sprintf("GitHub API error (%d)", status), cause).AsRecoverable()
	default:
		return errors.UpstreamError(fmt.Sprintf("GitHub API error (%d)", status), cause)
	}
}

// countsAsFailure keeps lookups of missing paths from tripping the breaker.
func countsAsFailure(err error) bool {
	switch errors.GetErrorCode(err) {
	case errors.ErrCodeUpstreamNotFound, errors.ErrCodeUpstreamAuth:
		return false
	}
	return err != context.Canceled && err != context.DeadlineExceeded
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
