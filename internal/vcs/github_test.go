package vcs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

func newTestGitHub(t *testing.T, mux *http.ServeMux, opts ...GitHubOption) *GitHubProvider {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	opts = append([]GitHubOption{
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
		WithRetryDelay(time.Millisecond),
	}, opts...)
	return NewGitHubProvider("test-token", opts...)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestGitHubGetTree(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/docs/git/ref/heads/main", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		writeJSON(w, map[string]interface{}{"object": map[string]string{"sha": "abc123"}})
	})
	mux.HandleFunc("/repos/acme/docs/git/trees/abc123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		writeJSON(w, map[string]interface{}{
			"sha": "abc123",
			"tree": []map[string]string{
				{"path": "content", "type": "tree"},
				{"path": "content/en/a.md", "type": "blob"},
				{"path": "themes/sub", "type": "commit"},
			},
		})
	})

	p := newTestGitHub(t, mux)
	entries, err := p.GetTree(context.Background(), "acme", "docs", "main")
	require.NoError(t, err)
	assert.Equal(t, []models.RepositoryTreeEntry{
		{Path: "content", Type: models.EntryTree},
		{Path: "content/en/a.md", Type: models.EntryBlob},
	}, entries)
}

func TestGitHubGetTreeMissingBranch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/docs/git/ref/heads/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})

	p := newTestGitHub(t, mux)
	_, err := p.GetTree(context.Background(), "acme", "docs", "gone")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestGitHubGetFileContent(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("[home]\ntitle = \"Hi\"\n"))
	// the API wraps base64 at 60 columns
	wrapped := encoded[:10] + "\n" + encoded[10:]

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/docs/contents/i18n/en.toml", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		writeJSON(w, map[string]string{"type": "file", "encoding": "base64", "content": wrapped})
	})
	mux.HandleFunc("/repos/acme/docs/contents/i18n", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]string{{"type": "file", "path": "i18n/en.toml"}})
	})

	p := newTestGitHub(t, mux)
	content, err := p.GetFileContent(context.Background(), "acme", "docs", "i18n/en.toml", "main")
	require.NoError(t, err)
	assert.Equal(t, "[home]\ntitle = \"Hi\"\n", content)

	_, err = p.GetFileContent(context.Background(), "acme", "docs", "i18n", "main")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUpstreamError, errors.GetErrorCode(err))
	assert.False(t, errors.IsNotFound(err))
}

func TestGitHubStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   errors.ErrorCode
	}{
		{"not found", http.StatusNotFound, errors.ErrCodeUpstreamNotFound},
		{"unauthorized", http.StatusUnauthorized, errors.ErrCodeUpstreamAuth},
		{"forbidden", http.StatusForbidden, errors.ErrCodeUpstreamRateLimited},
		{"too many requests", http.StatusTooManyRequests, errors.ErrCodeUpstreamRateLimited},
		{"server error", http.StatusBadGateway, errors.ErrCodeUpstreamError},
		{"teapot", http.StatusTeapot, errors.ErrCodeUpstreamError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/repos/acme/docs/contents/a.md", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			p := newTestGitHub(t, mux, WithMaxRetries(0))

			_, err := p.GetFileContent(context.Background(), "acme", "docs", "a.md", "main")
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.GetErrorCode(err))
		})
	}
}

func TestGitHubRetriesServerErrors(t *testing.T) {
	var calls, retries int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/docs", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]string{"full_name": "acme/docs"})
	})

	p := newTestGitHub(t, mux, WithMaxRetries(3), WithOnRetry(func() { atomic.AddInt32(&retries, 1) }))
	ok, err := p.CheckRepository(context.Background(), "acme", "docs")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&retries))
}

func TestGitHubChecks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/docs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"full_name": "acme/docs"})
	})
	mux.HandleFunc("/repos/acme/docs/branches/main", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"name": "main"})
	})
	mux.HandleFunc("/repos/acme/private", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	p := newTestGitHub(t, mux, WithMaxRetries(0))
	ctx := context.Background()

	ok, err := p.CheckRepository(ctx, "acme", "docs")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.CheckRepository(ctx, "acme", "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.CheckBranch(ctx, "acme", "docs", "main")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.CheckBranch(ctx, "acme", "docs", "feature/x")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = p.CheckRepository(ctx, "acme", "private")
	assert.Equal(t, errors.ErrCodeUpstreamAuth, errors.GetErrorCode(err))
}

func TestGitHubBreakerIgnoresNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	p := newTestGitHub(t, mux, WithMaxRetries(0))
	for i := 0; i < 10; i++ {
		_, _ = p.GetFileContent(context.Background(), "acme", "docs", "nope.md", "main")
	}
	assert.Equal(t, "closed", p.breaker.GetState())
}

func TestGitHubBreakerResetsOnSuccess(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/docs", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1)%2 == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"full_name": "acme/docs"})
	})

	p := newTestGitHub(t, mux, WithMaxRetries(0))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := p.CheckRepository(ctx, "acme", "docs")
		require.Error(t, err)
		ok, err := p.CheckRepository(ctx, "acme", "docs")
		require.NoError(t, err, "round %d", i)
		assert.True(t, ok)
	}
	assert.Equal(t, "closed", p.breaker.GetState())
}
