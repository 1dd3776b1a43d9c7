package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"l10ntrack/internal/analyzer"
	"l10ntrack/internal/observability"
	"l10ntrack/internal/site"
	"l10ntrack/internal/storage"
	"l10ntrack/internal/testutil"
	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// brokenListStore fails ListSites with an unclassified error.
type brokenListStore struct {
	*storage.MemoryStore
}

func (brokenListStore) ListSites(ctx context.Context) ([]models.Site, error) {
	return nil, fmt.Errorf("disk on fire")
}

type testEnv struct {
	handler  http.Handler
	store    *storage.MemoryStore
	provider *testutil.MockProvider
}

func newTestEnv(t *testing.T, cfg models.Server) *testEnv {
	t.Helper()
	store := storage.NewMemoryStore()
	provider := testutil.SampleRepository()
	logger := observability.NewNopLogger()
	health := observability.NewHealthManager(time.Second, logger)
	health.RegisterCheck("store", store.Ping)

	h := NewHandler(cfg, Dependencies{
		Sites:    site.NewService(store, provider, logger),
		Results:  store,
		Analyzer: analyzer.New(provider, store, analyzer.DefaultOptions()),
		Health:   health,
		Metrics:  observability.NewAnalysisMetrics(),
		Logger:   logger,
	})
	return &testEnv{handler: h, store: store, provider: provider}
}

type testResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers ...string) (int, testResponse) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var resp testResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, resp
}

func siteBody(name string) map[string]interface{} {
	return map[string]interface{}{
		"name":         name,
		"repoOwner":    "acme",
		"repoName":     "docs",
		"branch":       "main",
		"contentPath":  "content",
		"i18nPath":     "i18n",
		"baseLanguage": "en",
		"languages": []map[string]interface{}{
			{"code": "en", "name": "English", "weight": 0},
			{"code": "fr", "name": "French", "weight": 1},
		},
	}
}

func (e *testEnv) createSite(t *testing.T, name string) models.Site {
	t.Helper()
	status, resp := e.do(t, http.MethodPost, "/sites", siteBody(name))
	require.Equal(t, http.StatusCreated, status)
	require.True(t, resp.Success, "create failed: %+v", resp.Error)
	var s models.Site
	require.NoError(t, json.Unmarshal(resp.Data, &s))
	return s
}

func TestCreateAndListSites(t *testing.T) {
	env := newTestEnv(t, models.Server{})
	created := env.createSite(t, "docs")
	assert.NotEmpty(t, created.ID)
	assert.Len(t, created.Languages, 2)

	status, resp := env.do(t, http.MethodGet, "/sites", nil)
	assert.Equal(t, http.StatusOK, status)
	var sites []models.Site
	require.NoError(t, json.Unmarshal(resp.Data, &sites))
	require.Len(t, sites, 1)
	assert.Equal(t, "docs", sites[0].Name)
}

func TestCreateSiteErrorsKeepCreatedStatus(t *testing.T) {
	env := newTestEnv(t, models.Server{})

	t.Run("validation", func(t *testing.T) {
		body := siteBody("")
		status, resp := env.do(t, http.MethodPost, "/sites", body)
		assert.Equal(t, http.StatusCreated, status)
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		assert.Contains(t, string(resp.Error.Details), "name")
	})

	t.Run("invalid json", func(t *testing.T) {
		status, resp := env.do(t, http.MethodPost, "/sites", "{not json")
		assert.Equal(t, http.StatusCreated, status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	})

	t.Run("missing repository", func(t *testing.T) {
		body := siteBody("other")
		body["repoName"] = "missing"
		status, resp := env.do(t, http.MethodPost, "/sites", body)
		assert.Equal(t, http.StatusCreated, status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "GITHUB_API_ERROR", resp.Error.Code)
	})

	t.Run("duplicate name", func(t *testing.T) {
		env.createSite(t, "dup")
		_, resp := env.do(t, http.MethodPost, "/sites", siteBody("dup"))
		require.NotNil(t, resp.Error)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	})
}

func TestGetUnknownSite(t *testing.T) {
	env := newTestEnv(t, models.Server{})
	status, resp := env.do(t, http.MethodGet, "/sites/nope", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SITE_NOT_FOUND", resp.Error.Code)
}

func TestAnalyzeAndQueryResults(t *testing.T) {
	env := newTestEnv(t, models.Server{})
	s := env.createSite(t, "docs")

	status, resp := env.do(t, http.MethodPost, "/sites/"+s.ID+"/analyze", nil)
	require.Equal(t, http.StatusOK, status)
	require.True(t, resp.Success)

	var report analyzer.Report
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	require.Len(t, report.Results, 1)
	fr := report.Results[0]
	assert.Equal(t, "fr", fr.LanguageCode)
	assert.Equal(t, 50.0, fr.ContentCompletionRate)
	assert.Equal(t, []string{"b.md"}, fr.MissingContentFiles)
	assert.Equal(t, []string{"home.body"}, fr.MissingI18nKeys)
	assert.Equal(t, 1, report.Summary.TotalLanguages)

	_, resp = env.do(t, http.MethodGet, "/sites/"+s.ID+"/analysis", nil)
	var latest []models.AnalysisResult
	require.NoError(t, json.Unmarshal(resp.Data, &latest))
	assert.Len(t, latest, 1)

	_, resp = env.do(t, http.MethodGet, "/sites/"+s.ID+"/analysis?language=fr", nil)
	require.True(t, resp.Success)

	_, resp = env.do(t, http.MethodGet, "/sites/"+s.ID+"/analysis?language=de", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SITE_NOT_FOUND", resp.Error.Code)

	env.do(t, http.MethodPost, "/sites/"+s.ID+"/analyze", nil)
	_, resp = env.do(t, http.MethodGet, "/sites/"+s.ID+"/analysis?history=true&limit=1", nil)
	var history []models.AnalysisResult
	require.NoError(t, json.Unmarshal(resp.Data, &history))
	assert.Len(t, history, 1)

	_, resp = env.do(t, http.MethodGet, "/sites/"+s.ID+"/analysis?history=true&limit=zero", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)

	_, resp = env.do(t, http.MethodGet, "/sites/"+s.ID, nil)
	var detail struct {
		Name    string             `json:"name"`
		Summary models.SiteSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &detail))
	assert.Equal(t, "docs", detail.Name)
	assert.Equal(t, 1, detail.Summary.Languages)
	assert.Equal(t, 50.0, detail.Summary.AverageContentRate)
}

func TestAnalyzeRateLimited(t *testing.T) {
	env := newTestEnv(t, models.Server{})
	s := env.createSite(t, "docs")
	env.provider.SetTreeError(errors.UpstreamRateLimited(nil))

	status, resp := env.do(t, http.MethodPost, "/sites/"+s.ID+"/analyze", nil)
	assert.Equal(t, http.StatusOK, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", resp.Error.Code)
}

func TestUpdateAndDeleteSite(t *testing.T) {
	env := newTestEnv(t, models.Server{})
	s := env.createSite(t, "docs")

	_, resp := env.do(t, http.MethodPut, "/sites/"+s.ID, map[string]string{"contentPath": "docs"})
	require.True(t, resp.Success)
	var updated models.Site
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	assert.Equal(t, "docs", updated.ContentPath)

	_, resp = env.do(t, http.MethodDelete, "/sites/"+s.ID, nil)
	require.True(t, resp.Success)

	_, resp = env.do(t, http.MethodGet, "/sites/"+s.ID, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SITE_NOT_FOUND", resp.Error.Code)
}

func TestInternalErrorAnswers500(t *testing.T) {
	store := brokenListStore{storage.NewMemoryStore()}
	h := NewHandler(models.Server{}, Dependencies{
		Sites:   site.NewService(store, nil, nil),
		Results: store,
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sites", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp testResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "disk on fire")
}

func TestAPIKey(t *testing.T) {
	hash, err := HashAPIKey("s3cret")
	require.NoError(t, err)
	env := newTestEnv(t, models.Server{APIKeyHash: hash})

	status, resp := env.do(t, http.MethodGet, "/sites", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, resp.Success)

	status, _ = env.do(t, http.MethodGet, "/sites", nil, APIKeyHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, resp = env.do(t, http.MethodGet, "/sites", nil, APIKeyHeader, "s3cret")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)

	status, _ = env.do(t, http.MethodGet, "/sites", nil, "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)

	_, err = HashAPIKey("")
	assert.Error(t, err)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, models.Server{AllowedOrigins: []string{"https://dash.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/sites", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/sites", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, models.Server{})
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# TYPE")
}

func TestAnalyzeStream(t *testing.T) {
	env := newTestEnv(t, models.Server{})
	s := env.createSite(t, "docs")

	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sites/" + s.ID + "/analyze/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var types []string
	var final streamMessage
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		types = append(types, msg.Type)
		if msg.Type == "done" || msg.Type == "error" {
			final = msg
		}
	}

	assert.Equal(t, []string{"started", "progress", "done"}, types)
	require.NotNil(t, final.Report)
	assert.Len(t, final.Report.Results, 1)
}

func TestServerShutdown(t *testing.T) {
	srv := New(models.Server{Addr: "127.0.0.1:0"}, http.NotFoundHandler(), nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}
