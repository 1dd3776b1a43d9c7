package server

import (
	"net/http"
	"time"

	"l10ntrack/internal/observability"
	"l10ntrack/pkg/models"
)

// NewHandler builds the API mux. /health and /metrics skip the API key check.
func NewHandler(cfg models.Server, deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = observability.NewNopLogger()
	}
	h := &handler{Dependencies: deps}

	api := http.NewServeMux()
	api.HandleFunc("GET /sites", h.listSites)
	api.HandleFunc("POST /sites", h.createSite)
	api.HandleFunc("GET /sites/{id}", h.getSite)
	api.HandleFunc("PUT /sites/{id}", h.updateSite)
	api.HandleFunc("DELETE /sites/{id}", h.deleteSite)
	api.HandleFunc("GET /sites/{id}/analysis", h.getAnalysis)
	api.HandleFunc("POST /sites/{id}/analyze", h.analyze)

	mux := http.NewServeMux()
	mux.Handle("/sites", chain(api, RequireAPIKey(cfg.APIKeyHash), Timeout(cfg.RequestTimeout)))
	mux.Handle("/sites/", chain(api, RequireAPIKey(cfg.APIKeyHash), Timeout(cfg.RequestTimeout)))
	// long-lived, so no request timeout
	mux.Handle("GET /sites/{id}/analyze/stream", chain(http.HandlerFunc(h.analyzeStream), RequireAPIKey(cfg.APIKeyHash)))

	if deps.Health != nil {
		mux.HandleFunc("GET /health", deps.Health.HealthHandler())
	}
	if deps.Metrics != nil {
		mux.HandleFunc("GET /metrics", deps.Metrics.Handler())
	}

	return chain(mux, CORS(cfg.AllowedOrigins), requestLogger(deps.Logger))
}

// requestLogger logs every request with its status and duration.
func requestLogger(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			logger.WithFields(map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
			}).Debug("HTTP request")
		})
	}
}
