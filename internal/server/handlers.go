package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"l10ntrack/internal/analyzer"
	"l10ntrack/internal/observability"
	"l10ntrack/internal/site"
	"l10ntrack/internal/storage"
	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    errors.APICode `json:"code"`
	Message string         `json:"message"`
	Details interface{}    `json:"details,omitempty"`
}

// Dependencies are the services the handlers call into.
type Dependencies struct {
	Sites    *site.Service
	Results  storage.ResultStore
	Analyzer *analyzer.Analyzer
	Health   *observability.HealthManager
	Metrics  *observability.AnalysisMetrics
	Logger   *observability.Logger
}

type handler struct {
	Dependencies
}

// siteResponse is a site with the summary of its latest results.
type siteResponse struct {
	*models.Site
	Summary models.SiteSummary `json:"summary"`
}

func (h *handler) listSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.Sites.List(r.Context())
	if err != nil {
		h.writeError(w, r, err, http.StatusOK)
		return
	}
	h.writeData(w, http.StatusOK, sites)
}

func (h *handler) createSite(w http.ResponseWriter, r *http.Request) {
	var req models.Site
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err, http.StatusCreated)
		return
	}
	// server-assigned fields
	req.ID = ""
	req.CreatedAt, req.UpdatedAt = time.Time{}, time.Time{}

	created, err := h.Sites.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err, http.StatusCreated)
		return
	}
	h.writeData(w, http.StatusCreated, created)
}

func (h *handler) getSite(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sites.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err, http.StatusOK)
		return
	}
	latest, err := h.Results.LatestResults(r.Context(), s.ID)
	if err != nil {
		h.writeError(w, r, err, http.StatusOK)
		return
	}
	h.writeData(w, http.StatusOK, siteResponse{Site: s, Summary: analyzer.Summarize(latest)})
}

func (h *handler) updateSite(w http.ResponseWriter, r *http.Request) {
	var u models.SiteUpdate
	if err := decodeBody(r, &u); err != nil {
		h.writeError(w, r, err, http.StatusOK)
		return
	}
	updated, err := h.Sites.Update(r.Context(), r.PathValue("id"), u)
	if err != nil {
		h.writeError(w, r, err, http.StatusOK)
		return
	}
	h.writeData(w, http.StatusOK, updated)
}

func (h *handler) deleteSite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Sites.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err, http.StatusOK)
		return
	}
	h.writeData(w, http.StatusOK, map[string]string{"id": id})
}

// getAnalysis serves the latest result per language, the latest result of
// one language, or the run history when history=true.
func (h *handler) getAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.Sites.Get(ctx, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err, http.StatusOK)
		return
	}

	q := r.URL.Query()
	if q.Get("history") == "true" {
		limit := storage.DefaultHistoryLimit
		if raw := q.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				h.writeError(w, r, errors.ValidationError("limit", raw, "must be a positive integer"), http.StatusOK)
				return
			}
			limit = n
		}
		history, err := h.Results.ResultHistory(ctx, s.ID, limit)
		if err != nil {
			h.writeError(w, r, err, http.StatusOK)
			return
		}
		h.writeData(w, http.StatusOK, history)
		return
	}

	if code := q.Get("language"); code != "" {
		result, err := h.Results.LatestResult(ctx, s.ID, code)
		if err != nil {
			h.writeError(w, r, err, http.StatusOK)
			return
		}
		if result == nil {
			h.writeError(w, r, errors.New(errors.ErrCodeResultNotFound, "no analysis found for language: "+code).
				WithContext("language", code), http.StatusOK)
			return
		}
		h.writeData(w, http.StatusOK, result)
		return
	}

	latest, err := h.Results.LatestResults(ctx, s.ID)
	if err != nil {
		h.writeError(w, r, err, http.StatusOK)
		return
	}
	h.writeData(w, http.StatusOK, latest)
}

func (h *handler) analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.Sites.Get(ctx, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err, http.StatusOK)
		return
	}

	report, err := h.Analyzer.AnalyzeSite(ctx, s)
	if err != nil {
		h.writeError(w, r, runError(err), http.StatusOK)
		return
	}
	h.writeData(w, http.StatusOK, report)
}

// runError turns an abandoned run into a timeout the envelope reports as internal.
func runError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Wrap(err, errors.ErrCodeTimeout, "analysis did not finish before the request ended")
	}
	return err
}

func (h *handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeError reports err in the envelope. success is the status the endpoint
// uses when nothing went wrong; domain errors keep it.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error, success int) {
	code := errors.ToAPICode(err)
	body := &apiError{Code: code, Message: errors.Summary(err)}

	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
		if fields, ok := appErr.Context["fields"]; ok {
			body.Details = fields
		}
	}

	status := errors.HTTPStatus(err, success)
	fields := map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
		"code":   code,
		"status": status,
	}
	if status >= http.StatusInternalServerError {
		h.Logger.WithError(err).ErrorWithFields("Request failed", fields)
		body.Message = "internal server error"
	} else {
		h.Logger.WithError(err).WarnWithFields("Request rejected", fields)
	}

	writeJSON(w, status, envelope{Error: body})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidationFailed, "request body is not valid JSON").
			WithSeverity(errors.SeverityWarning)
	}
	return nil
}
