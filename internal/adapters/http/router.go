package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/meta-search/internal/core/domain"
	"github.com/kirillkom/meta-search/internal/core/ports"
	"github.com/kirillkom/meta-search/internal/observability/metrics"
)

type Router struct {
	search      ports.SearchService
	journal     ports.OutcomeJournal
	metrics     *metrics.SearchMetrics
	healthProbe func(ctx context.Context) bool
	logger      *slog.Logger
}

func NewRouter(
	search ports.SearchService,
	journal ports.OutcomeJournal,
	searchMetrics *metrics.SearchMetrics,
	healthProbe func(ctx context.Context) bool,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		search:      search,
		journal:     journal,
		metrics:     searchMetrics,
		healthProbe: healthProbe,
		logger:      logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/search", rt.runSearch)
	mux.HandleFunc("/v1/outcomes", rt.listOutcomes)
	mux.HandleFunc("/v1/outcomes/", rt.getOutcomeByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	return requestIDMiddleware(accessLogMiddleware(rt.logger, mux))
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK

	if rt.healthProbe != nil {
		probeCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if !rt.healthProbe(probeCtx) {
			status["status"] = "degraded"
			status["search_backend"] = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, status)
}

func (rt *Router) runSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query     string `json:"query"`
		Limit     int    `json:"limit"`
		Category  string `json:"category"`
		Language  string `json:"language"`
		TimeRange string `json:"time_range"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	query := domain.Query{
		Text:  req.Query,
		Limit: req.Limit,
		Filter: domain.SearchFilter{
			Category:  req.Category,
			Language:  req.Language,
			TimeRange: req.TimeRange,
		},
	}

	if rt.metrics != nil {
		rt.metrics.SessionStarted()
	}
	started := time.Now()
	outcome, err := rt.search.Search(r.Context(), query)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.SessionFinished("error", time.Since(started))
		}
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	rt.observeOutcome(outcome)
	writeJSON(w, http.StatusOK, outcome)
}

// observeOutcome translates one finished session into metric updates.
func (rt *Router) observeOutcome(outcome *domain.RetrievalOutcome) {
	if rt.metrics == nil || outcome == nil {
		return
	}
	rt.metrics.SessionFinished(string(outcome.Status), outcome.Duration)
	for i, attempt := range outcome.Trail {
		result := "escalated"
		if i == len(outcome.Trail)-1 {
			result = string(outcome.Status)
		}
		rt.metrics.TierAttempted(attempt.Tier.String(), result, attempt.Duration)
		if i > 0 {
			rt.metrics.Escalated()
		}
	}
}

func (rt *Router) getOutcomeByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.journal == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "outcome journal is not configured"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/outcomes/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "outcome id is required"})
		return
	}

	outcome, err := rt.journal.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (rt *Router) listOutcomes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.journal == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "outcome journal is not configured"})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	outcomes, err := rt.journal.ListRecent(r.Context(), limit)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcomes": outcomes})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
