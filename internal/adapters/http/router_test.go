package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/meta-search/internal/core/domain"
	"github.com/kirillkom/meta-search/internal/core/ports"
	"github.com/kirillkom/meta-search/internal/observability/metrics"
)

type fakeSearchService struct {
	outcome *domain.RetrievalOutcome
	err     error

	lastQuery domain.Query
}

func (f *fakeSearchService) Search(_ context.Context, query domain.Query) (*domain.RetrievalOutcome, error) {
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

type fakeJournal struct {
	outcome *domain.RetrievalOutcome
	err     error
}

func (f *fakeJournal) Record(context.Context, *domain.RetrievalOutcome) error { return nil }

func (f *fakeJournal) GetByID(context.Context, string) (*domain.RetrievalOutcome, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

func (f *fakeJournal) ListRecent(context.Context, int) ([]domain.RetrievalOutcome, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.outcome == nil {
		return nil, nil
	}
	return []domain.RetrievalOutcome{*f.outcome}, nil
}

func acceptedOutcome() *domain.RetrievalOutcome {
	return &domain.RetrievalOutcome{
		ID:         "session-1",
		Query:      "golang testing",
		Status:     domain.OutcomeAccepted,
		Tier:       domain.TierFree,
		Confidence: 0.9,
		Complexity: domain.ComplexitySimple,
		Hits: []domain.SearchHit{
			{Title: "Go testing", URL: "https://go.dev/doc/testing"},
		},
		Trail: []domain.TierAttempt{{Tier: domain.TierFree, Confidence: 0.9, HitCount: 1}},
	}
}

func newTestHandler(service *fakeSearchService, journal *fakeJournal) http.Handler {
	var j ports.OutcomeJournal
	if journal != nil {
		j = journal
	}
	rt := NewRouter(service, j, metrics.NewSearchMetrics(), nil, nil)
	return rt.Handler()
}

func TestSearchEndpoint(t *testing.T) {
	service := &fakeSearchService{outcome: acceptedOutcome()}
	handler := newTestHandler(service, nil)

	body := `{"query":"golang testing","limit":5,"category":"it"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if service.lastQuery.Text != "golang testing" || service.lastQuery.Limit != 5 {
		t.Fatalf("service received %+v", service.lastQuery)
	}
	if service.lastQuery.Filter.Category != "it" {
		t.Fatalf("filter = %+v", service.lastQuery.Filter)
	}

	var outcome domain.RetrievalOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if outcome.ID != "session-1" || outcome.Status != domain.OutcomeAccepted {
		t.Fatalf("response outcome: %+v", outcome)
	}
}

func TestSearchEndpointRejectsBadJSON(t *testing.T) {
	handler := newTestHandler(&fakeSearchService{outcome: acceptedOutcome()}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSearchEndpointMapsErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "invalid query",
			err:  domain.WrapError(domain.ErrInvalidQuery, "validate query", domain.ErrInvalidQuery),
			want: http.StatusBadRequest,
		},
		{
			name: "auth failure",
			err:  domain.WrapError(domain.ErrAuthFailure, "search", domain.ErrAuthFailure),
			want: http.StatusBadGateway,
		},
		{
			name: "unknown",
			err:  domain.ErrTemporary,
			want: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(&fakeSearchService{err: tt.err}, nil)
			req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"q"}`))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestSearchEndpointMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(&fakeSearchService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestGetOutcomeByID(t *testing.T) {
	journal := &fakeJournal{outcome: acceptedOutcome()}
	handler := newTestHandler(&fakeSearchService{}, journal)

	req := httptest.NewRequest(http.MethodGet, "/v1/outcomes/session-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestGetOutcomeNotFound(t *testing.T) {
	journal := &fakeJournal{err: domain.WrapError(domain.ErrOutcomeNotFound, "get outcome", domain.ErrOutcomeNotFound)}
	handler := newTestHandler(&fakeSearchService{}, journal)

	req := httptest.NewRequest(http.MethodGet, "/v1/outcomes/missing", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetOutcomeWithoutJournal(t *testing.T) {
	handler := newTestHandler(&fakeSearchService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/outcomes/session-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 when no journal is configured", rec.Code)
	}
}

func TestListOutcomesValidatesLimit(t *testing.T) {
	journal := &fakeJournal{outcome: acceptedOutcome()}
	handler := newTestHandler(&fakeSearchService{}, journal)

	req := httptest.NewRequest(http.MethodGet, "/v1/outcomes?limit=abc", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHealthzWithProbe(t *testing.T) {
	healthy := func(context.Context) bool { return true }
	rt := NewRouter(&fakeSearchService{}, nil, nil, healthy, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	rt.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	unhealthy := func(context.Context) bool { return false }
	rt = NewRouter(&fakeSearchService{}, nil, nil, unhealthy, nil)
	rec = httptest.NewRecorder()
	rt.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	handler := newTestHandler(&fakeSearchService{outcome: acceptedOutcome()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("response must carry a request id")
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "caller-id")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "caller-id" {
		t.Fatalf("request id = %q, want caller-id echoed", got)
	}
}

func TestFailedSearchIsCountedWithElapsedDuration(t *testing.T) {
	searchMetrics := metrics.NewSearchMetrics()
	rt := NewRouter(&fakeSearchService{err: domain.ErrTemporary}, nil, searchMetrics, nil, nil)
	handler := rt.Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"q"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	if !strings.Contains(body, `search_sessions_total{status="error"} 1`) {
		t.Fatalf("error session not counted:\n%s", body)
	}
	if !strings.Contains(body, "search_session_duration_seconds_count 1") {
		t.Fatalf("failed session missing a duration observation:\n%s", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestHandler(&fakeSearchService{outcome: acceptedOutcome()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatal("metrics output missing runtime collectors")
	}
}
