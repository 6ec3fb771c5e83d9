package ports

import (
	"context"

	"github.com/kirillkom/meta-search/internal/core/domain"
)

// SearchBackend is the uniform capability one retrieval tier is bound to.
type SearchBackend interface {
	Search(ctx context.Context, query string, limit int, filter domain.SearchFilter) ([]domain.SearchHit, error)
	Engine() string
}

// ContentExtractor is the additional capability of the deep-extraction
// tier: targeted extraction of URLs surfaced by a cheaper tier, never a
// fresh broad search.
type ContentExtractor interface {
	Extract(ctx context.Context, urls []string) ([]domain.SearchHit, error)
}

// AdmissionGate bounds simultaneous outbound backend calls across all
// in-flight sessions. The release func must be called on every exit path.
type AdmissionGate interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// OutcomeJournal persists completed retrieval sessions for inspection.
type OutcomeJournal interface {
	Record(ctx context.Context, outcome *domain.RetrievalOutcome) error
	GetByID(ctx context.Context, id string) (*domain.RetrievalOutcome, error)
	ListRecent(ctx context.Context, limit int) ([]domain.RetrievalOutcome, error)
}

// EventPublisher emits session-completed events for downstream consumers.
type EventPublisher interface {
	PublishSearchCompleted(ctx context.Context, outcome *domain.RetrievalOutcome) error
}

// TokenCounter estimates the token cost of a text for budget enforcement.
type TokenCounter interface {
	Count(text string) int
}

// ContentCleaner strips markup and boilerplate from extracted content.
type ContentCleaner interface {
	Clean(raw string) string
}
