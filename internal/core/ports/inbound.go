package ports

import (
	"context"

	"github.com/kirillkom/meta-search/internal/core/domain"
)

// SearchService runs one full retrieval session: routing, tiered
// retrieval, pruning, and observability side effects.
type SearchService interface {
	Search(ctx context.Context, query domain.Query) (*domain.RetrievalOutcome, error)
}
