package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/meta-search/internal/core/domain"
	"github.com/kirillkom/meta-search/internal/core/ports"
)

// SearchUseCase ties one retrieval session together: validation,
// routing, the tiered retrieval loop, pruning, and best-effort
// journaling and event publication.
type SearchUseCase struct {
	router  *SemanticRouter
	engine  *RetrievalEngine
	pruner  *ContextPruner
	journal ports.OutcomeJournal
	events  ports.EventPublisher
	logger  *slog.Logger
}

func NewSearchUseCase(
	router *SemanticRouter,
	engine *RetrievalEngine,
	pruner *ContextPruner,
	journal ports.OutcomeJournal,
	events ports.EventPublisher,
	logger *slog.Logger,
) *SearchUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchUseCase{
		router:  router,
		engine:  engine,
		pruner:  pruner,
		journal: journal,
		events:  events,
		logger:  logger,
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, query domain.Query) (*domain.RetrievalOutcome, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	decision := uc.router.Classify(query)
	uc.logger.Info("query_routed",
		"complexity", string(decision.Complexity),
		"start_tier", decision.StartTier.String(),
		"model_hint", decision.ModelHint,
	)

	outcome, err := uc.engine.Run(ctx, query, decision)
	if err != nil {
		return nil, err
	}

	if outcome.Status == domain.OutcomeAccepted {
		outcome.Hits = uc.pruner.Prune(outcome.Hits, 0)
	}

	uc.recordOutcome(ctx, outcome)
	return outcome, nil
}

// recordOutcome persists and publishes the finished session. Both side
// effects are best-effort: a journal or broker outage must not fail a
// search that already produced an answer.
func (uc *SearchUseCase) recordOutcome(ctx context.Context, outcome *domain.RetrievalOutcome) {
	// Cancelled sessions still get journaled.
	ctx = context.WithoutCancel(ctx)

	if uc.journal != nil {
		if err := uc.journal.Record(ctx, outcome); err != nil {
			uc.logger.Warn("journal_record_failed", "session", outcome.ID, "error", err)
		}
	}
	if uc.events != nil {
		if err := uc.events.PublishSearchCompleted(ctx, outcome); err != nil {
			uc.logger.Warn("event_publish_failed", "session", outcome.ID, "error", err)
		}
	}
}
