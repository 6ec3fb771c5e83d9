package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/meta-search/internal/core/domain"
	"github.com/kirillkom/meta-search/internal/core/ports"
)

// TierBackend binds one tier of the escalation ladder to a backend.
// Extractor is set only for the deep-extraction tier; when present the
// tier is fed top-K URLs from the previous tier instead of the raw
// query. Threshold is the confidence bar below which the engine
// escalates (ignored on the terminal tier).
type TierBackend struct {
	Tier      domain.Tier
	Backend   ports.SearchBackend
	Extractor ports.ContentExtractor
	Threshold float64
}

type EngineConfig struct {
	MaxHitsPerTier int
	ExtractTopK    int
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxHitsPerTier: 10,
		ExtractTopK:    3,
	}
}

var errNoExtractCandidates = errors.New("no candidate urls for extraction")

// RetrievalEngine walks the tier ladder in ascending cost order,
// scoring each tier's hits and deciding accept/escalate/exhaust. One
// forward pass only: a tier is never attempted twice and the ladder is
// never walked backwards.
type RetrievalEngine struct {
	ladder []TierBackend
	scorer *ConfidenceCalculator
	gate   ports.AdmissionGate
	cfg    EngineConfig
	logger *slog.Logger
}

func NewRetrievalEngine(
	ladder []TierBackend,
	scorer *ConfidenceCalculator,
	gate ports.AdmissionGate,
	cfg EngineConfig,
	logger *slog.Logger,
) *RetrievalEngine {
	def := DefaultEngineConfig()
	if cfg.MaxHitsPerTier <= 0 {
		cfg.MaxHitsPerTier = def.MaxHitsPerTier
	}
	if cfg.ExtractTopK <= 0 {
		cfg.ExtractTopK = def.ExtractTopK
	}
	if logger == nil {
		logger = slog.Default()
	}

	ordered := make([]TierBackend, len(ladder))
	copy(ordered, ladder)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Tier < ordered[j].Tier })

	return &RetrievalEngine{
		ladder: ordered,
		scorer: scorer,
		gate:   gate,
		cfg:    cfg,
		logger: logger,
	}
}

// Run executes one retrieval session. Recoverable backend failures are
// absorbed into the escalation trail; an auth failure aborts the
// session, and caller cancellation yields a cancelled outcome.
func (e *RetrievalEngine) Run(
	ctx context.Context,
	query domain.Query,
	decision domain.RoutingDecision,
) (*domain.RetrievalOutcome, error) {
	if len(e.ladder) == 0 {
		return nil, fmt.Errorf("retrieval ladder is empty")
	}

	outcome := &domain.RetrievalOutcome{
		ID:         uuid.NewString(),
		Query:      query.Text,
		Complexity: decision.Complexity,
		ModelHint:  decision.ModelHint,
		StartedAt:  time.Now().UTC(),
	}

	limit := query.Limit
	if limit <= 0 {
		limit = e.cfg.MaxHitsPerTier
	}

	var (
		bestHits []domain.SearchHit
		bestTier domain.Tier
		bestConf float64
		haveBest bool
	)

	for i := e.startIndex(decision.StartTier); i < len(e.ladder); i++ {
		rung := e.ladder[i]
		began := time.Now()

		hits, attemptErr := e.attemptTier(ctx, rung, query, limit, bestHits)
		if attemptErr != nil {
			if domain.IsKind(attemptErr, domain.ErrCancelled) {
				outcome.Trail = append(outcome.Trail, domain.TierAttempt{
					Tier:     rung.Tier,
					Duration: time.Since(began),
					Error:    attemptErr.Error(),
				})
				outcome.Status = domain.OutcomeCancelled
				outcome.Tier = rung.Tier
				outcome.Duration = time.Since(outcome.StartedAt)
				e.logger.Info("retrieval_cancelled", "session", outcome.ID, "tier", rung.Tier.String())
				return outcome, nil
			}
			if domain.IsKind(attemptErr, domain.ErrAuthFailure) {
				// Escalating to another paid tier while misconfigured
				// only wastes cost; surface immediately.
				e.logger.Error("backend_auth_failure", "session", outcome.ID, "tier", rung.Tier.String(), "error", attemptErr)
				return nil, attemptErr
			}
			hits = nil
		}

		score := 0.0
		if len(hits) > 0 {
			score = e.scorer.Score(query.Text, hits)
		}

		attempt := domain.TierAttempt{
			Tier:       rung.Tier,
			Confidence: score,
			HitCount:   len(hits),
			Duration:   time.Since(began),
		}
		if attemptErr != nil {
			attempt.Error = attemptErr.Error()
		}
		outcome.Trail = append(outcome.Trail, attempt)

		if len(hits) > 0 {
			bestHits, bestTier, bestConf, haveBest = hits, rung.Tier, score, true
		}

		threshold := clamp01(rung.Threshold + decision.ThresholdOffset)
		terminal := i == len(e.ladder)-1

		e.logger.Info("tier_evaluated",
			"session", outcome.ID,
			"tier", rung.Tier.String(),
			"hits", len(hits),
			"confidence", score,
			"threshold", threshold,
			"terminal", terminal,
		)

		// A zero-result tier always escalates; a populated tier accepts
		// at or above its threshold.
		if len(hits) > 0 && score >= threshold {
			return e.accept(outcome, hits, rung.Tier, score), nil
		}
		if terminal {
			if haveBest {
				// Degraded-but-available beats no answer.
				return e.accept(outcome, bestHits, bestTier, bestConf), nil
			}
			outcome.Status = domain.OutcomeExhausted
			outcome.Tier = rung.Tier
			outcome.Duration = time.Since(outcome.StartedAt)
			e.logger.Warn("retrieval_exhausted", "session", outcome.ID, "tiers_attempted", len(outcome.Trail))
			return outcome, nil
		}
	}

	// Unreachable: the terminal rung always returns above.
	outcome.Status = domain.OutcomeExhausted
	outcome.Duration = time.Since(outcome.StartedAt)
	return outcome, nil
}

func (e *RetrievalEngine) startIndex(start domain.Tier) int {
	for i, rung := range e.ladder {
		if rung.Tier == start {
			return i
		}
	}
	// The routed tier is not configured; fall back to the closest
	// cheaper rung so the walk still visits every remaining tier. An
	// extraction-only rung must never be entered without prior urls.
	best := 0
	for i, rung := range e.ladder {
		if rung.Tier < start {
			best = i
		}
	}
	return best
}

func (e *RetrievalEngine) attemptTier(
	ctx context.Context,
	rung TierBackend,
	query domain.Query,
	limit int,
	prior []domain.SearchHit,
) ([]domain.SearchHit, error) {
	operation := "attempt " + rung.Tier.String()
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrCancelled, operation, err)
	}

	var urls []string
	if rung.Extractor != nil {
		urls = topURLs(prior, e.cfg.ExtractTopK)
		if len(urls) == 0 {
			// Deep extraction is scoped to already-validated candidates,
			// never re-queried with the raw text.
			return nil, fmt.Errorf("%s: %w", operation, errNoExtractCandidates)
		}
	}

	if e.gate != nil {
		release, err := e.gate.Acquire(ctx)
		if err != nil {
			return nil, domain.WrapError(domain.ErrCancelled, "acquire admission permit", err)
		}
		defer release()
	}

	var (
		hits []domain.SearchHit
		err  error
	)
	if rung.Extractor != nil {
		hits, err = rung.Extractor.Extract(ctx, urls)
	} else {
		hits, err = rung.Backend.Search(ctx, query.Text, limit, query.Filter)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return nil, domain.WrapError(domain.ErrCancelled, operation, err)
		}
		return nil, err
	}
	return hits, nil
}

func (e *RetrievalEngine) accept(
	outcome *domain.RetrievalOutcome,
	hits []domain.SearchHit,
	tier domain.Tier,
	confidence float64,
) *domain.RetrievalOutcome {
	outcome.Status = domain.OutcomeAccepted
	outcome.Tier = tier
	outcome.Confidence = confidence
	outcome.Hits = hits
	outcome.Duration = time.Since(outcome.StartedAt)
	e.logger.Info("retrieval_accepted",
		"session", outcome.ID,
		"tier", tier.String(),
		"confidence", confidence,
		"hits", len(hits),
		"tiers_attempted", len(outcome.Trail),
	)
	return outcome
}

func topURLs(hits []domain.SearchHit, k int) []string {
	urls := make([]string, 0, k)
	seen := make(map[string]struct{}, k)
	for _, hit := range hits {
		if hit.URL == "" {
			continue
		}
		if _, ok := seen[hit.URL]; ok {
			continue
		}
		seen[hit.URL] = struct{}{}
		urls = append(urls, hit.URL)
		if len(urls) == k {
			break
		}
	}
	return urls
}
