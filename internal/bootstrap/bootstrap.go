package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/meta-search/internal/config"
	"github.com/kirillkom/meta-search/internal/core/domain"
	"github.com/kirillkom/meta-search/internal/core/ports"
	"github.com/kirillkom/meta-search/internal/core/usecase"
	"github.com/kirillkom/meta-search/internal/infrastructure/admission"
	"github.com/kirillkom/meta-search/internal/infrastructure/backend/exa"
	"github.com/kirillkom/meta-search/internal/infrastructure/backend/searxng"
	"github.com/kirillkom/meta-search/internal/infrastructure/backend/tavily"
	"github.com/kirillkom/meta-search/internal/infrastructure/htmlclean"
	natsqueue "github.com/kirillkom/meta-search/internal/infrastructure/queue/nats"
	"github.com/kirillkom/meta-search/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/meta-search/internal/infrastructure/resilience"
	"github.com/kirillkom/meta-search/internal/infrastructure/tokencount"
	"github.com/kirillkom/meta-search/internal/observability/metrics"
)

// App holds the wired object graph shared by the entrypoints.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Search  ports.SearchService
	Journal ports.OutcomeJournal
	Metrics *metrics.SearchMetrics

	// HealthProbe reports whether the free-tier aggregator answers.
	HealthProbe func(ctx context.Context) bool

	closers []func()
}

// New wires the whole dependency graph from configuration. The SearXNG
// tier is always present; Exa and Tavily rungs join the ladder only
// when their API keys are configured, and the journal and event
// publisher attach only when Postgres and NATS are reachable by
// configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{Config: cfg, Logger: logger}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	gate := admission.New(admission.Config{
		MaxConcurrent:     int64(cfg.MaxConcurrentRequests),
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.BurstSize,
	})
	timeout := time.Duration(cfg.SearchTimeoutSeconds) * time.Second

	free := searxng.New(cfg.SearxngURL, searxng.Options{
		Timeout:  timeout,
		Executor: executor,
		Logger:   logger,
	})
	app.HealthProbe = free.Healthy

	ladder := []usecase.TierBackend{
		{Tier: domain.TierFree, Backend: free, Threshold: cfg.FreeTierThreshold},
	}
	if cfg.ExaAPIKey != "" {
		semantic := exa.New(cfg.ExaAPIKey, exa.Options{Timeout: timeout, Executor: executor})
		ladder = append(ladder, usecase.TierBackend{
			Tier:      domain.TierSemantic,
			Backend:   semantic,
			Threshold: cfg.SemanticTierThreshold,
		})
	} else {
		logger.Info("tier_disabled", "tier", domain.TierSemantic.String(), "reason", "no api key")
	}
	if cfg.TavilyAPIKey != "" {
		deep := tavily.New(cfg.TavilyAPIKey, tavily.Options{Executor: executor})
		ladder = append(ladder, usecase.TierBackend{
			Tier:      domain.TierDeepExtract,
			Backend:   deep,
			Extractor: deep,
		})
	} else {
		logger.Info("tier_disabled", "tier", domain.TierDeepExtract.String(), "reason", "no api key")
	}

	scorer := usecase.NewConfidenceCalculator(usecase.ConfidenceConfig{
		AuthorityDomains: cfg.AuthorityDomains,
	})
	router := usecase.NewSemanticRouter(usecase.RouterConfig{
		ComplexKeywords: cfg.ComplexKeywords,
	})
	engine := usecase.NewRetrievalEngine(ladder, scorer, gate, usecase.EngineConfig{
		MaxHitsPerTier: cfg.DefaultNumResults,
		ExtractTopK:    cfg.ExtractTopK,
	}, logger)

	counter := buildTokenCounter(cfg, logger)
	pruner := usecase.NewContextPruner(usecase.PrunerConfig{
		TokenBudget: cfg.ContextTokenBudget,
	}, counter, htmlclean.New())

	journal, db, err := buildJournal(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if db != nil {
		app.closers = append(app.closers, func() { _ = db.Close() })
		app.Journal = journal
	}

	var events ports.EventPublisher
	if cfg.NATSURL != "" {
		publisher, err := natsqueue.NewPublisher(cfg.NATSURL, natsqueue.Options{
			Subject: cfg.NATSSubject,
			Logger:  logger,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, publisher.Close)
		events = publisher
	}

	app.Metrics = metrics.NewSearchMetrics()
	app.Search = usecase.NewSearchUseCase(router, engine, pruner, journal, events, logger)
	return app, nil
}

func buildTokenCounter(cfg *config.Config, logger *slog.Logger) ports.TokenCounter {
	if cfg.Tokenizer != "tiktoken" {
		return tokencount.HeuristicCounter{}
	}
	counter, err := tokencount.NewTiktokenCounter("")
	if err != nil {
		logger.Warn("tiktoken_unavailable", "error", err)
		return tokencount.HeuristicCounter{}
	}
	return counter
}

func buildJournal(ctx context.Context, cfg *config.Config) (ports.OutcomeJournal, *sql.DB, error) {
	if cfg.PostgresDSN == "" {
		return nil, nil, nil
	}
	db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap journal: %w", err)
	}
	repo := postgres.NewOutcomeRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("bootstrap journal: %w", err)
	}
	return repo, db, nil
}

// Close releases owned resources in reverse wiring order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
