package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/meta-search/internal/core/domain"
)

type Options struct {
	Subject string
	Logger  *slog.Logger
}

// Publisher emits one event per completed retrieval session. Delivery
// is best effort: the session result is already final when the event
// goes out, so publish failures are logged upstream, never propagated
// to the caller of the search.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

func NewPublisher(natsURL string, options Options) (*Publisher, error) {
	subject := options.Subject
	if subject == "" {
		subject = "search.completed"
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(natsURL,
		nats.Timeout(2*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(60),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &Publisher{conn: conn, subject: subject, logger: logger}, nil
}

// searchCompletedEvent is the wire shape. Hits are summarized down to a
// count: consumers wanting full results read the journal by session id.
type searchCompletedEvent struct {
	ID         string  `json:"id"`
	Query      string  `json:"query"`
	Status     string  `json:"status"`
	Tier       string  `json:"tier"`
	Confidence float64 `json:"confidence"`
	Complexity string  `json:"complexity"`
	HitCount   int     `json:"hit_count"`
	TierCount  int     `json:"tier_count"`
	DurationMS int64   `json:"duration_ms"`
	StartedAt  string  `json:"started_at"`
}

func (p *Publisher) PublishSearchCompleted(ctx context.Context, outcome *domain.RetrievalOutcome) error {
	if outcome == nil {
		return fmt.Errorf("publish search completed: outcome is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	event := searchCompletedEvent{
		ID:         outcome.ID,
		Query:      outcome.Query,
		Status:     string(outcome.Status),
		Tier:       outcome.Tier.String(),
		Confidence: outcome.Confidence,
		Complexity: string(outcome.Complexity),
		HitCount:   len(outcome.Hits),
		TierCount:  len(outcome.Trail),
		DurationMS: outcome.Duration.Milliseconds(),
		StartedAt:  outcome.StartedAt.UTC().Format(time.RFC3339Nano),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal search completed event: %w", err)
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		return classifyPublishError(err)
	}
	return nil
}

func classifyPublishError(err error) error {
	switch {
	case errors.Is(err, nats.ErrConnectionClosed), errors.Is(err, nats.ErrConnectionDraining):
		return domain.WrapError(domain.ErrUnreachable, "publish search completed", err)
	case errors.Is(err, nats.ErrReconnectBufExceeded), errors.Is(err, nats.ErrTimeout):
		return domain.WrapError(domain.ErrTemporary, "publish search completed", err)
	default:
		return fmt.Errorf("publish search completed: %w", err)
	}
}

// Close flushes buffered publishes before dropping the connection.
func (p *Publisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.FlushTimeout(2 * time.Second); err != nil {
		p.logger.Warn("nats_flush_failed", "error", err)
	}
	p.conn.Close()
}
