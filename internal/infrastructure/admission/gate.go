package admission

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

type Config struct {
	MaxConcurrent     int64
	RequestsPerSecond float64
	Burst             int
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrent:     8,
		RequestsPerSecond: 10,
		Burst:             10,
	}
}

// Gate is the process-wide admission control for outbound backend
// calls: a token bucket smooths the request rate and a counting
// semaphore caps in-flight calls. Sessions borrow permits; they never
// own the gate.
type Gate struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

func New(cfg Config) *Gate {
	def := DefaultConfig()
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	return &Gate{
		sem:     semaphore.NewWeighted(cfg.MaxConcurrent),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Acquire blocks until a permit is available or ctx is done. The
// returned release func is idempotent and must be called on every exit
// path, including error and timeout.
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() { g.sem.Release(1) })
	}, nil
}

// TryAcquire is the non-blocking variant used by health probes.
func (g *Gate) TryAcquire() (func(), bool) {
	if !g.limiter.Allow() {
		return nil, false
	}
	if !g.sem.TryAcquire(1) {
		return nil, false
	}
	var once sync.Once
	return func() {
		once.Do(func() { g.sem.Release(1) })
	}, true
}
