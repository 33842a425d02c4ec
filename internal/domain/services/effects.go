package services

import (
	"context"
	"sync"
	"time"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/logger"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/metrics"
)

// DefaultEffectTimeout bounds a single downstream effect.
const DefaultEffectTimeout = 30 * time.Second

// Effects runs best-effort side effects off the caller's path. A failing
// effect is logged and counted; it never reaches the operation that
// triggered it.
type Effects struct {
	log     *logger.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewEffects creates an effects runner.
func NewEffects(log *logger.Logger, m *metrics.Metrics) *Effects {
	return &Effects{log: log, metrics: m, timeout: DefaultEffectTimeout}
}

// Go runs fn in the background under name. fn gets a context detached from
// the triggering request.
func (e *Effects) Go(name string, fn func(ctx context.Context) error) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		e.run(ctx, name, fn)
	}()
}

func (e *Effects) run(ctx context.Context, name string, fn func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("downstream effect panicked", "effect", name, "panic", r)
			e.metrics.IncEffectFailure(name)
		}
	}()
	if err := fn(ctx); err != nil {
		derr := &entities.DownstreamEffectError{Effect: name, Err: err}
		e.log.Warn("downstream effect failed", "effect", name, "error", derr)
		e.metrics.IncEffectFailure(name)
	}
}

// Wait blocks until every started effect has returned.
func (e *Effects) Wait() {
	e.wg.Wait()
}
