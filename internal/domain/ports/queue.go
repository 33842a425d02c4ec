package ports

import (
	"context"
	"time"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

// JobQueue is an at-least-once work queue. A dequeued job stays in flight
// until it is acknowledged or requeued.
type JobQueue interface {
	// Enqueue adds a job to the ready queue.
	Enqueue(ctx context.Context, job entities.Job) error

	// Dequeue blocks up to wait for a job. Returns (nil, nil) on timeout.
	Dequeue(ctx context.Context, wait time.Duration) (*entities.Job, error)

	// Ack removes an in-flight job for good.
	Ack(ctx context.Context, job entities.Job) error

	// Requeue returns an in-flight job to the queue after delay with its
	// attempt counter incremented.
	Requeue(ctx context.Context, job entities.Job, delay time.Duration) error

	// Len reports how many jobs are waiting, delayed ones included.
	Len(ctx context.Context) (int64, error)
}

// Locker hands out short-lived advisory locks keyed by string.
type Locker interface {
	// Acquire takes the lock or fails with entities.ErrLockHeld. The returned
	// token must be passed to Release.
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Release frees the lock if token still owns it.
	Release(ctx context.Context, key, token string) error
}
