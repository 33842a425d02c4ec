// Package memory provides in-process queue and lock implementations for
// single-node deployments and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

type delayedJob struct {
	job entities.Job
	due time.Time
}

// Queue implements ports.JobQueue in memory. Jobs do not survive a restart.
type Queue struct {
	mu       sync.Mutex
	ready    []entities.Job
	delayed  []delayedJob
	inflight map[string]entities.Job
	// notify holds at most one pending wake-up. A consumer that pops a job
	// while more are ready passes the signal on, so bursts wake every waiter.
	notify chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		inflight: make(map[string]entities.Job),
		notify:   make(chan struct{}, 1),
	}
}

// Enqueue adds a job to the ready queue.
func (q *Queue) Enqueue(_ context.Context, job entities.Job) error {
	q.mu.Lock()
	q.ready = append(q.ready, job)
	q.mu.Unlock()
	q.wake()
	return nil
}

// Dequeue blocks up to wait for a job. Returns (nil, nil) on timeout.
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) (*entities.Job, error) {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()

	for {
		job, next := q.pop()
		if job != nil {
			return job, nil
		}

		var retry *time.Timer
		var retryC <-chan time.Time
		if !next.IsZero() {
			retry = time.NewTimer(next.Sub(timeNow()))
			retryC = retry.C
		}

		select {
		case <-ctx.Done():
			stopTimer(retry)
			return nil, ctx.Err()
		case <-deadline.C:
			stopTimer(retry)
			return nil, nil
		case <-q.notify:
		case <-retryC:
		}
		stopTimer(retry)
	}
}

// pop returns the next ready job, or the time the earliest delayed job is due.
func (q *Queue) pop() (*entities.Job, time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := timeNow()
	kept := q.delayed[:0]
	for _, d := range q.delayed {
		if !d.due.After(now) {
			q.ready = append(q.ready, d.job)
			continue
		}
		kept = append(kept, d)
	}
	q.delayed = kept

	if len(q.ready) > 0 {
		job := q.ready[0]
		q.ready = q.ready[1:]
		q.inflight[job.ID] = job
		if len(q.ready) > 0 {
			q.wake()
		}
		return &job, time.Time{}
	}

	if len(q.delayed) == 0 {
		return nil, time.Time{}
	}
	return nil, q.delayed[0].due
}

// Ack removes an in-flight job for good.
func (q *Queue) Ack(_ context.Context, job entities.Job) error {
	q.mu.Lock()
	delete(q.inflight, job.ID)
	q.mu.Unlock()
	return nil
}

// Requeue returns an in-flight job to the queue after delay with its attempt
// counter incremented.
func (q *Queue) Requeue(_ context.Context, job entities.Job, delay time.Duration) error {
	job.Attempt++

	q.mu.Lock()
	delete(q.inflight, job.ID)
	if delay <= 0 {
		q.ready = append(q.ready, job)
	} else {
		q.delayed = append(q.delayed, delayedJob{job: job, due: timeNow().Add(delay)})
		sort.SliceStable(q.delayed, func(i, j int) bool { return q.delayed[i].due.Before(q.delayed[j].due) })
	}
	q.mu.Unlock()
	q.wake()
	return nil
}

// Len reports how many jobs are waiting, delayed ones included.
func (q *Queue) Len(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.ready) + len(q.delayed)), nil
}

// InFlight reports how many jobs are dequeued but not yet settled.
func (q *Queue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inflight)
}

func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
