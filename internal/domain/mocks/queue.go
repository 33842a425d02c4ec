package mocks

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

// JobQueue is a mock implementation of ports.JobQueue that records calls.
// Dequeue pops from Ready without blocking.
type JobQueue struct {
	mu sync.Mutex

	Ready    []entities.Job
	Acked    []entities.Job
	Requeued []RequeuedJob

	EnqueueErr error
	DequeueErr error
}

// RequeuedJob is a job handed back with its delay.
type RequeuedJob struct {
	Job   entities.Job
	Delay time.Duration
}

// Enqueue appends to Ready.
func (m *JobQueue) Enqueue(_ context.Context, job entities.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EnqueueErr != nil {
		return m.EnqueueErr
	}
	m.Ready = append(m.Ready, job)
	return nil
}

// Dequeue pops the oldest ready job, or returns nil when empty.
func (m *JobQueue) Dequeue(_ context.Context, _ time.Duration) (*entities.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DequeueErr != nil {
		return nil, m.DequeueErr
	}
	if len(m.Ready) == 0 {
		return nil, nil
	}
	job := m.Ready[0]
	m.Ready = m.Ready[1:]
	return &job, nil
}

// Ack records the job.
func (m *JobQueue) Ack(_ context.Context, job entities.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Acked = append(m.Acked, job)
	return nil
}

// Requeue records the job with its attempt incremented.
func (m *JobQueue) Requeue(_ context.Context, job entities.Job, delay time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.Attempt++
	m.Requeued = append(m.Requeued, RequeuedJob{Job: job, Delay: delay})
	return nil
}

// Len returns the number of ready jobs.
func (m *JobQueue) Len(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.Ready)), nil
}

// Jobs returns a copy of the ready jobs.
func (m *JobQueue) Jobs() []entities.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entities.Job(nil), m.Ready...)
}

// JobsOfKind returns the ready jobs of one kind.
func (m *JobQueue) JobsOfKind(kind entities.JobKind) []entities.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.Job
	for _, j := range m.Ready {
		if j.Kind == kind {
			out = append(out, j)
		}
	}
	return out
}

// Locker is a mock implementation of ports.Locker backed by a map.
type Locker struct {
	mu    sync.Mutex
	held  map[string]string
	seq   int
	Err   error
	Taken []string
}

// NewLocker creates an empty mock locker.
func NewLocker() *Locker {
	return &Locker{held: make(map[string]string)}
}

// Acquire takes the key or fails with entities.ErrLockHeld.
func (m *Locker) Acquire(_ context.Context, key string, _ time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	if _, ok := m.held[key]; ok {
		return "", entities.ErrLockHeld
	}
	m.seq++
	token := key + "#" + strconv.Itoa(m.seq)
	m.held[key] = token
	m.Taken = append(m.Taken, key)
	return token, nil
}

// Release frees the key if token matches.
func (m *Locker) Release(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}

// Hold marks key as held by someone else.
func (m *Locker) Hold(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[key] = "external"
}

// Held reports whether key is currently locked.
func (m *Locker) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[key]
	return ok
}
