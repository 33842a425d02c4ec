package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/mocks"
	"github.com/omaribamark/factcheck-core/internal/domain/services"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/logger"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/memory"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/metrics"
)

type fakeProcessor struct {
	mu    sync.Mutex
	err   error
	calls []string
	done  chan string
}

func (f *fakeProcessor) Process(_ context.Context, payload entities.AIVerifyPayload) (*services.ProcessResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, payload.ClaimID)
	err := f.err
	f.mu.Unlock()
	if f.done != nil {
		f.done <- payload.ClaimID
	}
	if err != nil {
		return nil, err
	}
	return &services.ProcessResult{ClaimID: payload.ClaimID, Outcome: services.OutcomeAIApproved}, nil
}

type fakeAdvisories struct {
	topics []string
	err    error
}

func (f *fakeAdvisories) WriteAdvisory(_ context.Context, topicID string) (*entities.Advisory, error) {
	f.topics = append(f.topics, topicID)
	if f.err != nil {
		return nil, f.err
	}
	return &entities.Advisory{TopicID: topicID}, nil
}

func aiJob(t *testing.T, claimID string, attempt int) entities.Job {
	t.Helper()
	job, err := entities.NewAIVerifyJob(entities.AIVerifyPayload{ClaimID: claimID})
	require.NoError(t, err)
	job.Attempt = attempt
	return job
}

func TestPool_Handle(t *testing.T) {
	transport := &entities.ExternalServiceError{Service: "llm", Kind: entities.ExternalTransport, Err: errors.New("timeout")}
	malformed := &entities.ExternalServiceError{Service: "llm", Kind: entities.ExternalMalformed, Err: errors.New("garbage")}

	tests := []struct {
		name        string
		err         error
		attempt     int
		wantAcked   bool
		wantRequeue bool
		wantDelay   time.Duration
		wantResult  string
	}{
		{name: "success acks", wantAcked: true, wantResult: "ok"},
		{name: "transport failure retries", err: transport, wantRequeue: true, wantDelay: time.Second, wantResult: "retry"},
		{name: "backoff doubles per attempt", err: transport, attempt: 2, wantRequeue: true, wantDelay: 4 * time.Second, wantResult: "retry"},
		{name: "lock contention retries", err: entities.ErrLockHeld, wantRequeue: true, wantDelay: time.Second, wantResult: "retry"},
		{name: "last attempt dead-letters", err: transport, attempt: 2 + 1, wantAcked: true, wantResult: "dead"},
		{name: "malformed reply is not retried", err: malformed, wantAcked: true, wantResult: "dead"},
		{name: "missing claim is not retried", err: &entities.NotFoundError{Entity: "claim", ID: "c1"}, wantAcked: true, wantResult: "dead"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := &mocks.JobQueue{}
			m := metrics.New()
			pool := NewPool(queue, &fakeProcessor{err: tt.err}, nil, Options{MaxAttempts: 4, RetryBackoff: time.Second}, logger.Nop(), m)

			pool.Handle(context.Background(), aiJob(t, "c1", tt.attempt))

			if tt.wantAcked {
				assert.Len(t, queue.Acked, 1)
			} else {
				assert.Empty(t, queue.Acked)
			}
			if tt.wantRequeue {
				require.Len(t, queue.Requeued, 1)
				assert.Equal(t, tt.wantDelay, queue.Requeued[0].Delay)
				assert.Equal(t, tt.attempt+1, queue.Requeued[0].Job.Attempt)
			} else {
				assert.Empty(t, queue.Requeued)
			}
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Jobs.WithLabelValues(string(entities.JobAIVerify), tt.wantResult)))
		})
	}
}

func TestPool_DispatchAdvisory(t *testing.T) {
	queue := &mocks.JobQueue{}
	advisories := &fakeAdvisories{}
	pool := NewPool(queue, &fakeProcessor{}, advisories, Options{}, logger.Nop(), nil)

	job, err := entities.NewAdvisoryJob(entities.AdvisoryPayload{TopicID: "topic-1"})
	require.NoError(t, err)
	pool.Handle(context.Background(), job)

	assert.Equal(t, []string{"topic-1"}, advisories.topics)
	assert.Len(t, queue.Acked, 1)
}

func TestPool_DispatchAdvisoryDisabled(t *testing.T) {
	queue := &mocks.JobQueue{}
	pool := NewPool(queue, &fakeProcessor{}, nil, Options{}, logger.Nop(), nil)

	job, err := entities.NewAdvisoryJob(entities.AdvisoryPayload{TopicID: "topic-1"})
	require.NoError(t, err)
	pool.Handle(context.Background(), job)

	assert.Len(t, queue.Acked, 1)
	assert.Empty(t, queue.Requeued)
}

func TestPool_DispatchUnknownKind(t *testing.T) {
	queue := &mocks.JobQueue{}
	processor := &fakeProcessor{}
	pool := NewPool(queue, processor, nil, Options{}, logger.Nop(), nil)

	pool.Handle(context.Background(), entities.Job{ID: "j1", Kind: "reindex"})

	assert.Empty(t, processor.calls)
	assert.Len(t, queue.Acked, 1, "unknown kinds are dropped, not retried")
}

func TestPool_DispatchBadPayload(t *testing.T) {
	queue := &mocks.JobQueue{}
	processor := &fakeProcessor{}
	pool := NewPool(queue, processor, nil, Options{}, logger.Nop(), nil)

	pool.Handle(context.Background(), entities.Job{ID: "j1", Kind: entities.JobAIVerify, Payload: []byte(`{}`)})

	assert.Empty(t, processor.calls)
	assert.Len(t, queue.Acked, 1)
}

func TestPool_Backoff(t *testing.T) {
	pool := NewPool(&mocks.JobQueue{}, &fakeProcessor{}, nil, Options{RetryBackoff: time.Minute}, logger.Nop(), nil)

	assert.Equal(t, time.Minute, pool.backoff(0))
	assert.Equal(t, 2*time.Minute, pool.backoff(1))
	assert.Equal(t, 8*time.Minute, pool.backoff(3))
	assert.Equal(t, maxBackoff, pool.backoff(4))
	assert.Equal(t, maxBackoff, pool.backoff(40))
}

func TestPool_Run(t *testing.T) {
	queue := memory.NewQueue()
	processor := &fakeProcessor{done: make(chan string, 4)}
	m := metrics.New()
	pool := NewPool(queue, processor, nil, Options{Workers: 2, PollWait: 20 * time.Millisecond, QueueDepthInterval: 10 * time.Millisecond}, logger.Nop(), m)

	var ticks int
	var mu sync.Mutex
	pool.Schedule(Task{Name: "refresh", Interval: 10 * time.Millisecond, Run: func(context.Context) error {
		mu.Lock()
		ticks++
		mu.Unlock()
		return errors.New("ignored")
	}})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- pool.Run(ctx) }()

	require.NoError(t, queue.Enqueue(ctx, aiJob(t, "c1", 0)))
	require.NoError(t, queue.Enqueue(ctx, aiJob(t, "c2", 0)))

	seen := map[string]bool{}
	for len(seen) < 2 {
		select {
		case id := <-processor.done:
			seen[id] = true
		case <-time.After(5 * time.Second):
			t.Fatal("jobs were not processed")
		}
	}
	require.Eventually(t, func() bool { return queue.InFlight() == 0 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ticks > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pool did not stop")
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Jobs.WithLabelValues(string(entities.JobAIVerify), "ok")))
}
