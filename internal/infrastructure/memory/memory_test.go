package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

func newJob(t *testing.T, claimID string) entities.Job {
	t.Helper()
	job, err := entities.NewAIVerifyJob(entities.AIVerifyPayload{ClaimID: claimID})
	require.NoError(t, err)
	return job
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	first, second := newJob(t, "c1"), newJob(t, "c2")
	require.NoError(t, q.Enqueue(ctx, first))
	require.NoError(t, q.Enqueue(ctx, second))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 1, q.InFlight())

	require.NoError(t, q.Ack(ctx, *got))
	assert.Equal(t, 0, q.InFlight())
}

func TestQueue_DequeueTimeout(t *testing.T) {
	q := NewQueue()

	start := time.Now()
	got, err := q.Dequeue(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestQueue_DequeueCanceled(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Dequeue(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueue_WakesBlockedConsumer(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()
	job := newJob(t, "c1")

	var wg sync.WaitGroup
	var got *entities.Job
	wg.Add(1)
	go func() {
		defer wg.Done()
		got, _ = q.Dequeue(ctx, 5*time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, job))
	wg.Wait()

	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)
}

func TestQueue_BurstWakesEveryConsumer(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()
	const n = 3

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got []string
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, _ := q.Dequeue(ctx, 5*time.Second)
			if job != nil {
				mu.Lock()
				got = append(got, job.ID)
				mu.Unlock()
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	start := time.Now()
	for i := 0; i < n; i++ {
		require.NoError(t, q.Enqueue(ctx, newJob(t, "c")))
	}
	wg.Wait()

	assert.Len(t, got, n)
	assert.Less(t, time.Since(start), time.Second)
}

func TestQueue_Requeue(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, newJob(t, "c1")))

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)

	t.Run("immediate", func(t *testing.T) {
		require.NoError(t, q.Requeue(ctx, *got, 0))
		again, err := q.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, again)
		assert.Equal(t, 1, again.Attempt)
		got = again
	})

	t.Run("delayed", func(t *testing.T) {
		require.NoError(t, q.Requeue(ctx, *got, time.Hour))

		n, err := q.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		none, err := q.Dequeue(ctx, 20*time.Millisecond)
		require.NoError(t, err)
		assert.Nil(t, none)

		orig := timeNow
		timeNow = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { timeNow = orig }()

		due, err := q.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, due)
		assert.Equal(t, 2, due.Attempt)
	})
}

func TestLocker(t *testing.T) {
	l := NewLocker(time.Minute)
	ctx := context.Background()

	token, err := l.Acquire(ctx, "claim:c1", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = l.Acquire(ctx, "claim:c1", time.Minute)
	assert.ErrorIs(t, err, entities.ErrLockHeld)

	_, err = l.Acquire(ctx, "claim:c2", time.Minute)
	assert.NoError(t, err, "locks are per key")

	require.NoError(t, l.Release(ctx, "claim:c1", "someone-else"))
	_, err = l.Acquire(ctx, "claim:c1", time.Minute)
	assert.ErrorIs(t, err, entities.ErrLockHeld)

	require.NoError(t, l.Release(ctx, "claim:c1", token))
	_, err = l.Acquire(ctx, "claim:c1", time.Minute)
	assert.NoError(t, err)
}

func TestLocker_Expiry(t *testing.T) {
	l := NewLocker(time.Minute)
	ctx := context.Background()

	_, err := l.Acquire(ctx, "claim:c1", 20*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	_, err = l.Acquire(ctx, "claim:c1", time.Minute)
	assert.NoError(t, err, "expired lock can be retaken")
}
