package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// promoteScript moves due jobs from the delayed set onto the ready list.
var promoteScript = redis.NewScript(`
local due = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, tonumber(ARGV[2]))
for _, job in ipairs(due) do
	redis.call("ZREM", KEYS[1], job)
	redis.call("LPUSH", KEYS[2], job)
end
return #due
`)

const promoteBatch = 100

// Queue implements ports.JobQueue. Ready jobs live on a list; a dequeued job
// moves atomically to a processing list until it is acked or requeued.
// Delayed retries wait in a sorted set scored by due time.
type Queue struct {
	client     *Client
	ready      string
	processing string
	delayed    string

	// inflight remembers the exact encoding of dequeued jobs so LREM matches.
	mu       sync.Mutex
	inflight map[string]string
}

// NewQueue creates a queue under the client's key prefix.
func NewQueue(client *Client) *Queue {
	return &Queue{
		client:     client,
		ready:      client.Key("jobs", "ready"),
		processing: client.Key("jobs", "processing"),
		delayed:    client.Key("jobs", "delayed"),
		inflight:   make(map[string]string),
	}
}

// Enqueue adds a job to the ready queue.
func (q *Queue) Enqueue(ctx context.Context, job entities.Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding job: %w", err)
	}
	if err := q.client.LPush(ctx, q.ready, raw).Err(); err != nil {
		return fmt.Errorf("enqueueing job: %w", err)
	}
	return nil
}

// Dequeue blocks up to wait for a job. Returns (nil, nil) on timeout.
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) (*entities.Job, error) {
	if err := q.promote(ctx); err != nil {
		return nil, err
	}

	raw, err := q.client.BLMove(ctx, q.ready, q.processing, "RIGHT", "LEFT", wait).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeueing job: %w", err)
	}

	var job entities.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		// Drop undecodable entries rather than poison the worker loop.
		_ = q.client.LRem(ctx, q.processing, 1, raw).Err()
		return nil, fmt.Errorf("decoding job: %w", err)
	}

	q.mu.Lock()
	q.inflight[job.ID] = raw
	q.mu.Unlock()
	return &job, nil
}

// Ack removes an in-flight job for good.
func (q *Queue) Ack(ctx context.Context, job entities.Job) error {
	raw, err := q.takeInflight(job)
	if err != nil {
		return err
	}
	if err := q.client.LRem(ctx, q.processing, 1, raw).Err(); err != nil {
		return fmt.Errorf("acking job: %w", err)
	}
	return nil
}

// Requeue returns an in-flight job to the queue after delay with its attempt
// counter incremented.
func (q *Queue) Requeue(ctx context.Context, job entities.Job, delay time.Duration) error {
	old, err := q.takeInflight(job)
	if err != nil {
		return err
	}

	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.processing, 1, old)
	if delay <= 0 {
		pipe.LPush(ctx, q.ready, raw)
	} else {
		due := timeNow().Add(delay).UnixMilli()
		pipe.ZAdd(ctx, q.delayed, redis.Z{Score: float64(due), Member: raw})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("requeueing job: %w", err)
	}
	return nil
}

// Len reports how many jobs are waiting, delayed ones included.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	pipe := q.client.Pipeline()
	ready := pipe.LLen(ctx, q.ready)
	delayed := pipe.ZCard(ctx, q.delayed)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("measuring queue: %w", err)
	}
	return ready.Val() + delayed.Val(), nil
}

// RecoverInFlight moves jobs left on the processing list by a crashed worker
// back to the ready list. Call it once at startup before workers run.
func (q *Queue) RecoverInFlight(ctx context.Context) (int, error) {
	moved := 0
	for {
		_, err := q.client.LMove(ctx, q.processing, q.ready, "RIGHT", "RIGHT").Result()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("recovering in-flight jobs: %w", err)
		}
		moved++
	}
}

func (q *Queue) promote(ctx context.Context) error {
	now := strconv.FormatInt(timeNow().UnixMilli(), 10)
	err := promoteScript.Run(ctx, q.client, []string{q.delayed, q.ready}, now, promoteBatch).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("promoting delayed jobs: %w", err)
	}
	return nil
}

func (q *Queue) takeInflight(job entities.Job) (string, error) {
	q.mu.Lock()
	raw, ok := q.inflight[job.ID]
	delete(q.inflight, job.ID)
	q.mu.Unlock()
	if ok {
		return raw, nil
	}
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encoding job: %w", err)
	}
	return string(data), nil
}
