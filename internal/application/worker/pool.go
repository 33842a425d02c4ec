// Package worker consumes the job queue and runs the periodic maintenance
// tasks of the verification workflow.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/ports"
	"github.com/omaribamark/factcheck-core/internal/domain/services"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/logger"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/metrics"
)

const (
	defaultPollWait   = 2 * time.Second
	defaultBackoff    = 5 * time.Second
	maxBackoff        = 10 * time.Minute
	defaultAttempts   = 5
	errorPause        = time.Second
	queueDepthSampler = "queue_depth"
)

// Processor runs AI verification for one claim.
type Processor interface {
	Process(ctx context.Context, payload entities.AIVerifyPayload) (*services.ProcessResult, error)
}

// AdvisoryWriter drafts advisory content for a trending topic.
type AdvisoryWriter interface {
	WriteAdvisory(ctx context.Context, topicID string) (*entities.Advisory, error)
}

// Task is a function run every Interval while the pool is up.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Options tunes a Pool. Zero values fall back to defaults.
type Options struct {
	Workers      int
	MaxAttempts  int
	RetryBackoff time.Duration
	PollWait     time.Duration
	// QueueDepthInterval is how often the queue length is exported. Zero
	// disables sampling.
	QueueDepthInterval time.Duration
}

// Pool runs N queue consumers plus the registered tasks.
type Pool struct {
	queue      ports.JobQueue
	processor  Processor
	advisories AdvisoryWriter
	opts       Options
	tasks      []Task
	log        *logger.Logger
	metrics    *metrics.Metrics
}

// NewPool creates a pool. advisories may be nil, in which case advisory
// jobs are dropped with a warning.
func NewPool(queue ports.JobQueue, processor Processor, advisories AdvisoryWriter, opts Options, log *logger.Logger, m *metrics.Metrics) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultAttempts
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultBackoff
	}
	if opts.PollWait <= 0 {
		opts.PollWait = defaultPollWait
	}
	p := &Pool{
		queue:      queue,
		processor:  processor,
		advisories: advisories,
		opts:       opts,
		log:        log.With("component", "worker"),
		metrics:    m,
	}
	if opts.QueueDepthInterval > 0 {
		p.tasks = append(p.tasks, Task{Name: queueDepthSampler, Interval: opts.QueueDepthInterval, Run: p.sampleQueueDepth})
	}
	return p
}

// Schedule registers a periodic task. Must be called before Run.
func (p *Pool) Schedule(task Task) {
	p.tasks = append(p.tasks, task)
}

// Run blocks until ctx is canceled or a goroutine fails.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < p.opts.Workers; i++ {
		id := i
		g.Go(func() error { return p.consume(ctx, id) })
	}
	for _, task := range p.tasks {
		if task.Interval <= 0 {
			continue
		}
		task := task
		g.Go(func() error { return p.tick(ctx, task) })
	}

	p.log.Info("worker pool started", "workers", p.opts.Workers, "tasks", len(p.tasks))
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	p.log.Info("worker pool stopped")
	return err
}

func (p *Pool) consume(ctx context.Context, id int) error {
	log := p.log.With("worker", id)
	for {
		if ctx.Err() != nil {
			return nil
		}
		job, err := p.queue.Dequeue(ctx, p.opts.PollWait)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("dequeue failed", "error", err)
			if !sleep(ctx, errorPause) {
				return nil
			}
			continue
		}
		if job == nil {
			continue
		}
		p.Handle(ctx, *job)
	}
}

// Handle runs one job and settles it on the queue: ack on success,
// requeue with backoff on a retryable failure, ack and log as dead-lettered
// otherwise.
func (p *Pool) Handle(ctx context.Context, job entities.Job) {
	err := p.dispatch(ctx, job)
	settle := context.WithoutCancel(ctx)
	log := p.log.With("job_id", job.ID, "kind", string(job.Kind), "attempt", job.Attempt)

	switch {
	case err == nil:
		p.metrics.IncJob(string(job.Kind), "ok")
		if aerr := p.queue.Ack(settle, job); aerr != nil {
			log.Warn("acknowledging job", "error", aerr)
		}
	case retryable(err) && job.Attempt+1 < p.opts.MaxAttempts:
		delay := p.backoff(job.Attempt)
		p.metrics.IncJob(string(job.Kind), "retry")
		log.Warn("job failed, retrying", "error", err, "delay", delay)
		if rerr := p.queue.Requeue(settle, job, delay); rerr != nil {
			log.Error("requeueing job", "error", rerr)
		}
	default:
		p.metrics.IncJob(string(job.Kind), "dead")
		log.Error("job dead-lettered", "error", err)
		if aerr := p.queue.Ack(settle, job); aerr != nil {
			log.Warn("acknowledging job", "error", aerr)
		}
	}
}

func (p *Pool) dispatch(ctx context.Context, job entities.Job) error {
	switch job.Kind {
	case entities.JobAIVerify:
		payload, err := job.AIVerify()
		if err != nil {
			return err
		}
		result, err := p.processor.Process(ctx, payload)
		if err != nil {
			return err
		}
		p.log.Debug("claim processed", "claim_id", result.ClaimID, "outcome", string(result.Outcome), "reason", result.Reason)
		return nil
	case entities.JobAdvisoryGenerate:
		payload, err := job.Advisory()
		if err != nil {
			return err
		}
		if p.advisories == nil {
			p.log.Warn("advisory generation disabled, dropping job", "topic_id", payload.TopicID)
			return nil
		}
		if _, err := p.advisories.WriteAdvisory(ctx, payload.TopicID); err != nil {
			return err
		}
		return nil
	default:
		return &entities.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown job kind %q", job.Kind)}
	}
}

// backoff doubles RetryBackoff per attempt.
func (p *Pool) backoff(attempt int) time.Duration {
	d := p.opts.RetryBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

func (p *Pool) tick(ctx context.Context, task Task) error {
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()
	log := p.log.With("task", task.Name)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := task.Run(ctx); err != nil && ctx.Err() == nil {
				log.Warn("scheduled task failed", "error", err)
			}
		}
	}
}

func (p *Pool) sampleQueueDepth(ctx context.Context) error {
	n, err := p.queue.Len(ctx)
	if err != nil {
		return fmt.Errorf("reading queue length: %w", err)
	}
	p.metrics.SetQueueDepth(n)
	return nil
}

// retryable reports whether a failed job may succeed on a later attempt.
func retryable(err error) bool {
	if errors.Is(err, entities.ErrLockHeld) {
		return true
	}
	var ext *entities.ExternalServiceError
	if errors.As(err, &ext) {
		return ext.Retryable()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
