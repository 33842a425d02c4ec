package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/ports"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/logger"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/metrics"
)

const (
	// DefaultConfidenceThreshold routes lower-confidence verdicts to humans.
	DefaultConfidenceThreshold = 0.7
	// DefaultLockTTL bounds how long a crashed worker can block a claim.
	DefaultLockTTL = 2 * time.Minute

	actorAIWorker = "ai_worker"
)

// ProcessOutcome describes what a processing run did.
type ProcessOutcome string

const (
	OutcomeAIApproved  ProcessOutcome = "ai_approved"
	OutcomeHumanReview ProcessOutcome = "human_review"
	OutcomeSkipped     ProcessOutcome = "skipped"
)

// ProcessResult is returned by AIProcessor.Process.
type ProcessResult struct {
	ClaimID string
	Outcome ProcessOutcome
	Verdict *entities.AIVerdict
	Reason  string
}

// LockKey is the advisory lock key for a claim.
func LockKey(claimID string) string {
	return "claim:" + claimID
}

// AIProcessor runs the model over a claim and routes it by confidence.
type AIProcessor struct {
	relationalDB ports.RelationalDB
	llm          ports.LLMClient
	locker       ports.Locker
	machine      *StateMachine
	threshold    float64
	lockTTL      time.Duration
	log          *logger.Logger
	metrics      *metrics.Metrics
}

// NewAIProcessor creates a new AIProcessor.
func NewAIProcessor(
	relationalDB ports.RelationalDB,
	llm ports.LLMClient,
	locker ports.Locker,
	machine *StateMachine,
	threshold float64,
	lockTTL time.Duration,
	log *logger.Logger,
	m *metrics.Metrics,
) *AIProcessor {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &AIProcessor{
		relationalDB: relationalDB,
		llm:          llm,
		locker:       locker,
		machine:      machine,
		threshold:    threshold,
		lockTTL:      lockTTL,
		log:          log,
		metrics:      m,
	}
}

// Process verifies one claim. The whole run holds the claim's advisory lock,
// so pending -> ai_processing happens exactly once per claim at a time.
//
// Claims already past AI processing are skipped unless payload.Force is set.
// A transport failure returns the claim to pending and yields a retryable
// ExternalServiceError.
func (p *AIProcessor) Process(ctx context.Context, payload entities.AIVerifyPayload) (*ProcessResult, error) {
	key := LockKey(payload.ClaimID)
	token, err := p.locker.Acquire(ctx, key, p.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("locking claim %s: %w", payload.ClaimID, err)
	}
	defer func() {
		if err := p.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			p.log.Warn("releasing claim lock", "claim_id", payload.ClaimID, "error", err)
		}
	}()

	claim, err := p.relationalDB.FindClaimByID(ctx, payload.ClaimID)
	if err != nil {
		return nil, fmt.Errorf("finding claim: %w", err)
	}
	if claim == nil {
		return nil, &entities.NotFoundError{Entity: "claim", ID: payload.ClaimID}
	}

	forced := false
	switch {
	case claim.Status == entities.StatusPending:
		if _, err := p.machine.Transition(ctx, claim.ID, entities.StatusAIProcessing, actorAIWorker); err != nil {
			return nil, err
		}
	case claim.Status == entities.StatusAIProcessing:
		// The lock is free, so whoever moved it here is gone.
		p.log.Warn("resuming claim left in ai_processing", "claim_id", claim.ID)
	case payload.Force && claim.Status.In(entities.ReprocessableStatuses...):
		forced = true
	default:
		p.metrics.IncAIOutcome(string(OutcomeSkipped))
		return &ProcessResult{
			ClaimID: claim.ID,
			Outcome: OutcomeSkipped,
			Reason:  "claim is " + string(claim.Status),
		}, nil
	}

	text := payload.ClaimText
	if text == "" {
		text = claim.Text()
	}

	start := time.Now()
	raw, err := p.llm.AssessClaim(ctx, text)
	p.metrics.ObserveLLMLatency(time.Since(start))
	if err != nil {
		var ext *entities.ExternalServiceError
		if !errors.As(err, &ext) {
			ext = &entities.ExternalServiceError{Service: "llm", Kind: entities.ExternalTransport, Err: err}
		}
		p.rollback(ctx, claim.ID, forced, ext)
		return nil, ext
	}

	assessment, err := ParseAssessment(raw.Content)
	if err != nil {
		p.rollback(ctx, claim.ID, forced, err)
		return nil, err
	}
	if assessment.Mode != entities.ParseStrict {
		p.log.Warn("model verdict parsed by keyword fallback",
			"claim_id", claim.ID,
			"mode", assessment.Mode,
			"reason", assessment.Reason,
			"verdict", assessment.Verdict,
		)
		p.metrics.IncParseFallback(string(assessment.Mode))
	}

	target := entities.StatusAIApproved
	if assessment.Confidence < p.threshold {
		target = entities.StatusHumanReview
	}

	verdict := &entities.AIVerdict{
		ID:              uuid.New().String(),
		ClaimID:         claim.ID,
		Verdict:         assessment.Verdict,
		ConfidenceScore: assessment.Confidence,
		Explanation:     assessment.Explanation,
		Sources:         assessment.Sources,
		ModelVersion:    raw.Model,
		ParseMode:       assessment.Mode,
		CreatedAt:       timeNow().UTC(),
	}

	final := target
	err = p.relationalDB.WithinTx(ctx, func(ctx context.Context) error {
		if err := p.relationalDB.SaveAIVerdict(ctx, verdict); err != nil {
			return fmt.Errorf("saving ai verdict: %w", err)
		}
		if err := p.relationalDB.SetClaimAIVerdict(ctx, claim.ID, verdict.ID); err != nil {
			return fmt.Errorf("linking ai verdict: %w", err)
		}
		if assessment.Mode != entities.ParseStrict {
			if err := p.relationalDB.LogAction(ctx, entities.AuditAIFallback, claim.ID, map[string]any{
				"mode":          string(assessment.Mode),
				"reason":        assessment.Reason,
				"verdict":       string(assessment.Verdict),
				"ai_verdict_id": verdict.ID,
			}); err != nil {
				return fmt.Errorf("logging parse fallback: %w", err)
			}
		}

		if !forced {
			_, err := p.machine.Transition(ctx, claim.ID, target, actorAIWorker)
			return err
		}
		// A forced rerun can demote to human review but never promotes.
		if target == entities.StatusHumanReview && claim.Status == entities.StatusAIApproved {
			_, err := p.machine.Transition(ctx, claim.ID, target, actorAIWorker)
			return err
		}
		final = claim.Status
		return nil
	})
	if err != nil {
		p.rollback(ctx, claim.ID, forced, err)
		return nil, err
	}

	p.metrics.IncAIOutcome(string(final))
	p.log.Info("claim verified by model",
		"claim_id", claim.ID,
		"verdict", verdict.Verdict,
		"confidence", verdict.ConfidenceScore,
		"status", final,
	)
	return &ProcessResult{ClaimID: claim.ID, Outcome: ProcessOutcome(final), Verdict: verdict}, nil
}

// rollback returns a claim to pending after a failed run so it can be
// retried. Forced reruns never left their status, so there is nothing to undo.
func (p *AIProcessor) rollback(ctx context.Context, claimID string, forced bool, cause error) {
	p.metrics.IncAIOutcome("failed")
	if forced {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if _, err := p.machine.Transition(ctx, claimID, entities.StatusPending, actorAIWorker); err != nil {
		p.log.Error("rolling claim back to pending", "claim_id", claimID, "cause", cause, "error", err)
		return
	}
	p.log.Warn("claim rolled back to pending", "claim_id", claimID, "cause", cause)
}
