package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/ports"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/logger"
)

// VerdictDraft is a human verdict ready to be finalized.
type VerdictDraft struct {
	ClaimID       string
	FactCheckerID string
	Verdict       entities.VerdictLabel
	Explanation   string
	Sources       []string
	// AIVerdictID links the AI verdict this one was based on, if any.
	AIVerdictID string
}

// VerdictFinalizer publishes human verdicts.
type VerdictFinalizer struct {
	relationalDB ports.RelationalDB
	machine      *StateMachine
	notifier     *NotificationDispatcher
	trending     *TrendingDetector
	similarity   *SimilarityDetector
	effects      *Effects
	log          *logger.Logger
}

// NewVerdictFinalizer creates a new VerdictFinalizer.
func NewVerdictFinalizer(
	relationalDB ports.RelationalDB,
	machine *StateMachine,
	notifier *NotificationDispatcher,
	trending *TrendingDetector,
	similarity *SimilarityDetector,
	effects *Effects,
	log *logger.Logger,
) *VerdictFinalizer {
	return &VerdictFinalizer{
		relationalDB: relationalDB,
		machine:      machine,
		notifier:     notifier,
		trending:     trending,
		similarity:   similarity,
		effects:      effects,
		log:          log,
	}
}

// Finalize stores the verdict, points the claim at it, and publishes the
// claim, all in one transaction. Notification, trending and index updates
// run afterwards as downstream effects; their failure never undoes the
// verdict.
func (f *VerdictFinalizer) Finalize(ctx context.Context, draft VerdictDraft) (*entities.Verdict, error) {
	verdict := &entities.Verdict{
		ID:            uuid.New().String(),
		ClaimID:       draft.ClaimID,
		FactCheckerID: draft.FactCheckerID,
		Verdict:       draft.Verdict,
		Explanation:   strings.TrimSpace(draft.Explanation),
		Sources:       draft.Sources,
		AIVerdictID:   draft.AIVerdictID,
		IsFinal:       true,
		CreatedAt:     timeNow().UTC(),
	}

	var published *entities.Claim
	err := f.relationalDB.WithinTx(ctx, func(ctx context.Context) error {
		claim, err := f.relationalDB.FindClaimByID(ctx, draft.ClaimID)
		if err != nil {
			return fmt.Errorf("finding claim: %w", err)
		}
		if claim == nil {
			return &entities.NotFoundError{Entity: "claim", ID: draft.ClaimID}
		}
		if !claim.Status.In(entities.ReviewableStatuses...) {
			return &entities.InvalidTransitionError{ClaimID: claim.ID, From: claim.Status, To: entities.StatusHumanApproved}
		}

		if err := f.relationalDB.SaveVerdict(ctx, verdict); err != nil {
			return fmt.Errorf("saving verdict: %w", err)
		}
		if _, err := f.machine.Transition(ctx, claim.ID, entities.StatusHumanApproved, draft.FactCheckerID); err != nil {
			return err
		}
		if _, err := f.machine.Transition(ctx, claim.ID, entities.StatusPublished, draft.FactCheckerID); err != nil {
			return err
		}
		publishedAt := verdict.CreatedAt
		if err := f.relationalDB.SetClaimHumanVerdict(ctx, claim.ID, verdict.ID, &publishedAt); err != nil {
			return fmt.Errorf("linking verdict: %w", err)
		}
		if err := closeOpenSession(ctx, f.relationalDB, claim.ID, entities.SessionEndCompleted, publishedAt); err != nil {
			return err
		}
		if err := f.relationalDB.LogAction(ctx, entities.AuditVerdictFinal, claim.ID, map[string]any{
			"verdict_id":      verdict.ID,
			"verdict":         string(verdict.Verdict),
			"fact_checker_id": verdict.FactCheckerID,
			"ai_verdict_id":   verdict.AIVerdictID,
		}); err != nil {
			return fmt.Errorf("logging verdict: %w", err)
		}

		claim.Status = entities.StatusPublished
		claim.HumanVerdictID = verdict.ID
		claim.PublishedAt = &publishedAt
		published = claim
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.log.Info("verdict published", "claim_id", published.ID, "verdict_id", verdict.ID, "verdict", verdict.Verdict)
	f.afterPublish(published, verdict)
	return verdict, nil
}

func (f *VerdictFinalizer) afterPublish(claim *entities.Claim, verdict *entities.Verdict) {
	if f.notifier != nil {
		f.effects.Go("notify_verdict", func(ctx context.Context) error {
			return f.notifier.NotifyVerdict(ctx, claim, verdict)
		})
	}
	if f.trending != nil {
		f.effects.Go("trending_update", func(ctx context.Context) error {
			return f.trending.Evaluate(ctx, []string{claim.ID})
		})
	}
	if f.similarity != nil {
		f.effects.Go("unindex_claim", func(ctx context.Context) error {
			return f.similarity.Forget(ctx, claim.ID)
		})
	}
}

// closeOpenSession ends the claim's open review session, if any.
func closeOpenSession(ctx context.Context, db ports.RelationalDB, claimID, reason string, at time.Time) error {
	session, err := db.FindOpenSession(ctx, claimID)
	if err != nil {
		return fmt.Errorf("finding open session: %w", err)
	}
	if session == nil {
		return nil
	}
	endSession(session, reason, at)
	if err := db.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("closing session: %w", err)
	}
	return nil
}
