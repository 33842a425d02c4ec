package services

import (
	"context"
	"fmt"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/ports"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/metrics"
)

// StateMachine owns claim status changes. Every move is validated against
// the transition graph, applied as a compare-and-set and written to the
// audit log.
type StateMachine struct {
	relationalDB ports.RelationalDB
	metrics      *metrics.Metrics
}

// NewStateMachine creates a new StateMachine.
func NewStateMachine(relationalDB ports.RelationalDB, m *metrics.Metrics) *StateMachine {
	return &StateMachine{relationalDB: relationalDB, metrics: m}
}

// Transition moves claim id to `to`. It fails with InvalidTransitionError when
// the current status has no edge to `to`, or when another writer changed the
// status first.
func (m *StateMachine) Transition(ctx context.Context, id string, to entities.ClaimStatus, actor string) (*entities.Claim, error) {
	claim, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claim.Status.CanTransitionTo(to) {
		return nil, &entities.InvalidTransitionError{ClaimID: id, From: claim.Status, To: to}
	}
	return m.move(ctx, claim, to, actor, nil)
}

// TransitionWithReason is Transition with a reason recorded in the audit log.
func (m *StateMachine) TransitionWithReason(ctx context.Context, id string, to entities.ClaimStatus, actor, reason string) (*entities.Claim, error) {
	claim, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claim.Status.CanTransitionTo(to) {
		return nil, &entities.InvalidTransitionError{ClaimID: id, From: claim.Status, To: to}
	}
	return m.move(ctx, claim, to, actor, map[string]any{"reason": reason})
}

// ReReview reopens a published claim for human review. This is the only
// edge leaving a terminal status.
func (m *StateMachine) ReReview(ctx context.Context, id, actor, reason string) (*entities.Claim, error) {
	claim, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if claim.Status != entities.ReReviewFrom {
		return nil, &entities.InvalidTransitionError{ClaimID: id, From: claim.Status, To: entities.StatusHumanReview}
	}
	return m.move(ctx, claim, entities.StatusHumanReview, actor, map[string]any{"rereview": true, "reason": reason})
}

func (m *StateMachine) load(ctx context.Context, id string) (*entities.Claim, error) {
	claim, err := m.relationalDB.FindClaimByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding claim: %w", err)
	}
	if claim == nil {
		return nil, &entities.NotFoundError{Entity: "claim", ID: id}
	}
	return claim, nil
}

// move updates the status and writes the audit entry in one transaction,
// joining the caller's when there is one.
func (m *StateMachine) move(ctx context.Context, claim *entities.Claim, to entities.ClaimStatus, actor string, extra map[string]any) (*entities.Claim, error) {
	from := claim.Status
	err := m.relationalDB.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := m.relationalDB.TransitionClaim(ctx, claim.ID, []entities.ClaimStatus{from}, to)
		if err != nil {
			return fmt.Errorf("transitioning claim: %w", err)
		}
		if !ok {
			current := from
			if fresh, ferr := m.relationalDB.FindClaimByID(ctx, claim.ID); ferr == nil && fresh != nil {
				current = fresh.Status
			}
			return &entities.InvalidTransitionError{ClaimID: claim.ID, From: current, To: to}
		}

		details := map[string]any{"from": string(from), "to": string(to), "actor": actor}
		for k, v := range extra {
			details[k] = v
		}
		if err := m.relationalDB.LogAction(ctx, entities.AuditClaimTransition, claim.ID, details); err != nil {
			return fmt.Errorf("logging transition: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.metrics.IncTransition(string(from), string(to))

	claim.Status = to
	return claim, nil
}
