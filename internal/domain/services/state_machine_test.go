package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

func TestStateMachine_Transition(t *testing.T) {
	tests := []struct {
		name    string
		from    entities.ClaimStatus
		to      entities.ClaimStatus
		wantErr bool
	}{
		{"pending to ai_processing", entities.StatusPending, entities.StatusAIProcessing, false},
		{"ai_processing to ai_approved", entities.StatusAIProcessing, entities.StatusAIApproved, false},
		{"ai_processing to human_review", entities.StatusAIProcessing, entities.StatusHumanReview, false},
		{"ai_processing back to pending", entities.StatusAIProcessing, entities.StatusPending, false},
		{"human_review to under_review", entities.StatusHumanReview, entities.StatusUnderReview, false},
		{"under_review to human_approved", entities.StatusUnderReview, entities.StatusHumanApproved, false},
		{"human_approved to published", entities.StatusHumanApproved, entities.StatusPublished, false},
		{"pending to rejected", entities.StatusPending, entities.StatusRejected, false},
		{"pending skips to published", entities.StatusPending, entities.StatusPublished, true},
		{"pending skips to ai_approved", entities.StatusPending, entities.StatusAIApproved, true},
		{"published to pending", entities.StatusPublished, entities.StatusPending, true},
		{"published to human_review without re-review", entities.StatusPublished, entities.StatusHumanReview, true},
		{"rejected to pending", entities.StatusRejected, entities.StatusPending, true},
		{"human_approved back to human_review", entities.StatusHumanApproved, entities.StatusHumanReview, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.putClaim(t, "c1", tt.from)

			claim, err := h.machine.Transition(context.Background(), "c1", tt.to, "tester")
			if tt.wantErr {
				require.ErrorIs(t, err, entities.ErrInvalidTransition)
				var terr *entities.InvalidTransitionError
				require.ErrorAs(t, err, &terr)
				assert.Equal(t, tt.from, terr.From)
				assert.Equal(t, tt.to, terr.To)
				assert.Equal(t, tt.from, h.db.Claim("c1").Status)
				assert.Empty(t, h.db.AuditActions("c1"))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, claim.Status)
			assert.Equal(t, tt.to, h.db.Claim("c1").Status)
			assert.Equal(t, []string{entities.AuditClaimTransition}, h.db.AuditActions("c1"))
		})
	}
}

func TestStateMachine_TransitionWritesAuditDetails(t *testing.T) {
	h := newHarness(t)
	h.putClaim(t, "c1", entities.StatusHumanReview)

	_, err := h.machine.TransitionWithReason(context.Background(), "c1", entities.StatusRejected, checkerID, "spam")
	require.NoError(t, err)

	entries, err := h.db.FindAuditLog(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "human_review", entries[0].Details["from"])
	assert.Equal(t, "rejected", entries[0].Details["to"])
	assert.Equal(t, checkerID, entries[0].Details["actor"])
	assert.Equal(t, "spam", entries[0].Details["reason"])
}

func TestStateMachine_TransitionMissingClaim(t *testing.T) {
	h := newHarness(t)

	_, err := h.machine.Transition(context.Background(), "missing", entities.StatusAIProcessing, "tester")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestStateMachine_ReReview(t *testing.T) {
	tests := []struct {
		name    string
		from    entities.ClaimStatus
		wantErr bool
	}{
		{"from published", entities.StatusPublished, false},
		{"from rejected", entities.StatusRejected, true},
		{"from human_review", entities.StatusHumanReview, true},
		{"from pending", entities.StatusPending, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.putClaim(t, "c1", tt.from)

			claim, err := h.machine.ReReview(context.Background(), "c1", adminID, "new evidence")
			if tt.wantErr {
				assert.ErrorIs(t, err, entities.ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, entities.StatusHumanReview, claim.Status)
		})
	}
}

func TestStatusGraph(t *testing.T) {
	for _, st := range []entities.ClaimStatus{entities.StatusPublished, entities.StatusRejected} {
		assert.True(t, st.IsTerminal(), st)
		for _, next := range entities.AllStatuses {
			assert.False(t, st.CanTransitionTo(next), "%s -> %s", st, next)
		}
	}

	// Every pre-publication status may be rejected.
	for _, st := range entities.PrePublicationStatuses() {
		assert.True(t, st.CanTransitionTo(entities.StatusRejected), st)
	}

	assert.ElementsMatch(t,
		[]entities.ClaimStatus{entities.StatusAIApproved, entities.StatusHumanReview, entities.StatusUnderReview},
		entities.SourcesFor(entities.StatusHumanApproved),
	)
}
