package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/mocks"
)

const (
	confidentFalse = `{"verdict":"false","confidence_score":0.91,"explanation":"The ministry denied it.","sources":["https://gov.example.org/statement"]}`
	unsureTrue     = `{"verdict":"true","confidence_score":0.4,"explanation":"Some support, weak evidence.","sources":[]}`
)

func TestAIProcessor_ConfidenceRouting(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		wantStatus entities.ClaimStatus
		wantMode   entities.ParseMode
	}{
		{"confident verdict is ai approved", confidentFalse, entities.StatusAIApproved, entities.ParseStrict},
		{"low confidence goes to humans", unsureTrue, entities.StatusHumanReview, entities.ParseStrict},
		{"malformed output goes to humans", "I believe this is false.", entities.StatusHumanReview, entities.ParseFallbackMalformed},
		{"unexpected label goes to humans", `{"verdict":"bogus","confidence_score":0.99}`, entities.StatusHumanReview, entities.ParseFallbackUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			claim := h.putClaim(t, "c1", entities.StatusPending)
			h.llm.Replies = []mocks.LLMReply{{Content: tt.reply}}

			res, err := h.processor.Process(ctx, entities.AIVerifyPayload{ClaimID: "c1", ClaimText: claim.Text()})
			require.NoError(t, err)
			assert.Equal(t, ProcessOutcome(tt.wantStatus), res.Outcome)

			stored := h.db.Claim("c1")
			assert.Equal(t, tt.wantStatus, stored.Status)
			require.NotEmpty(t, stored.AIVerdictID)

			verdict, err := h.db.FindAIVerdictByID(ctx, stored.AIVerdictID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, verdict.ParseMode)
			assert.Equal(t, "gpt-test", verdict.ModelVersion)
			assert.Equal(t, claim.Text(), h.llm.LastText)
			assert.False(t, h.locker.Held(LockKey("c1")))

			actions := h.db.AuditActions("c1")
			if tt.wantMode == entities.ParseStrict {
				assert.NotContains(t, actions, entities.AuditAIFallback)
			} else {
				assert.Contains(t, actions, entities.AuditAIFallback)
				assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.ParseFallbacks.WithLabelValues(string(tt.wantMode))), 1e-9)
			}
		})
	}
}

func TestAIProcessor_FailureRollsBackThenRetrySucceeds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.putClaim(t, "c1", entities.StatusPending)
	h.llm.Replies = []mocks.LLMReply{
		{Err: errors.New("connection refused")},
		{Content: confidentFalse},
	}

	_, err := h.processor.Process(ctx, entities.AIVerifyPayload{ClaimID: "c1"})
	require.ErrorIs(t, err, entities.ErrExternalService)
	var ext *entities.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.True(t, ext.Retryable())

	stored := h.db.Claim("c1")
	assert.Equal(t, entities.StatusPending, stored.Status)
	assert.Empty(t, stored.AIVerdictID)
	assert.False(t, h.locker.Held(LockKey("c1")))

	res, err := h.processor.Process(ctx, entities.AIVerifyPayload{ClaimID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAIApproved, res.Outcome)
	assert.Equal(t, entities.StatusAIApproved, h.db.Claim("c1").Status)
	assert.Equal(t, 2, h.llm.CallCount())
}

func TestAIProcessor_EmptyResponseRollsBack(t *testing.T) {
	h := newHarness(t)
	h.putClaim(t, "c1", entities.StatusPending)
	h.llm.Replies = []mocks.LLMReply{{Content: "  "}}

	_, err := h.processor.Process(context.Background(), entities.AIVerifyPayload{ClaimID: "c1"})
	var ext *entities.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, entities.ExternalMalformed, ext.Kind)
	assert.Equal(t, entities.StatusPending, h.db.Claim("c1").Status)
}

func TestAIProcessor_LockHeld(t *testing.T) {
	h := newHarness(t)
	h.putClaim(t, "c1", entities.StatusPending)
	h.locker.Hold(LockKey("c1"))

	_, err := h.processor.Process(context.Background(), entities.AIVerifyPayload{ClaimID: "c1"})
	require.ErrorIs(t, err, entities.ErrLockHeld)
	assert.Equal(t, entities.StatusPending, h.db.Claim("c1").Status)
	assert.Equal(t, 0, h.llm.CallCount())
}

func TestAIProcessor_SkipsClaimsPastProcessing(t *testing.T) {
	for _, status := range []entities.ClaimStatus{
		entities.StatusAIApproved,
		entities.StatusHumanReview,
		entities.StatusUnderReview,
		entities.StatusPublished,
		entities.StatusRejected,
	} {
		t.Run(string(status), func(t *testing.T) {
			h := newHarness(t)
			h.putClaim(t, "c1", status)
			h.llm.Replies = []mocks.LLMReply{{Content: confidentFalse}}

			res, err := h.processor.Process(context.Background(), entities.AIVerifyPayload{ClaimID: "c1"})
			require.NoError(t, err)
			assert.Equal(t, OutcomeSkipped, res.Outcome)
			assert.Equal(t, status, h.db.Claim("c1").Status)
			assert.Equal(t, 0, h.llm.CallCount())
		})
	}
}

func TestAIProcessor_ResumesStaleProcessing(t *testing.T) {
	h := newHarness(t)
	h.putClaim(t, "c1", entities.StatusAIProcessing)
	h.llm.Replies = []mocks.LLMReply{{Content: confidentFalse}}

	res, err := h.processor.Process(context.Background(), entities.AIVerifyPayload{ClaimID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAIApproved, res.Outcome)
}

func TestAIProcessor_ForcedRerun(t *testing.T) {
	t.Run("demotes ai_approved on low confidence", func(t *testing.T) {
		h := newHarness(t)
		h.putClaim(t, "c1", entities.StatusAIApproved)
		h.llm.Replies = []mocks.LLMReply{{Content: unsureTrue}}

		res, err := h.processor.Process(context.Background(), entities.AIVerifyPayload{ClaimID: "c1", Force: true})
		require.NoError(t, err)
		assert.Equal(t, OutcomeHumanReview, res.Outcome)
		assert.Equal(t, entities.StatusHumanReview, h.db.Claim("c1").Status)
	})

	t.Run("never promotes human_review", func(t *testing.T) {
		h := newHarness(t)
		h.putClaim(t, "c1", entities.StatusHumanReview)
		h.llm.Replies = []mocks.LLMReply{{Content: confidentFalse}}

		res, err := h.processor.Process(context.Background(), entities.AIVerifyPayload{ClaimID: "c1", Force: true})
		require.NoError(t, err)
		assert.Equal(t, OutcomeHumanReview, res.Outcome)
		stored := h.db.Claim("c1")
		assert.Equal(t, entities.StatusHumanReview, stored.Status)
		assert.Equal(t, res.Verdict.ID, stored.AIVerdictID)
	})

	t.Run("failure leaves status alone", func(t *testing.T) {
		h := newHarness(t)
		h.putClaim(t, "c1", entities.StatusAIApproved)
		h.llm.Replies = []mocks.LLMReply{{Err: errors.New("timeout")}}

		_, err := h.processor.Process(context.Background(), entities.AIVerifyPayload{ClaimID: "c1", Force: true})
		require.Error(t, err)
		assert.Equal(t, entities.StatusAIApproved, h.db.Claim("c1").Status)
	})
}

func TestAIProcessor_MissingClaim(t *testing.T) {
	h := newHarness(t)

	_, err := h.processor.Process(context.Background(), entities.AIVerifyPayload{ClaimID: "missing"})
	assert.ErrorIs(t, err, entities.ErrNotFound)
	assert.False(t, h.locker.Held(LockKey("missing")))
}
