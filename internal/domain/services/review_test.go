package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

func TestReviewService_Assign(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.putClaim(t, "c1", entities.StatusHumanReview)
	h.putClaim(t, "pending", entities.StatusPending)

	claim, err := h.review.Assign(ctx, "c1", checkerID)
	require.NoError(t, err)
	assert.Equal(t, checkerID, claim.AssignedFactCheckerID)
	assert.Equal(t, checkerID, h.db.Claim("c1").AssignedFactCheckerID)
	assert.Contains(t, h.db.AuditActions("c1"), entities.AuditClaimAssigned)

	// Re-assigning to the holder is a no-op; anyone else must wait.
	_, err = h.review.Assign(ctx, "c1", checkerID)
	require.NoError(t, err)
	_, err = h.review.Assign(ctx, "c1", checker2ID)
	assert.ErrorIs(t, err, entities.ErrValidation)
	assert.Equal(t, checkerID, h.db.Claim("c1").AssignedFactCheckerID)

	_, err = h.review.Assign(ctx, "pending", checkerID)
	assert.ErrorIs(t, err, entities.ErrValidation)

	_, err = h.review.Assign(ctx, "c1", submitterID)
	assert.ErrorIs(t, err, entities.ErrValidation)

	h.effects.Wait()
	notes, err := h.notifier.ListForUser(ctx, checkerID, false, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, entities.NotificationClaimAssigned, notes[0].Type)
}

func TestReviewService_UnassignThenReassign(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.putClaim(t, "c1", entities.StatusHumanReview)

	_, err := h.review.Assign(ctx, "c1", checkerID)
	require.NoError(t, err)

	assert.ErrorIs(t, h.review.Unassign(ctx, "c1", checker2ID), entities.ErrValidation)
	require.NoError(t, h.review.Unassign(ctx, "c1", checkerID))
	assert.Empty(t, h.db.Claim("c1").AssignedFactCheckerID)

	_, err = h.review.Assign(ctx, "c1", checker2ID)
	require.NoError(t, err)
	assert.Equal(t, checker2ID, h.db.Claim("c1").AssignedFactCheckerID)
}

func TestReviewService_ReassignToSameCheckerNotifiesAgain(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.putClaim(t, "c1", entities.StatusHumanReview)

	_, err := h.review.Assign(ctx, "c1", checkerID)
	require.NoError(t, err)
	require.NoError(t, h.review.Unassign(ctx, "c1", checkerID))
	_, err = h.review.Assign(ctx, "c1", checkerID)
	require.NoError(t, err)
	h.effects.Wait()

	notes, err := h.notifier.ListForUser(ctx, checkerID, false, 0)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	ids := []string{notes[0].EntityID, notes[1].EntityID}
	assert.ElementsMatch(t, []string{"c1/1", "c1/2"}, ids)
}

func TestReviewService_AutoAssign(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.putClaim(t, "busy", entities.StatusHumanReview)
	h.putClaim(t, "c1", entities.StatusHumanReview)

	_, err := h.review.Assign(ctx, "busy", checkerID)
	require.NoError(t, err)

	claim, err := h.review.AutoAssign(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, checker2ID, claim.AssignedFactCheckerID)
}

func TestReviewService_AutoAssignNoCheckers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.putClaim(t, "c1", entities.StatusHumanReview)

	for _, id := range []string{checkerID, checker2ID} {
		u, err := h.db.FindUserByID(ctx, id)
		require.NoError(t, err)
		u.Status = entities.UserSuspended
		require.NoError(t, h.db.SaveUser(ctx, u))
	}

	_, err := h.review.AutoAssign(ctx, "c1")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestReviewService_Sessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	freezeTime(t, start)
	h.putClaim(t, "c1", entities.StatusHumanReview)

	session, err := h.review.StartSession(ctx, "c1", checkerID)
	require.NoError(t, err)
	assert.True(t, session.IsOpen())
	claim := h.db.Claim("c1")
	assert.Equal(t, entities.StatusUnderReview, claim.Status)
	assert.Equal(t, checkerID, claim.AssignedFactCheckerID)

	again, err := h.review.StartSession(ctx, "c1", checkerID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, again.ID)

	_, err = h.review.StartSession(ctx, "c1", checker2ID)
	assert.ErrorIs(t, err, entities.ErrValidation)

	h.effects.Wait()
	timeNow = func() time.Time { return start.Add(90 * time.Second) }
	ended, err := h.review.EndSession(ctx, session.ID, checkerID)
	require.NoError(t, err)
	assert.False(t, ended.IsOpen())
	assert.Equal(t, int64(90), ended.DurationSeconds)
	assert.Equal(t, entities.SessionEndCompleted, ended.EndReason)

	claim = h.db.Claim("c1")
	assert.Equal(t, entities.StatusHumanReview, claim.Status)
	assert.Equal(t, checkerID, claim.AssignedFactCheckerID)

	_, err = h.review.EndSession(ctx, session.ID, checker2ID)
	assert.ErrorIs(t, err, entities.ErrNotFound)
	h.effects.Wait()
}

func TestReviewService_ApproveAI(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.putClaim(t, "c1", entities.StatusAIApproved)
	ai := h.putAIVerdict(t, "c1", entities.VerdictFalse, 0.88)

	_, err := h.review.StartSession(ctx, "c1", checkerID)
	require.NoError(t, err)

	out, err := h.review.Review(ctx, ReviewRequest{ClaimID: "c1", FactCheckerID: checkerID, Action: ActionApproveAI})
	require.NoError(t, err)
	h.effects.Wait()

	v := out.Verdict
	require.NotNil(t, v)
	assert.Equal(t, ai.Verdict, v.Verdict)
	assert.Equal(t, ai.Explanation, v.Explanation)
	assert.Equal(t, ai.Sources, v.Sources)
	assert.Equal(t, ai.ID, v.AIVerdictID)
	assert.Equal(t, checkerID, v.FactCheckerID)
	assert.True(t, v.IsFinal)

	claim := h.db.Claim("c1")
	assert.Equal(t, entities.StatusPublished, claim.Status)
	assert.Equal(t, v.ID, claim.HumanVerdictID)
	assert.Equal(t, ai.ID, claim.AIVerdictID)
	require.NotNil(t, claim.PublishedAt)

	open, err := h.db.FindOpenSession(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, open)

	notes, err := h.notifier.ListForUser(ctx, submitterID, false, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, entities.NotificationVerdictPublished, notes[0].Type)
	assert.Equal(t, v.ID, notes[0].EntityID)
	assert.Contains(t, h.index.RemovedIDs(), "c1")

	// A published claim cannot be finalized twice.
	_, err = h.review.Review(ctx, ReviewRequest{ClaimID: "c1", FactCheckerID: checkerID, Action: ActionApproveAI})
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)
}

func TestReviewService_ApproveAIWithoutVerdict(t *testing.T) {
	h := newHarness(t)
	h.putClaim(t, "c1", entities.StatusHumanReview)

	_, err := h.review.Review(context.Background(), ReviewRequest{ClaimID: "c1", FactCheckerID: checkerID, Action: ActionApproveAI})
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestReviewService_AuthorVerdict(t *testing.T) {
	base := ReviewRequest{
		ClaimID:       "c1",
		FactCheckerID: checkerID,
		Action:        ActionAuthorVerdict,
		Verdict:       "misleading",
		Explanation:   "The photo is real but was taken in 2015, not last week.",
		Sources:       []string{"https://archive.example.org/photo"},
	}

	tests := []struct {
		name    string
		mutate  func(r *ReviewRequest)
		status  entities.ClaimStatus
		wantErr error
	}{
		{"valid", func(r *ReviewRequest) {}, entities.StatusHumanReview, nil},
		{"from ai_approved", func(r *ReviewRequest) {}, entities.StatusAIApproved, nil},
		{"no sources", func(r *ReviewRequest) { r.Sources = []string{" "} }, entities.StatusHumanReview, entities.ErrValidation},
		{"short explanation", func(r *ReviewRequest) { r.Explanation = "Wrong." }, entities.StatusHumanReview, entities.ErrValidation},
		{"unknown verdict", func(r *ReviewRequest) { r.Verdict = "pants on fire" }, entities.StatusHumanReview, entities.ErrValidation},
		{"not a reviewer", func(r *ReviewRequest) { r.FactCheckerID = submitterID }, entities.StatusHumanReview, entities.ErrValidation},
		{"still pending", func(r *ReviewRequest) {}, entities.StatusPending, entities.ErrInvalidTransition},
		{"unknown action", func(r *ReviewRequest) { r.Action = "shrug" }, entities.StatusHumanReview, entities.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.putClaim(t, "c1", tt.status)
			req := base
			tt.mutate(&req)

			out, err := h.review.Review(context.Background(), req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.status, h.db.Claim("c1").Status)
				assert.Empty(t, h.db.Verdicts)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, entities.VerdictMisleading, out.Verdict.Verdict)
			assert.Empty(t, out.Verdict.AIVerdictID)
			assert.Equal(t, entities.StatusPublished, out.Claim.Status)
		})
	}
}

func TestReviewService_AssignedToSomeoneElse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.putClaim(t, "c1", entities.StatusHumanReview)
	_, err := h.review.Assign(ctx, "c1", checkerID)
	require.NoError(t, err)

	_, err = h.review.Review(ctx, ReviewRequest{
		ClaimID:       "c1",
		FactCheckerID: checker2ID,
		Action:        ActionAuthorVerdict,
		Verdict:       "false",
		Explanation:   "Contradicted by the official register.",
		Sources:       []string{"https://register.example.org"},
	})
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestReviewService_RejectAction(t *testing.T) {
	h := newHarness(t)
	h.putClaim(t, "c1", entities.StatusUnderReview)

	out, err := h.review.Review(context.Background(), ReviewRequest{ClaimID: "c1", FactCheckerID: checkerID, Action: ActionReject, Reason: "not a factual claim"})
	require.NoError(t, err)
	assert.Equal(t, entities.StatusRejected, out.Claim.Status)
	assert.Nil(t, out.Verdict)
}

func TestReviewService_Escalate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.putClaim(t, "c1", entities.StatusHumanReview)

	session, err := h.review.StartSession(ctx, "c1", checkerID)
	require.NoError(t, err)

	_, err = h.review.Review(ctx, ReviewRequest{ClaimID: "c1", FactCheckerID: checker2ID, Action: ActionEscalate})
	assert.ErrorIs(t, err, entities.ErrValidation)

	out, err := h.review.Review(ctx, ReviewRequest{ClaimID: "c1", FactCheckerID: checkerID, Action: ActionEscalate, Reason: "needs a health specialist"})
	require.NoError(t, err)
	assert.Equal(t, entities.StatusHumanReview, out.Claim.Status)
	assert.Empty(t, out.Claim.AssignedFactCheckerID)

	closed, err := h.db.FindSessionByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.SessionEndEscalated, closed.EndReason)
}

func TestReviewService_ExpireAbandonedSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	freezeTime(t, start)
	h.putClaim(t, "stale", entities.StatusHumanReview)
	h.putClaim(t, "fresh", entities.StatusHumanReview)

	stale, err := h.review.StartSession(ctx, "stale", checkerID)
	require.NoError(t, err)

	h.effects.Wait()
	timeNow = func() time.Time { return start.Add(3 * time.Hour) }
	_, err = h.review.StartSession(ctx, "fresh", checker2ID)
	require.NoError(t, err)

	h.effects.Wait()
	timeNow = func() time.Time { return start.Add(DefaultSessionTTL + time.Minute) }
	n, err := h.review.ExpireAbandonedSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	claim := h.db.Claim("stale")
	assert.Equal(t, entities.StatusHumanReview, claim.Status)
	assert.Empty(t, claim.AssignedFactCheckerID)
	assert.Contains(t, h.db.AuditActions("stale"), entities.AuditSessionExpired)

	expired, err := h.db.FindSessionByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.SessionEndExpired, expired.EndReason)

	assert.Equal(t, entities.StatusUnderReview, h.db.Claim("fresh").Status)
	h.effects.Wait()
}

func TestReviewService_ReviewerStats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	freezeTime(t, start)
	h.putClaim(t, "c1", entities.StatusHumanReview)
	h.putClaim(t, "c2", entities.StatusHumanReview)

	_, err := h.review.StartSession(ctx, "c1", checkerID)
	require.NoError(t, err)
	h.effects.Wait()
	timeNow = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = h.review.Review(ctx, ReviewRequest{
		ClaimID:       "c1",
		FactCheckerID: checkerID,
		Action:        ActionAuthorVerdict,
		Verdict:       "true",
		Explanation:   "Matches the published budget figures.",
		Sources:       []string{"https://budget.example.org"},
	})
	require.NoError(t, err)

	_, err = h.review.StartSession(ctx, "c2", checkerID)
	require.NoError(t, err)

	stats, err := h.review.ReviewerStats(ctx, checkerID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Sessions)
	assert.Equal(t, int64(120), stats.TotalSeconds)
	assert.InDelta(t, 120, stats.AverageSeconds, 1e-9)
	assert.Equal(t, 1, stats.VerdictsAuthored)
	assert.Equal(t, 1, stats.ActiveAssignments)
	h.effects.Wait()
}

func TestParseReviewAction(t *testing.T) {
	a, ok := ParseReviewAction(" APPROVE_AI ")
	assert.True(t, ok)
	assert.Equal(t, ActionApproveAI, a)

	_, ok = ParseReviewAction("delete")
	assert.False(t, ok)
}
