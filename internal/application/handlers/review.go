package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/services"
)

// ReviewHandler handles assignment, review sessions and review decisions.
type ReviewHandler struct {
	review *services.ReviewService
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(review *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{review: review}
}

// Assign gives the claim to checkerID, or to the least loaded reviewer when
// checkerID is empty.
func (h *ReviewHandler) Assign(ctx context.Context, claimID, checkerID string) (*entities.Claim, error) {
	if strings.TrimSpace(checkerID) == "" {
		return h.review.AutoAssign(ctx, claimID)
	}
	return h.review.Assign(ctx, claimID, checkerID)
}

// Unassign releases the claim held by checkerID.
func (h *ReviewHandler) Unassign(ctx context.Context, claimID, checkerID string) error {
	return h.review.Unassign(ctx, claimID, checkerID)
}

// StartSession opens a review session.
func (h *ReviewHandler) StartSession(ctx context.Context, claimID, checkerID string) (*entities.ReviewSession, error) {
	return h.review.StartSession(ctx, claimID, checkerID)
}

// EndSession closes a review session.
func (h *ReviewHandler) EndSession(ctx context.Context, sessionID, checkerID string) (*entities.ReviewSession, error) {
	return h.review.EndSession(ctx, sessionID, checkerID)
}

// DecisionRequest is a review decision with the action still a string.
type DecisionRequest struct {
	ClaimID     string
	CheckerID   string
	Action      string
	Verdict     string
	Explanation string
	Sources     []string
	Reason      string
}

// Decide applies a review decision.
func (h *ReviewHandler) Decide(ctx context.Context, req DecisionRequest) (*services.ReviewOutcome, error) {
	action, ok := services.ParseReviewAction(req.Action)
	if !ok {
		return nil, &entities.ValidationError{Field: "action", Reason: fmt.Sprintf("unknown review action %q", req.Action)}
	}
	return h.review.Review(ctx, services.ReviewRequest{
		ClaimID:       req.ClaimID,
		FactCheckerID: req.CheckerID,
		Action:        action,
		Verdict:       req.Verdict,
		Explanation:   req.Explanation,
		Sources:       req.Sources,
		Reason:        req.Reason,
	})
}

// Stats returns a reviewer's productivity figures.
func (h *ReviewHandler) Stats(ctx context.Context, checkerID string) (*entities.ReviewerStats, error) {
	return h.review.ReviewerStats(ctx, checkerID)
}

// ExpireSessions closes abandoned sessions and returns their claims to the queue.
func (h *ReviewHandler) ExpireSessions(ctx context.Context) (int, error) {
	return h.review.ExpireAbandonedSessions(ctx)
}
