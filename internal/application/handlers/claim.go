package handlers

import (
	"context"
	"fmt"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/services"
)

// ClaimHandler handles claim intake and claim queries.
type ClaimHandler struct {
	claims *services.ClaimService
}

// NewClaimHandler creates a new claim handler.
func NewClaimHandler(claims *services.ClaimService) *ClaimHandler {
	return &ClaimHandler{claims: claims}
}

// Submit takes in a new claim.
func (h *ClaimHandler) Submit(ctx context.Context, in services.SubmitInput) (*services.SubmitResult, error) {
	return h.claims.Submit(ctx, in)
}

// Show returns a claim with its verdicts and audit trail.
func (h *ClaimHandler) Show(ctx context.Context, id string) (*services.ClaimDetail, error) {
	return h.claims.Detail(ctx, id)
}

// ListOptions filters a claim listing. Status names are validated.
type ListOptions struct {
	Statuses     []string
	Category     string
	SubmitterID  string
	CheckerID    string
	TrendingOnly bool
	Limit        int
	Offset       int
}

// List returns claims newest first.
func (h *ClaimHandler) List(ctx context.Context, opts ListOptions) ([]*entities.Claim, error) {
	filter := entities.ClaimFilter{
		Category:     opts.Category,
		SubmitterID:  opts.SubmitterID,
		CheckerID:    opts.CheckerID,
		TrendingOnly: opts.TrendingOnly,
		Limit:        opts.Limit,
		Offset:       opts.Offset,
	}
	for _, s := range opts.Statuses {
		status, ok := entities.ParseClaimStatus(s)
		if !ok {
			return nil, &entities.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", s)}
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	return h.claims.List(ctx, filter)
}

// MarkRead records that the submitter has seen the verdict.
func (h *ClaimHandler) MarkRead(ctx context.Context, claimID, userID string) (*entities.Claim, error) {
	return h.claims.MarkVerdictRead(ctx, claimID, userID)
}

// Reject closes a claim without a verdict.
func (h *ClaimHandler) Reject(ctx context.Context, claimID, actorID, reason string) (*entities.Claim, error) {
	return h.claims.Reject(ctx, claimID, actorID, reason)
}

// ReReview sends a published claim back to human review.
func (h *ClaimHandler) ReReview(ctx context.Context, claimID, adminID, reason string) (*entities.Claim, error) {
	return h.claims.RequestReReview(ctx, claimID, adminID, reason)
}
