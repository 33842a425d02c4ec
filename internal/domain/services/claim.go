// Package services contains domain business logic.
package services

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/ports"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/logger"
)

// timeNow is stubbed in tests.
var timeNow = time.Now

const (
	MinTitleLength       = 10
	MaxTitleLength       = 500
	MaxDescriptionLength = 5000
)

// SubmitInput is a claim as submitted by a user.
type SubmitInput struct {
	SubmitterID string
	Title       string
	Description string
	Category    string
	MediaURL    string
	Priority    string
}

// SubmitResult reports what Submit did.
type SubmitResult struct {
	Claim *entities.Claim
	// MergedWith lists the open claims this submission duplicated.
	MergedWith []string
	// Enqueued is false when the AI job could not be queued; the claim is
	// picked up later by RequeueStale.
	Enqueued bool
}

// ClaimDetail is a claim with its verdict and audit history.
type ClaimDetail struct {
	Claim      *entities.Claim
	AIVerdicts []entities.AIVerdict
	Verdicts   []entities.Verdict
	Audit      []entities.AuditEntry
}

// ClaimService handles claim intake and the claim-level operations that
// are not part of review.
type ClaimService struct {
	relationalDB ports.RelationalDB
	queue        ports.JobQueue
	categories   *CategoryService
	similarity   *SimilarityDetector
	trending     *TrendingDetector
	notifier     *NotificationDispatcher
	machine      *StateMachine
	effects      *Effects
	log          *logger.Logger
	sanitizer    *bluemonday.Policy

	intake sync.Mutex
}

// NewClaimService creates a new ClaimService.
func NewClaimService(
	relationalDB ports.RelationalDB,
	queue ports.JobQueue,
	categories *CategoryService,
	similarity *SimilarityDetector,
	trending *TrendingDetector,
	notifier *NotificationDispatcher,
	machine *StateMachine,
	effects *Effects,
	log *logger.Logger,
) *ClaimService {
	return &ClaimService{
		relationalDB: relationalDB,
		queue:        queue,
		categories:   categories,
		similarity:   similarity,
		trending:     trending,
		notifier:     notifier,
		machine:      machine,
		effects:      effects,
		log:          log,
		sanitizer:    bluemonday.StrictPolicy(),
	}
}

// Submit validates and stores a new claim, merges it with open duplicates
// and queues it for AI verification.
func (s *ClaimService) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	claim, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}

	sem := s.similarity.Semantic(ctx, claim)

	// The duplicate search and the count update must not interleave with
	// another submission, or concurrent duplicates lose increments.
	s.intake.Lock()
	var (
		match     *MatchResult
		mergedIDs []string
	)
	err = s.relationalDB.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		match, err = s.similarity.MatchWith(ctx, claim, sem)
		if err != nil {
			return fmt.Errorf("searching duplicates: %w", err)
		}
		mergedIDs = make([]string, len(match.Matches))
		for i, m := range match.Matches {
			mergedIDs[i] = m.ID
		}
		claim.SubmissionCount = len(mergedIDs) + 1

		if len(mergedIDs) > 0 {
			if err := s.relationalDB.IncrementSubmissionCounts(ctx, mergedIDs, 1); err != nil {
				return fmt.Errorf("incrementing submission counts: %w", err)
			}
		}
		if err := s.relationalDB.SaveClaim(ctx, claim); err != nil {
			return fmt.Errorf("saving claim: %w", err)
		}
		if err := s.relationalDB.LogAction(ctx, entities.AuditClaimSubmitted, claim.ID, map[string]any{
			"submitter_id": claim.SubmitterID,
			"merged_with":  mergedIDs,
		}); err != nil {
			return fmt.Errorf("logging submission: %w", err)
		}
		for _, id := range mergedIDs {
			if err := s.relationalDB.LogAction(ctx, entities.AuditClaimMerged, id, map[string]any{
				"duplicate_id": claim.ID,
			}); err != nil {
				return fmt.Errorf("logging merge: %w", err)
			}
		}
		return nil
	})
	s.intake.Unlock()
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{Claim: claim, MergedWith: mergedIDs}
	result.Enqueued = s.enqueue(ctx, claim)

	embedding := match.Embedding
	s.effects.Go("index_claim", func(ctx context.Context) error {
		return s.similarity.Index(ctx, claim, embedding)
	})
	if s.trending != nil {
		group := append(append([]string(nil), mergedIDs...), claim.ID)
		s.effects.Go("trending_update", func(ctx context.Context) error {
			return s.trending.Evaluate(ctx, group)
		})
	}

	s.log.Info("claim submitted",
		"claim_id", claim.ID,
		"category", claim.Category,
		"submission_count", claim.SubmissionCount,
		"enqueued", result.Enqueued,
	)
	return result, nil
}

func (s *ClaimService) build(ctx context.Context, in SubmitInput) (*entities.Claim, error) {
	if strings.TrimSpace(in.SubmitterID) == "" {
		return nil, &entities.ValidationError{Field: "submitter_id", Reason: "required"}
	}
	submitter, err := s.relationalDB.FindUserByID(ctx, in.SubmitterID)
	if err != nil {
		return nil, fmt.Errorf("finding submitter: %w", err)
	}
	if submitter == nil {
		return nil, &entities.NotFoundError{Entity: "user", ID: in.SubmitterID}
	}

	title := s.clean(in.Title)
	description := s.clean(in.Description)
	if n := utf8.RuneCountInString(title); n < MinTitleLength || n > MaxTitleLength {
		return nil, &entities.ValidationError{
			Field:  "title",
			Reason: fmt.Sprintf("must be %d-%d characters, got %d", MinTitleLength, MaxTitleLength, n),
		}
	}
	if n := utf8.RuneCountInString(description); n > MaxDescriptionLength {
		return nil, &entities.ValidationError{
			Field:  "description",
			Reason: fmt.Sprintf("must be at most %d characters, got %d", MaxDescriptionLength, n),
		}
	}

	priority, ok := entities.ParsePriority(in.Priority)
	if !ok {
		return nil, &entities.ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", in.Priority)}
	}

	mediaURL := strings.TrimSpace(in.MediaURL)
	if mediaURL != "" {
		u, err := url.Parse(mediaURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, &entities.ValidationError{Field: "media_url", Reason: "must be an http(s) URL"}
		}
	}

	category, err := s.categories.Resolve(ctx, in.Category)
	if err != nil {
		return nil, err
	}

	now := timeNow().UTC()
	return &entities.Claim{
		ID:              uuid.New().String(),
		SubmitterID:     in.SubmitterID,
		Title:           title,
		Description:     description,
		Category:        category.Name,
		MediaURL:        mediaURL,
		Status:          entities.StatusPending,
		Priority:        priority,
		SubmissionCount: 1,
		SimilarityHash:  SimilarityHash(title),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// clean strips markup and collapses whitespace.
func (s *ClaimService) clean(in string) string {
	out := html.UnescapeString(s.sanitizer.Sanitize(in))
	return strings.Join(strings.Fields(out), " ")
}

func (s *ClaimService) enqueue(ctx context.Context, claim *entities.Claim) bool {
	job, err := entities.NewAIVerifyJob(entities.AIVerifyPayload{
		ClaimID:     claim.ID,
		ClaimText:   claim.Text(),
		SubmitterID: claim.SubmitterID,
	})
	if err == nil {
		err = s.queue.Enqueue(ctx, job)
	}
	if err != nil {
		s.log.Warn("enqueueing ai_verify job failed", "claim_id", claim.ID, "error", err)
		return false
	}
	return true
}

// Get returns a claim by ID.
func (s *ClaimService) Get(ctx context.Context, id string) (*entities.Claim, error) {
	claim, err := s.relationalDB.FindClaimByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding claim: %w", err)
	}
	if claim == nil {
		return nil, &entities.NotFoundError{Entity: "claim", ID: id}
	}
	return claim, nil
}

// Detail returns a claim with its verdicts and audit trail.
func (s *ClaimService) Detail(ctx context.Context, id string) (*ClaimDetail, error) {
	claim, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	aiVerdicts, err := s.relationalDB.FindAIVerdictsByClaim(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding ai verdicts: %w", err)
	}
	verdicts, err := s.relationalDB.FindVerdictsByClaim(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding verdicts: %w", err)
	}
	audit, err := s.relationalDB.FindAuditLog(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding audit log: %w", err)
	}
	return &ClaimDetail{Claim: claim, AIVerdicts: aiVerdicts, Verdicts: verdicts, Audit: audit}, nil
}

// List returns claims matching filter, newest first.
func (s *ClaimService) List(ctx context.Context, filter entities.ClaimFilter) ([]*entities.Claim, error) {
	return s.relationalDB.ListClaims(ctx, filter)
}

// MarkVerdictRead records that the submitter has seen the published verdict.
// Repeated calls leave the first read time in place and succeed.
func (s *ClaimService) MarkVerdictRead(ctx context.Context, claimID, userID string) (*entities.Claim, error) {
	claim, err := s.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.SubmitterID != userID {
		return nil, &entities.ValidationError{Field: "user_id", Reason: "only the submitter can mark the verdict read"}
	}
	if claim.HumanVerdictID == "" {
		return nil, &entities.ValidationError{Field: "claim_id", Reason: "claim has no published verdict"}
	}
	if _, err := s.relationalDB.MarkClaimVerdictRead(ctx, claimID, timeNow().UTC()); err != nil {
		return nil, fmt.Errorf("marking verdict read: %w", err)
	}
	return s.Get(ctx, claimID)
}

// Reject moves a pre-publication claim to rejected and tells the submitter.
func (s *ClaimService) Reject(ctx context.Context, claimID, actorID, reason string) (*entities.Claim, error) {
	if err := requireReviewer(ctx, s.relationalDB, actorID); err != nil {
		return nil, err
	}

	var rejected *entities.Claim
	err := s.relationalDB.WithinTx(ctx, func(ctx context.Context) error {
		claim, err := s.machine.TransitionWithReason(ctx, claimID, entities.StatusRejected, actorID, reason)
		if err != nil {
			return err
		}
		if err := closeOpenSession(ctx, s.relationalDB, claimID, entities.SessionEndCompleted, timeNow().UTC()); err != nil {
			return err
		}
		rejected = claim
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.effects.Go("notify_rejection", func(ctx context.Context) error {
		return s.notifier.NotifyRejection(ctx, rejected, reason)
	})
	s.effects.Go("unindex_claim", func(ctx context.Context) error {
		return s.similarity.Forget(ctx, rejected.ID)
	})
	s.log.Info("claim rejected", "claim_id", claimID, "actor", actorID)
	return rejected, nil
}

// RequestReReview reopens a published claim. The human verdict pointer is
// cleared but the verdict row is kept; the claim returns to the review
// queue unassigned.
func (s *ClaimService) RequestReReview(ctx context.Context, claimID, adminID, reason string) (*entities.Claim, error) {
	if err := requireAdmin(ctx, s.relationalDB, adminID); err != nil {
		return nil, err
	}

	var reopened *entities.Claim
	err := s.relationalDB.WithinTx(ctx, func(ctx context.Context) error {
		claim, err := s.machine.ReReview(ctx, claimID, adminID, reason)
		if err != nil {
			return err
		}
		if err := s.relationalDB.SetClaimHumanVerdict(ctx, claimID, "", nil); err != nil {
			return fmt.Errorf("clearing verdict pointer: %w", err)
		}
		if err := s.relationalDB.ResetClaimVerdictRead(ctx, claimID); err != nil {
			return fmt.Errorf("resetting verdict read: %w", err)
		}
		if claim.AssignedFactCheckerID != "" {
			if _, err := s.relationalDB.UnassignClaim(ctx, claimID, claim.AssignedFactCheckerID); err != nil {
				return fmt.Errorf("clearing assignment: %w", err)
			}
		}
		claim.HumanVerdictID = ""
		claim.PublishedAt = nil
		claim.VerdictReadAt = nil
		claim.VerdictNotified = false
		claim.AssignedFactCheckerID = ""
		reopened = claim
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.effects.Go("index_claim", func(ctx context.Context) error {
		return s.similarity.Index(ctx, reopened, nil)
	})
	s.log.Info("claim reopened for review", "claim_id", claimID, "admin_id", adminID)
	return reopened, nil
}

// RequeueStale re-enqueues claims that have sat in pending or ai_processing
// for longer than olderThan. Duplicate jobs are harmless because processing
// skips claims that have moved on.
func (s *ClaimService) RequeueStale(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := s.relationalDB.ListClaims(ctx, entities.ClaimFilter{
		Statuses:  []entities.ClaimStatus{entities.StatusPending, entities.StatusAIProcessing},
		UpdatedTo: timeNow().UTC().Add(-olderThan),
	})
	if err != nil {
		return 0, fmt.Errorf("listing stale claims: %w", err)
	}
	n := 0
	for _, c := range stale {
		if s.enqueue(ctx, c) {
			n++
		}
	}
	if n > 0 {
		s.log.Info("requeued stale claims", "count", n)
	}
	return n, nil
}

func requireReviewer(ctx context.Context, db ports.RelationalDB, userID string) error {
	user, err := db.FindUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("finding reviewer: %w", err)
	}
	if user == nil {
		return &entities.NotFoundError{Entity: "user", ID: userID}
	}
	if !user.CanReview() {
		return &entities.ValidationError{Field: "user_id", Reason: "user is not an active fact-checker"}
	}
	return nil
}

func requireAdmin(ctx context.Context, db ports.RelationalDB, userID string) error {
	user, err := db.FindUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("finding admin: %w", err)
	}
	if user == nil {
		return &entities.NotFoundError{Entity: "user", ID: userID}
	}
	if user.Role != entities.RoleAdmin || user.Status != entities.UserActive {
		return &entities.ValidationError{Field: "user_id", Reason: "user is not an active admin"}
	}
	return nil
}
