package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/ports"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/logger"
)

const (
	// DefaultSessionTTL is how long a review session may stay open.
	DefaultSessionTTL = 4 * time.Hour
	// MinExplanationLength applies to independently authored verdicts.
	MinExplanationLength = 20
)

// ReviewAction is what a fact-checker does with a claim under review.
type ReviewAction string

const (
	ActionApproveAI     ReviewAction = "approve_ai"
	ActionAuthorVerdict ReviewAction = "author_verdict"
	ActionReject        ReviewAction = "reject"
	ActionEscalate      ReviewAction = "escalate"
)

// ParseReviewAction parses a review action name.
func ParseReviewAction(s string) (ReviewAction, bool) {
	switch a := ReviewAction(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionApproveAI, ActionAuthorVerdict, ActionReject, ActionEscalate:
		return a, true
	default:
		return "", false
	}
}

// ReviewRequest is one review decision.
type ReviewRequest struct {
	ClaimID       string
	FactCheckerID string
	Action        ReviewAction
	// Verdict, Explanation and Sources are used by author_verdict.
	Verdict     string
	Explanation string
	Sources     []string
	// Reason is used by reject and escalate.
	Reason string
}

// ReviewOutcome reports the effect of a review decision.
type ReviewOutcome struct {
	Action  ReviewAction
	Claim   *entities.Claim
	Verdict *entities.Verdict
}

// ReviewService assigns claims to fact-checkers, tracks review sessions and
// applies review decisions.
type ReviewService struct {
	relationalDB ports.RelationalDB
	machine      *StateMachine
	finalizer    *VerdictFinalizer
	claims       *ClaimService
	notifier     *NotificationDispatcher
	effects      *Effects
	sessionTTL   time.Duration
	log          *logger.Logger
}

// NewReviewService creates a new ReviewService.
func NewReviewService(
	relationalDB ports.RelationalDB,
	machine *StateMachine,
	finalizer *VerdictFinalizer,
	claims *ClaimService,
	notifier *NotificationDispatcher,
	effects *Effects,
	sessionTTL time.Duration,
	log *logger.Logger,
) *ReviewService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &ReviewService{
		relationalDB: relationalDB,
		machine:      machine,
		finalizer:    finalizer,
		claims:       claims,
		notifier:     notifier,
		effects:      effects,
		sessionTTL:   sessionTTL,
		log:          log,
	}
}

// assignableStatuses are the statuses a claim can be handed to a reviewer in.
var assignableStatuses = []entities.ClaimStatus{entities.StatusAIApproved, entities.StatusHumanReview}

// Assign gives a claim to a fact-checker. A claim holds at most one
// assignee; assigning a claim someone else holds fails until they are
// unassigned. Re-assigning to the current holder is a no-op.
func (s *ReviewService) Assign(ctx context.Context, claimID, factCheckerID string) (*entities.Claim, error) {
	if err := requireReviewer(ctx, s.relationalDB, factCheckerID); err != nil {
		return nil, err
	}

	var assigned *entities.Claim
	changed, attempt := false, 0
	err := s.relationalDB.WithinTx(ctx, func(ctx context.Context) error {
		claim, err := s.claims.Get(ctx, claimID)
		if err != nil {
			return err
		}
		if claim.AssignedFactCheckerID == factCheckerID {
			assigned = claim
			return nil
		}
		if !claim.Status.In(assignableStatuses...) {
			return &entities.ValidationError{Field: "claim_id", Reason: fmt.Sprintf("claim in status %s cannot be assigned", claim.Status)}
		}
		ok, err := s.relationalDB.AssignClaim(ctx, claimID, factCheckerID)
		if err != nil {
			return fmt.Errorf("assigning claim: %w", err)
		}
		if !ok {
			return &entities.ValidationError{Field: "claim_id", Reason: "claim is already assigned; unassign it first"}
		}
		if err := s.relationalDB.LogAction(ctx, entities.AuditClaimAssigned, claimID, map[string]any{
			"fact_checker_id": factCheckerID,
		}); err != nil {
			return fmt.Errorf("logging assignment: %w", err)
		}
		if attempt, err = s.assignmentCount(ctx, claimID); err != nil {
			return err
		}
		claim.AssignedFactCheckerID = factCheckerID
		assigned = claim
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.effects.Go("notify_assignment", func(ctx context.Context) error {
			return s.notifier.NotifyAssignment(ctx, assigned, factCheckerID, attempt)
		})
		s.log.Info("claim assigned", "claim_id", claimID, "fact_checker_id", factCheckerID)
	}
	return assigned, nil
}

// assignmentCount is the number of times the claim has been assigned.
func (s *ReviewService) assignmentCount(ctx context.Context, claimID string) (int, error) {
	entries, err := s.relationalDB.FindAuditLog(ctx, claimID)
	if err != nil {
		return 0, fmt.Errorf("finding audit log: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.Action == entities.AuditClaimAssigned {
			n++
		}
	}
	return n, nil
}

// AutoAssign gives the claim to the active fact-checker with the fewest
// open assignments. Ties go to the lowest ID.
func (s *ReviewService) AutoAssign(ctx context.Context, claimID string) (*entities.Claim, error) {
	checkers, err := s.relationalDB.ListUsersByRole(ctx, entities.RoleFactChecker)
	if err != nil {
		return nil, fmt.Errorf("listing fact-checkers: %w", err)
	}

	best, bestLoad := "", -1
	for _, c := range checkers {
		if !c.CanReview() {
			continue
		}
		load, err := s.relationalDB.CountActiveAssignments(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("counting assignments: %w", err)
		}
		if bestLoad < 0 || load < bestLoad {
			best, bestLoad = c.ID, load
		}
	}
	if best == "" {
		return nil, &entities.NotFoundError{Entity: "fact_checker", ID: "available"}
	}
	return s.Assign(ctx, claimID, best)
}

// Unassign releases a claim held by factCheckerID. A claim under active
// review goes back to the human review queue and its session is closed.
func (s *ReviewService) Unassign(ctx context.Context, claimID, factCheckerID string) error {
	return s.relationalDB.WithinTx(ctx, func(ctx context.Context) error {
		claim, err := s.claims.Get(ctx, claimID)
		if err != nil {
			return err
		}
		return s.release(ctx, claim, factCheckerID, entities.SessionEndEscalated)
	})
}

// release clears the assignment, closes any open session and returns an
// under_review claim to human_review. Must run inside a transaction.
func (s *ReviewService) release(ctx context.Context, claim *entities.Claim, factCheckerID, endReason string) error {
	ok, err := s.relationalDB.UnassignClaim(ctx, claim.ID, factCheckerID)
	if err != nil {
		return fmt.Errorf("unassigning claim: %w", err)
	}
	if !ok {
		return &entities.ValidationError{Field: "fact_checker_id", Reason: "claim is not assigned to this fact-checker"}
	}
	if err := closeOpenSession(ctx, s.relationalDB, claim.ID, endReason, timeNow().UTC()); err != nil {
		return err
	}
	if claim.Status == entities.StatusUnderReview {
		if _, err := s.machine.Transition(ctx, claim.ID, entities.StatusHumanReview, factCheckerID); err != nil {
			return err
		}
	}
	if err := s.relationalDB.LogAction(ctx, entities.AuditClaimUnassigned, claim.ID, map[string]any{
		"fact_checker_id": factCheckerID,
		"reason":          endReason,
	}); err != nil {
		return fmt.Errorf("logging unassignment: %w", err)
	}
	return nil
}

// StartSession opens a timed review session. An unassigned claim is
// assigned to the caller first. Starting again while the caller's session
// is open returns that session.
func (s *ReviewService) StartSession(ctx context.Context, claimID, factCheckerID string) (*entities.ReviewSession, error) {
	claim, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.AssignedFactCheckerID == "" {
		if claim, err = s.Assign(ctx, claimID, factCheckerID); err != nil {
			return nil, err
		}
	} else if err := requireReviewer(ctx, s.relationalDB, factCheckerID); err != nil {
		return nil, err
	}
	if claim.AssignedFactCheckerID != factCheckerID {
		return nil, &entities.ValidationError{Field: "fact_checker_id", Reason: "claim is assigned to another fact-checker"}
	}

	var session *entities.ReviewSession
	err = s.relationalDB.WithinTx(ctx, func(ctx context.Context) error {
		open, err := s.relationalDB.FindOpenSession(ctx, claimID)
		if err != nil {
			return fmt.Errorf("finding open session: %w", err)
		}
		if open != nil {
			if open.FactCheckerID != factCheckerID {
				return &entities.ValidationError{Field: "claim_id", Reason: "claim has an open session for another fact-checker"}
			}
			session = open
			return nil
		}

		if claim.Status != entities.StatusUnderReview {
			if _, err := s.machine.Transition(ctx, claimID, entities.StatusUnderReview, factCheckerID); err != nil {
				return err
			}
		}
		session = &entities.ReviewSession{
			ID:            uuid.New().String(),
			ClaimID:       claimID,
			FactCheckerID: factCheckerID,
			StartedAt:     timeNow().UTC(),
		}
		if err := s.relationalDB.SaveSession(ctx, session); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// EndSession closes a session without a verdict. The claim goes back to the
// human review queue but stays assigned.
func (s *ReviewService) EndSession(ctx context.Context, sessionID, factCheckerID string) (*entities.ReviewSession, error) {
	var session *entities.ReviewSession
	err := s.relationalDB.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		session, err = s.relationalDB.FindSessionByID(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("finding session: %w", err)
		}
		if session == nil || session.FactCheckerID != factCheckerID {
			return &entities.NotFoundError{Entity: "review_session", ID: sessionID}
		}
		if !session.IsOpen() {
			return nil
		}
		endSession(session, entities.SessionEndCompleted, timeNow().UTC())
		if err := s.relationalDB.SaveSession(ctx, session); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}

		claim, err := s.claims.Get(ctx, session.ClaimID)
		if err != nil {
			return err
		}
		if claim.Status == entities.StatusUnderReview {
			if _, err := s.machine.Transition(ctx, claim.ID, entities.StatusHumanReview, factCheckerID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ExpireAbandonedSessions closes sessions open longer than the session TTL.
// Their claims return to human_review with the assignment cleared.
func (s *ReviewService) ExpireAbandonedSessions(ctx context.Context) (int, error) {
	now := timeNow().UTC()
	stale, err := s.relationalDB.FindOpenSessionsStartedBefore(ctx, now.Add(-s.sessionTTL))
	if err != nil {
		return 0, fmt.Errorf("finding abandoned sessions: %w", err)
	}

	expired := 0
	for i := range stale {
		session := stale[i]
		err := s.relationalDB.WithinTx(ctx, func(ctx context.Context) error {
			endSession(&session, entities.SessionEndExpired, now)
			if err := s.relationalDB.SaveSession(ctx, &session); err != nil {
				return fmt.Errorf("saving session: %w", err)
			}
			claim, err := s.claims.Get(ctx, session.ClaimID)
			if err != nil {
				return err
			}
			if claim.Status == entities.StatusUnderReview {
				if _, err := s.machine.Transition(ctx, claim.ID, entities.StatusHumanReview, "session_expiry"); err != nil {
					return err
				}
			}
			if claim.AssignedFactCheckerID == session.FactCheckerID {
				if _, err := s.relationalDB.UnassignClaim(ctx, claim.ID, session.FactCheckerID); err != nil {
					return fmt.Errorf("unassigning claim: %w", err)
				}
			}
			return s.relationalDB.LogAction(ctx, entities.AuditSessionExpired, claim.ID, map[string]any{
				"session_id":      session.ID,
				"fact_checker_id": session.FactCheckerID,
				"started_at":      session.StartedAt.Format(time.RFC3339),
			})
		})
		if err != nil {
			s.log.Error("expiring review session", "session_id", session.ID, "error", err)
			continue
		}
		s.log.Warn("review session expired", "session_id", session.ID, "claim_id", session.ClaimID)
		expired++
	}
	return expired, nil
}

func endSession(session *entities.ReviewSession, reason string, at time.Time) {
	ended := at
	session.EndedAt = &ended
	session.EndReason = reason
	if d := at.Sub(session.StartedAt); d > 0 {
		session.DurationSeconds = int64(d.Seconds())
	}
}

// Review applies one review decision to a claim.
func (s *ReviewService) Review(ctx context.Context, req ReviewRequest) (*ReviewOutcome, error) {
	if err := requireReviewer(ctx, s.relationalDB, req.FactCheckerID); err != nil {
		return nil, err
	}
	claim, err := s.claims.Get(ctx, req.ClaimID)
	if err != nil {
		return nil, err
	}
	if claim.AssignedFactCheckerID != "" && claim.AssignedFactCheckerID != req.FactCheckerID {
		return nil, &entities.ValidationError{Field: "fact_checker_id", Reason: "claim is assigned to another fact-checker"}
	}

	switch req.Action {
	case ActionApproveAI:
		return s.approveAI(ctx, claim, req)
	case ActionAuthorVerdict:
		return s.authorVerdict(ctx, claim, req)
	case ActionReject:
		rejected, err := s.claims.Reject(ctx, claim.ID, req.FactCheckerID, req.Reason)
		if err != nil {
			return nil, err
		}
		return &ReviewOutcome{Action: req.Action, Claim: rejected}, nil
	case ActionEscalate:
		return s.escalate(ctx, claim, req)
	default:
		return nil, &entities.ValidationError{Field: "action", Reason: fmt.Sprintf("unknown review action %q", req.Action)}
	}
}

func (s *ReviewService) approveAI(ctx context.Context, claim *entities.Claim, req ReviewRequest) (*ReviewOutcome, error) {
	if claim.AIVerdictID == "" {
		return nil, &entities.ValidationError{Field: "claim_id", Reason: "claim has no AI verdict to approve"}
	}
	ai, err := s.relationalDB.FindAIVerdictByID(ctx, claim.AIVerdictID)
	if err != nil {
		return nil, fmt.Errorf("finding ai verdict: %w", err)
	}
	if ai == nil {
		return nil, &entities.NotFoundError{Entity: "ai_verdict", ID: claim.AIVerdictID}
	}

	verdict, err := s.finalizer.Finalize(ctx, VerdictDraft{
		ClaimID:       claim.ID,
		FactCheckerID: req.FactCheckerID,
		Verdict:       ai.Verdict,
		Explanation:   ai.Explanation,
		Sources:       append([]string(nil), ai.Sources...),
		AIVerdictID:   ai.ID,
	})
	if err != nil {
		return nil, err
	}
	return s.outcome(ctx, req.Action, claim.ID, verdict)
}

func (s *ReviewService) authorVerdict(ctx context.Context, claim *entities.Claim, req ReviewRequest) (*ReviewOutcome, error) {
	label, ok := entities.ParseVerdictLabel(req.Verdict)
	if !ok {
		return nil, &entities.ValidationError{Field: "verdict", Reason: fmt.Sprintf("unknown verdict %q", req.Verdict)}
	}
	sources := cleanSources(req.Sources)
	if len(sources) == 0 {
		return nil, &entities.ValidationError{Field: "sources", Reason: "at least one evidence source is required"}
	}
	explanation := strings.TrimSpace(req.Explanation)
	if utf8.RuneCountInString(explanation) < MinExplanationLength {
		return nil, &entities.ValidationError{
			Field:  "explanation",
			Reason: fmt.Sprintf("must be at least %d characters", MinExplanationLength),
		}
	}

	verdict, err := s.finalizer.Finalize(ctx, VerdictDraft{
		ClaimID:       claim.ID,
		FactCheckerID: req.FactCheckerID,
		Verdict:       label,
		Explanation:   explanation,
		Sources:       sources,
	})
	if err != nil {
		return nil, err
	}
	return s.outcome(ctx, req.Action, claim.ID, verdict)
}

func (s *ReviewService) escalate(ctx context.Context, claim *entities.Claim, req ReviewRequest) (*ReviewOutcome, error) {
	if claim.AssignedFactCheckerID != req.FactCheckerID {
		return nil, &entities.ValidationError{Field: "fact_checker_id", Reason: "only the assigned fact-checker can escalate"}
	}
	err := s.relationalDB.WithinTx(ctx, func(ctx context.Context) error {
		return s.release(ctx, claim, req.FactCheckerID, entities.SessionEndEscalated)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("claim escalated", "claim_id", claim.ID, "fact_checker_id", req.FactCheckerID, "reason", req.Reason)
	fresh, err := s.claims.Get(ctx, claim.ID)
	if err != nil {
		return nil, err
	}
	return &ReviewOutcome{Action: req.Action, Claim: fresh}, nil
}

func (s *ReviewService) outcome(ctx context.Context, action ReviewAction, claimID string, verdict *entities.Verdict) (*ReviewOutcome, error) {
	claim, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	return &ReviewOutcome{Action: action, Claim: claim, Verdict: verdict}, nil
}

// ReviewerStats summarizes a fact-checker's review activity.
func (s *ReviewService) ReviewerStats(ctx context.Context, factCheckerID string) (*entities.ReviewerStats, error) {
	sessions, err := s.relationalDB.FindSessionsByChecker(ctx, factCheckerID)
	if err != nil {
		return nil, fmt.Errorf("finding sessions: %w", err)
	}
	verdicts, err := s.relationalDB.CountVerdictsByChecker(ctx, factCheckerID)
	if err != nil {
		return nil, fmt.Errorf("counting verdicts: %w", err)
	}
	active, err := s.relationalDB.CountActiveAssignments(ctx, factCheckerID)
	if err != nil {
		return nil, fmt.Errorf("counting assignments: %w", err)
	}

	stats := &entities.ReviewerStats{
		FactCheckerID:     factCheckerID,
		VerdictsAuthored:  verdicts,
		ActiveAssignments: active,
	}
	ended := 0
	for _, sess := range sessions {
		stats.Sessions++
		if sess.EndReason == entities.SessionEndExpired {
			stats.ExpiredSessionsCount++
			continue
		}
		if !sess.IsOpen() {
			stats.TotalSeconds += sess.DurationSeconds
			ended++
		}
	}
	if ended > 0 {
		stats.AverageSeconds = float64(stats.TotalSeconds) / float64(ended)
	}
	return stats, nil
}
