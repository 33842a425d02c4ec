// Package entities contains core domain data structures.
package entities

import (
	"strings"
	"time"
)

// ClaimStatus is a claim's position in the verification lifecycle.
type ClaimStatus string

// Claim lifecycle states.
const (
	StatusPending       ClaimStatus = "pending"
	StatusAIProcessing  ClaimStatus = "ai_processing"
	StatusAIApproved    ClaimStatus = "ai_approved"
	StatusHumanReview   ClaimStatus = "human_review"
	StatusUnderReview   ClaimStatus = "under_review"
	StatusHumanApproved ClaimStatus = "human_approved"
	StatusPublished     ClaimStatus = "published"
	StatusRejected      ClaimStatus = "rejected"
)

// AllStatuses lists every lifecycle state in pipeline order.
var AllStatuses = []ClaimStatus{
	StatusPending,
	StatusAIProcessing,
	StatusAIApproved,
	StatusHumanReview,
	StatusUnderReview,
	StatusHumanApproved,
	StatusPublished,
	StatusRejected,
}

// ParseClaimStatus validates a status string.
func ParseClaimStatus(s string) (ClaimStatus, bool) {
	status := ClaimStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range AllStatuses {
		if st == status {
			return status, true
		}
	}
	return "", false
}

// Priority ranks claims for review and feeds the trending score.
type Priority string

// Claim priorities.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ParsePriority validates a priority string. Empty input yields medium.
func ParsePriority(s string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return PriorityMedium, true
	case PriorityLow:
		return PriorityLow, true
	case PriorityMedium:
		return PriorityMedium, true
	case PriorityHigh:
		return PriorityHigh, true
	case PriorityCritical:
		return PriorityCritical, true
	default:
		return "", false
	}
}

// TrendingBonus is the flat bonus a priority adds to a claim's trending score.
func (p Priority) TrendingBonus() float64 {
	switch p {
	case PriorityHigh:
		return 20
	case PriorityCritical:
		return 50
	default:
		return 0
	}
}

// Claim is a user-submitted factual assertion awaiting verification.
// Status is only ever changed through a state transition; every other field
// may be rewritten by the stage that owns it.
type Claim struct {
	ID                    string      `json:"id"`
	SubmitterID           string      `json:"submitter_id"`
	Title                 string      `json:"title"`
	Description           string      `json:"description"`
	Category              string      `json:"category"`
	MediaURL              string      `json:"media_url,omitempty"`
	Status                ClaimStatus `json:"status"`
	Priority              Priority    `json:"priority"`
	SubmissionCount       int         `json:"submission_count"`
	SimilarityHash        string      `json:"similarity_hash"`
	AIVerdictID           string      `json:"ai_verdict_id,omitempty"`
	HumanVerdictID        string      `json:"human_verdict_id,omitempty"`
	AssignedFactCheckerID string      `json:"assigned_fact_checker_id,omitempty"`
	IsTrending            bool        `json:"is_trending"`
	TrendingScore         float64     `json:"trending_score"`
	VerdictNotified       bool        `json:"verdict_notified"`
	VerdictReadAt         *time.Time  `json:"verdict_read_at,omitempty"`
	PublishedAt           *time.Time  `json:"published_at,omitempty"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// Text is the claim content handed to the model and to the embedder.
func (c *Claim) Text() string {
	if c.Description == "" {
		return c.Title
	}
	return c.Title + "\n\n" + c.Description
}

// ClaimFilter narrows claim listings. Zero values mean "any".
type ClaimFilter struct {
	Statuses     []ClaimStatus
	Category     string
	SubmitterID  string
	CheckerID    string
	TrendingOnly bool
	UpdatedTo    time.Time
	Limit        int
	Offset       int
}
