package entities

import "time"

// Audit actions.
const (
	AuditClaimSubmitted  = "claim_submitted"
	AuditClaimMerged     = "claim_merged"
	AuditClaimTransition = "claim_transition"
	AuditClaimAssigned   = "claim_assigned"
	AuditClaimUnassigned = "claim_unassigned"
	AuditAIFallback      = "ai_parse_fallback"
	AuditVerdictFinal    = "verdict_finalized"
	AuditSessionExpired  = "session_expired"
	AuditCheckerAction   = "checker_action"
)

// AuditEntry represents a logged action in the system.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Action    string         `json:"action"`
	ClaimID   string         `json:"claim_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
