package entities

import (
	"strings"
	"time"
)

// VerdictLabel is the closed set of outcomes a claim can receive.
type VerdictLabel string

// Verdict outcomes shared by AI and human verdicts.
const (
	VerdictTrue         VerdictLabel = "true"
	VerdictFalse        VerdictLabel = "false"
	VerdictMisleading   VerdictLabel = "misleading"
	VerdictSatire       VerdictLabel = "satire"
	VerdictNeedsContext VerdictLabel = "needs_context"
)

// AllVerdictLabels lists the accepted verdict values.
var AllVerdictLabels = []VerdictLabel{
	VerdictTrue,
	VerdictFalse,
	VerdictMisleading,
	VerdictSatire,
	VerdictNeedsContext,
}

// ParseVerdictLabel accepts the canonical value, case and separator insensitive
// ("Needs Context", "needs-context" and "needs_context" are the same label).
func ParseVerdictLabel(s string) (VerdictLabel, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for _, v := range AllVerdictLabels {
		if string(v) == norm {
			return v, true
		}
	}
	return "", false
}

// ParseMode records how an AI verdict was derived from the model output.
type ParseMode string

// AI response parse modes.
const (
	// ParseStrict means the response was valid JSON with an enum verdict.
	ParseStrict ParseMode = "strict"
	// ParseFallbackMalformed means the response was not JSON and the verdict
	// came from keyword matching over the raw text.
	ParseFallbackMalformed ParseMode = "fallback_malformed"
	// ParseFallbackUnexpected means the JSON parsed but its verdict was not
	// one of the enum values.
	ParseFallbackUnexpected ParseMode = "fallback_unexpected"
)

// AIVerdict is a machine-generated preliminary judgment. It is never mutated
// after creation; a later human verdict supersedes it without removing it.
type AIVerdict struct {
	ID              string       `json:"id"`
	ClaimID         string       `json:"claim_id"`
	Verdict         VerdictLabel `json:"verdict"`
	ConfidenceScore float64      `json:"confidence_score"`
	Explanation     string       `json:"explanation"`
	Sources         []string     `json:"sources"`
	ModelVersion    string       `json:"model_version"`
	ParseMode       ParseMode    `json:"parse_mode"`
	CreatedAt       time.Time    `json:"created_at"`
}

// Verdict is a fact-checker's definitive judgment on a claim.
type Verdict struct {
	ID            string       `json:"id"`
	ClaimID       string       `json:"claim_id"`
	FactCheckerID string       `json:"fact_checker_id"`
	Verdict       VerdictLabel `json:"verdict"`
	Explanation   string       `json:"explanation"`
	Sources       []string     `json:"sources"`
	AIVerdictID   string       `json:"ai_verdict_id,omitempty"`
	IsFinal       bool         `json:"is_final"`
	CreatedAt     time.Time    `json:"created_at"`
}
