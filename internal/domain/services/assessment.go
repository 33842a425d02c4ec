package services

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

const (
	// FallbackConfidence caps confidence whenever the keyword fallback decided
	// the verdict, so such results always stay below the default threshold.
	FallbackConfidence = 0.5
	// maxFallbackExplanation truncates raw model text used as explanation.
	maxFallbackExplanation = 1000
)

// Assessment is a validated model verdict.
type Assessment struct {
	Verdict     entities.VerdictLabel
	Confidence  float64
	Explanation string
	Sources     []string
	Mode        entities.ParseMode
	// Reason says why the fallback ran. Empty in strict mode.
	Reason string
}

// modelReply is the JSON object the system prompt asks for. Pointers tell
// missing fields from zero values.
type modelReply struct {
	Verdict         *string  `json:"verdict"`
	ConfidenceScore *float64 `json:"confidence_score"`
	Explanation     string   `json:"explanation"`
	Sources         []string `json:"sources"`
}

// ParseAssessment validates raw model output. JSON that matches the contract
// parses strictly. Output that is not JSON at all falls back to keyword
// classification with mode fallback_malformed; JSON whose verdict or
// confidence is outside the contract falls back with mode
// fallback_unexpected. Empty output is an ExternalServiceError.
func ParseAssessment(content string) (*Assessment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &entities.ExternalServiceError{
			Service: "llm",
			Kind:    entities.ExternalMalformed,
			Err:     errors.New("empty response"),
		}
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(ExtractJSONObject(content)), &reply); err != nil {
		return &Assessment{
			Verdict:     ClassifyVerdictText(content),
			Confidence:  FallbackConfidence,
			Explanation: truncate(content, maxFallbackExplanation),
			Mode:        entities.ParseFallbackMalformed,
			Reason:      "response is not a JSON object: " + err.Error(),
		}, nil
	}

	a := &Assessment{
		Explanation: strings.TrimSpace(reply.Explanation),
		Sources:     cleanSources(reply.Sources),
		Mode:        entities.ParseStrict,
	}

	var problems []string
	if reply.ConfidenceScore == nil {
		problems = append(problems, "missing confidence_score")
	} else {
		a.Confidence = clamp01(*reply.ConfidenceScore)
	}

	label, ok := entities.VerdictLabel(""), false
	if reply.Verdict != nil {
		label, ok = entities.ParseVerdictLabel(*reply.Verdict)
	}
	if ok {
		a.Verdict = label
	} else {
		raw := ""
		if reply.Verdict != nil {
			raw = *reply.Verdict
		}
		problems = append(problems, "verdict "+quoteOrMissing(raw)+" is not a known label")
		a.Verdict = ClassifyVerdictText(raw + " " + reply.Explanation)
	}

	if len(problems) > 0 {
		a.Mode = entities.ParseFallbackUnexpected
		a.Reason = strings.Join(problems, "; ")
		if reply.ConfidenceScore == nil || a.Confidence > FallbackConfidence {
			a.Confidence = FallbackConfidence
		}
	}
	return a, nil
}

// ExtractJSONObject strips markdown fences and returns the outermost
// {...} span of content, or content unchanged when there is none.
func ExtractJSONObject(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}

var (
	satireTerms       = []string{"satire", "satirical", "parody", "joke", "humor", "humour"}
	misleadingTerms   = []string{"misleading", "misrepresents", "misrepresented", "exaggerated", "distorted", "cherry picked"}
	needsContextTerms = []string{"needs context", "missing context", "lacks context", "unverified", "unverifiable", "unclear", "insufficient evidence", "inconclusive"}
	negatedTrueTerms  = []string{"not true", "isn t true", "is not accurate", "not accurate", "not correct", "untrue"}
	falseTerms        = []string{"false", "fake", "incorrect", "inaccurate", "debunked", "hoax", "fabricated", "wrong"}
	trueTerms         = []string{"true", "accurate", "correct", "confirmed", "verified", "factual"}
)

// ClassifyVerdictText maps free text to the closest verdict label. Terms
// match on whole words. Rules apply in order: satire, misleading, missing
// context, negated truth, then false against true. A tie between false and
// true, or no signal at all, yields needs_context.
func ClassifyVerdictText(text string) entities.VerdictLabel {
	padded := " " + NormalizeText(text) + " "

	switch {
	case containsAny(padded, satireTerms):
		return entities.VerdictSatire
	case containsAny(padded, misleadingTerms):
		return entities.VerdictMisleading
	case containsAny(padded, needsContextTerms):
		return entities.VerdictNeedsContext
	case containsAny(padded, negatedTrueTerms):
		return entities.VerdictFalse
	}

	isFalse := containsAny(padded, falseTerms)
	isTrue := containsAny(padded, trueTerms)
	switch {
	case isFalse && !isTrue:
		return entities.VerdictFalse
	case isTrue && !isFalse:
		return entities.VerdictTrue
	default:
		return entities.VerdictNeedsContext
	}
}

func containsAny(padded string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(padded, " "+t+" ") {
			return true
		}
	}
	return false
}

func cleanSources(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func clamp01(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

func quoteOrMissing(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(missing)"
	}
	return "\"" + s + "\""
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
