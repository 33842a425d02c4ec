package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

func TestParseAssessment(t *testing.T) {
	tests := []struct {
		name           string
		content        string
		wantVerdict    entities.VerdictLabel
		wantConfidence float64
		wantMode       entities.ParseMode
		wantSources    []string
	}{
		{
			name:           "strict json",
			content:        `{"verdict":"false","confidence_score":0.92,"explanation":"No such law exists.","sources":["https://gazette.example.org"]}`,
			wantVerdict:    entities.VerdictFalse,
			wantConfidence: 0.92,
			wantMode:       entities.ParseStrict,
			wantSources:    []string{"https://gazette.example.org"},
		},
		{
			name:           "fenced json with label variant",
			content:        "```json\n{\"verdict\":\"Needs Context\",\"confidence_score\":0.8,\"explanation\":\"Partly.\"}\n```",
			wantVerdict:    entities.VerdictNeedsContext,
			wantConfidence: 0.8,
			wantMode:       entities.ParseStrict,
			wantSources:    []string{},
		},
		{
			name:           "json surrounded by prose",
			content:        `Here is my answer: {"verdict":"true","confidence_score":0.75,"explanation":"Confirmed."} Hope that helps.`,
			wantVerdict:    entities.VerdictTrue,
			wantConfidence: 0.75,
			wantMode:       entities.ParseStrict,
			wantSources:    []string{},
		},
		{
			name:           "confidence above one is clamped",
			content:        `{"verdict":"satire","confidence_score":1.7,"explanation":"Parody site."}`,
			wantVerdict:    entities.VerdictSatire,
			wantConfidence: 1,
			wantMode:       entities.ParseStrict,
			wantSources:    []string{},
		},
		{
			name:           "duplicate and blank sources are dropped",
			content:        `{"verdict":"misleading","confidence_score":0.6,"explanation":"x","sources":["a"," a ",""," b"]}`,
			wantVerdict:    entities.VerdictMisleading,
			wantConfidence: 0.6,
			wantMode:       entities.ParseStrict,
			wantSources:    []string{"a", "b"},
		},
		{
			name:           "plain text is malformed",
			content:        "This claim is false and has been debunked by several outlets.",
			wantVerdict:    entities.VerdictFalse,
			wantConfidence: FallbackConfidence,
			wantMode:       entities.ParseFallbackMalformed,
		},
		{
			name:           "broken json is malformed",
			content:        `{"verdict": "true", "confidence_score": 0.9`,
			wantVerdict:    entities.VerdictTrue,
			wantConfidence: FallbackConfidence,
			wantMode:       entities.ParseFallbackMalformed,
		},
		{
			name:           "unknown verdict label is unexpected",
			content:        `{"verdict":"mostly true","confidence_score":0.95,"explanation":"The figures are accurate."}`,
			wantVerdict:    entities.VerdictTrue,
			wantConfidence: FallbackConfidence,
			wantMode:       entities.ParseFallbackUnexpected,
			wantSources:    []string{},
		},
		{
			name:           "missing confidence is unexpected",
			content:        `{"verdict":"false","explanation":"Fabricated quote."}`,
			wantVerdict:    entities.VerdictFalse,
			wantConfidence: FallbackConfidence,
			wantMode:       entities.ParseFallbackUnexpected,
			wantSources:    []string{},
		},
		{
			name:           "unexpected keeps lower confidence",
			content:        `{"verdict":"probably","confidence_score":0.2,"explanation":"Hard to say."}`,
			wantVerdict:    entities.VerdictNeedsContext,
			wantConfidence: 0.2,
			wantMode:       entities.ParseFallbackUnexpected,
			wantSources:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAssessment(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.wantVerdict, a.Verdict)
			assert.InDelta(t, tt.wantConfidence, a.Confidence, 1e-9)
			assert.Equal(t, tt.wantMode, a.Mode)
			if tt.wantSources != nil {
				assert.Equal(t, tt.wantSources, a.Sources)
			}
			if tt.wantMode == entities.ParseStrict {
				assert.Empty(t, a.Reason)
			} else {
				assert.NotEmpty(t, a.Reason)
			}
		})
	}
}

func TestParseAssessment_Empty(t *testing.T) {
	_, err := ParseAssessment("   ")
	require.ErrorIs(t, err, entities.ErrExternalService)

	var ext *entities.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, entities.ExternalMalformed, ext.Kind)
	assert.False(t, ext.Retryable())
}

func TestParseAssessment_MalformedTruncatesExplanation(t *testing.T) {
	content := strings.Repeat("word ", 500)

	a, err := ParseAssessment(content)
	require.NoError(t, err)
	assert.Equal(t, entities.ParseFallbackMalformed, a.Mode)
	assert.Len(t, []rune(a.Explanation), maxFallbackExplanation)
}

func TestClassifyVerdictText(t *testing.T) {
	tests := []struct {
		text string
		want entities.VerdictLabel
	}{
		{"This is satire from a parody site", entities.VerdictSatire},
		{"The headline is misleading", entities.VerdictMisleading},
		{"The claim needs context", entities.VerdictNeedsContext},
		{"This isn't true at all", entities.VerdictFalse},
		{"The statement is untrue", entities.VerdictFalse},
		{"Completely fabricated", entities.VerdictFalse},
		{"Confirmed by the ministry", entities.VerdictTrue},
		{"Partly true, partly false", entities.VerdictNeedsContext},
		{"No opinion", entities.VerdictNeedsContext},
		{"", entities.VerdictNeedsContext},
		// Whole words only: "truest" and "falsehoods" do not count.
		{"the truest falsehoods", entities.VerdictNeedsContext},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyVerdictText(tt.text))
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSONObject("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":{"b":2}}`, ExtractJSONObject(`noise {"a":{"b":2}} trailing`))
	assert.Equal(t, "no braces", ExtractJSONObject("no braces"))
}
