package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/ports"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/logger"
)

func TestSimilarityHash(t *testing.T) {
	a := SimilarityHash("Vaccines cause autism, study says!")
	b := SimilarityHash("study says: vaccines CAUSE autism")
	assert.Equal(t, a, b)
	assert.Equal(t, "autism cause says study vaccines", a)

	assert.NotEqual(t, a, SimilarityHash("Vaccines prevent measles"))
	assert.LessOrEqual(t, len(SimilarityHash(
		"one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen",
	)), similarityHashMaxLen)

	// The cut falls inside the two-byte rune.
	h := SimilarityHash(strings.Repeat("a", 62) + " é")
	assert.True(t, utf8.ValidString(h))
	assert.Equal(t, strings.Repeat("a", 62), h)
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"identical", "Fuel prices will double next month", "Fuel prices will double next month", 1, 1},
		{"reordered", "Fuel prices will double next month", "next month fuel prices will double", 1, 1},
		{"one word off", "Fuel prices will double next month", "Fuel prices will triple next month", 0.6, 0.8},
		{"unrelated", "Fuel prices will double next month", "The president resigned yesterday", 0, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Similarity(&entities.Claim{Title: tt.a}, &entities.Claim{Title: tt.b})
			assert.GreaterOrEqual(t, s, tt.min)
			assert.LessOrEqual(t, s, tt.max)
		})
	}
}

func TestSimilarityDetector_FindMatches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	open := h.putClaim(t, "open", entities.StatusHumanReview)
	h.putClaim(t, "other", entities.StatusPending)
	published := *open
	published.ID = "published"
	published.Status = entities.StatusPublished
	require.NoError(t, h.db.SaveClaim(ctx, &published))

	newClaim := &entities.Claim{ID: "new", Title: open.Title, SimilarityHash: open.SimilarityHash}

	result, err := h.similarity.FindMatches(ctx, newClaim)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "open", result.Matches[0].ID)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, result.Embedding)
}

func TestSimilarityDetector_HashCollisionBelowThreshold(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := "Authorities at all airports are asking arriving adults about bank accounts and biometric data before boarding"
	b := "Authorities at all airports are asking arriving adults about bank accounts and cash declarations to customs officers"
	require.Equal(t, SimilarityHash(a), SimilarityHash(b))
	require.Less(t, Similarity(&entities.Claim{Title: a}, &entities.Claim{Title: b}), DefaultSimilarityThreshold)

	first, err := h.claims.Submit(ctx, SubmitInput{SubmitterID: submitterID, Title: a})
	require.NoError(t, err)
	second, err := h.claims.Submit(ctx, SubmitInput{SubmitterID: submitterID, Title: b})
	require.NoError(t, err)

	assert.Empty(t, second.MergedWith)
	assert.Equal(t, 1, second.Claim.SubmissionCount)
	assert.Equal(t, 1, h.db.Claim(first.Claim.ID).SubmissionCount)
}

func TestSimilarityDetector_SemanticHit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.putClaim(t, "semantic", entities.StatusPending)
	h.index.Hits = []ports.ScoredClaim{{ClaimID: "semantic", Score: 0.95}, {ClaimID: "weak", Score: 0.5}}

	result, err := h.similarity.FindMatches(ctx, &entities.Claim{ID: "new", Title: "Completely different wording here"})
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "semantic", result.Matches[0].ID)
}

func TestSimilarityDetector_SemanticFailureFallsBackToLexical(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	open := h.putClaim(t, "open", entities.StatusPending)
	h.embedder.Err = errors.New("embedding service down")

	result, err := h.similarity.FindMatches(ctx, &entities.Claim{ID: "new", Title: open.Title, SimilarityHash: open.SimilarityHash})
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Nil(t, result.Embedding)
}

func TestSimilarityDetector_LexicalOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d := NewSimilarityDetector(h.db, nil, nil, 0, 0, logger.Nop())

	h.putClaim(t, "open", entities.StatusPending)

	result, err := d.FindMatches(ctx, &entities.Claim{ID: "new", Title: "Nothing in common at all"})
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
	assert.Nil(t, result.Embedding)

	require.NoError(t, d.Index(ctx, &entities.Claim{ID: "new"}, nil))
	require.NoError(t, d.Forget(ctx, "new"))
}

func TestSimilarityDetector_IndexAndForget(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	claim := &entities.Claim{ID: "c1", Title: "Some claim title"}

	require.NoError(t, h.similarity.Index(ctx, claim, nil))
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, h.index.Indexed["c1"])
	assert.Equal(t, 1, h.embedder.Calls)

	require.NoError(t, h.similarity.Index(ctx, claim, []float32{1, 0}))
	assert.Equal(t, 1, h.embedder.Calls)

	require.NoError(t, h.similarity.Forget(ctx, "c1"))
	assert.Equal(t, []string{"c1"}, h.index.RemovedIDs())
}
