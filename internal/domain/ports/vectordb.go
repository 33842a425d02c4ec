package ports

import (
	"context"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

// ClaimIndex is a vector index over active claims used to find semantic
// near-duplicates that lexical matching misses.
type ClaimIndex interface {
	// Index stores or replaces a claim's embedding.
	Index(ctx context.Context, claim *entities.Claim, embedding []float32) error

	// SearchSimilar returns indexed claims scoring at least minScore.
	SearchSimilar(ctx context.Context, embedding []float32, limit int, minScore float32) ([]ScoredClaim, error)

	// Remove drops a claim from the index.
	Remove(ctx context.Context, claimID string) error
}

// ScoredClaim is a claim id with its similarity to the query vector.
type ScoredClaim struct {
	ClaimID string
	Score   float32
}
