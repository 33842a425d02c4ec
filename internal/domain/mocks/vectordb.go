package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/ports"
)

// ClaimIndex is a mock implementation of ports.ClaimIndex. SearchSimilar
// returns Hits filtered by minScore rather than comparing vectors.
type ClaimIndex struct {
	mu sync.Mutex

	Indexed map[string][]float32
	Hits    []ports.ScoredClaim
	Err     error

	Removed []string
}

// NewClaimIndex creates an empty mock index.
func NewClaimIndex() *ClaimIndex {
	return &ClaimIndex{Indexed: make(map[string][]float32)}
}

// Index records the claim's embedding.
func (m *ClaimIndex) Index(_ context.Context, claim *entities.Claim, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Indexed[claim.ID] = embedding
	return nil
}

// SearchSimilar returns the configured hits at or above minScore.
func (m *ClaimIndex) SearchSimilar(_ context.Context, _ []float32, limit int, minScore float32) ([]ports.ScoredClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []ports.ScoredClaim
	for _, h := range m.Hits {
		if h.Score >= minScore {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Remove records the removal.
func (m *ClaimIndex) Remove(_ context.Context, claimID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.Indexed, claimID)
	m.Removed = append(m.Removed, claimID)
	return nil
}

// RemovedIDs returns the removed claim ids.
func (m *ClaimIndex) RemovedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Removed...)
}
