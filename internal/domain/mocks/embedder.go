package mocks

import "context"

// Embedder is a mock implementation of ports.Embedder.
type Embedder struct {
	EmbeddingResult []float32
	Err             error

	Calls int
}

// Embed returns the configured embedding or error.
func (m *Embedder) Embed(_ context.Context, _ string) ([]float32, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.EmbeddingResult, nil
}
