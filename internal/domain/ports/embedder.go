package ports

import "context"

// Embedder turns claim text into a vector for near-duplicate lookup.
type Embedder interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}
