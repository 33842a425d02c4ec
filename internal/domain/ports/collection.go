package ports

import "context"

// CollectionManager handles vector collection lifecycle operations.
// It is kept apart from ClaimIndex so that deployments without a vector
// store only need to skip one wiring step.
type CollectionManager interface {
	// EnsureCollection creates the collection if it doesn't exist.
	EnsureCollection(ctx context.Context, vectorSize uint64) error

	// DeleteCollection removes the collection and all its data.
	DeleteCollection(ctx context.Context) error
}
