// Package handlers contains application use case handlers.
package handlers

import (
	"context"
	"fmt"

	"github.com/omaribamark/factcheck-core/internal/domain/ports"
	"github.com/omaribamark/factcheck-core/internal/domain/services"
)

// InitHandler prepares a fresh store: default categories and, when semantic
// search is enabled, the vector collection.
type InitHandler struct {
	categories        *services.CategoryService
	collectionManager ports.CollectionManager
	vectorSize        uint64
}

// NewInitHandler creates a new init handler. collectionManager may be nil.
func NewInitHandler(categories *services.CategoryService, collectionManager ports.CollectionManager, vectorSize uint64) *InitHandler {
	return &InitHandler{
		categories:        categories,
		collectionManager: collectionManager,
		vectorSize:        vectorSize,
	}
}

// InitResult contains the result of initialization.
type InitResult struct {
	Categories        int
	CollectionCreated bool
}

// Handle seeds categories and creates the collection. Safe to run again.
func (h *InitHandler) Handle(ctx context.Context) (*InitResult, error) {
	if err := h.categories.LoadDefaults(ctx); err != nil {
		return nil, fmt.Errorf("seeding categories: %w", err)
	}
	cats, err := h.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	result := &InitResult{Categories: len(cats)}
	if h.collectionManager != nil {
		if err := h.collectionManager.EnsureCollection(ctx, h.vectorSize); err != nil {
			return nil, fmt.Errorf("creating collection: %w", err)
		}
		result.CollectionCreated = true
	}
	return result, nil
}
