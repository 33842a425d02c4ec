package handlers

import (
	"context"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/services"
)

// CategoryHandler handles category management.
type CategoryHandler struct {
	categories *services.CategoryService
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(categories *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// List returns all categories.
func (h *CategoryHandler) List(ctx context.Context) ([]entities.Category, error) {
	return h.categories.List(ctx)
}

// Add creates or updates a category.
func (h *CategoryHandler) Add(ctx context.Context, name, description string, weight, riskThreshold float64) error {
	return h.categories.Add(ctx, name, description, weight, riskThreshold)
}

// Remove deletes a custom category.
func (h *CategoryHandler) Remove(ctx context.Context, name string) error {
	return h.categories.Remove(ctx, name)
}
