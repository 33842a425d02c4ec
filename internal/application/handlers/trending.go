package handlers

import (
	"context"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/services"
)

// TrendingHandler handles trending topic queries and maintenance.
type TrendingHandler struct {
	trending *services.TrendingDetector
}

// NewTrendingHandler creates a new trending handler.
func NewTrendingHandler(trending *services.TrendingDetector) *TrendingHandler {
	return &TrendingHandler{trending: trending}
}

// List returns topics by engagement, highest first.
func (h *TrendingHandler) List(ctx context.Context, limit int) ([]entities.TrendingTopic, error) {
	return h.trending.List(ctx, limit)
}

// Refresh applies time decay now.
func (h *TrendingHandler) Refresh(ctx context.Context) (*services.RefreshResult, error) {
	return h.trending.Refresh(ctx)
}

// Advisory drafts the advisory for a topic, or returns the existing one.
func (h *TrendingHandler) Advisory(ctx context.Context, topicID string) (*entities.Advisory, error) {
	return h.trending.WriteAdvisory(ctx, topicID)
}
