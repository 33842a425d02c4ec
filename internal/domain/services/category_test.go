package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/mocks"
)

func TestCategoryService_LoadDefaults(t *testing.T) {
	db := mocks.NewRelationalDB()
	svc := NewCategoryService(db)
	ctx := context.Background()

	require.NoError(t, svc.LoadDefaults(ctx))
	require.NoError(t, svc.LoadDefaults(ctx))

	cats, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, len(entities.DefaultCategories))

	politics, err := svc.Resolve(ctx, "politics")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, politics.Weight, 1e-9)
	assert.InDelta(t, 70, politics.RiskThreshold, 1e-9)
}

func TestCategoryService_Add(t *testing.T) {
	tests := []struct {
		name      string
		catName   string
		weight    float64
		threshold float64
		wantErr   bool
	}{
		{"valid", "climate", 1.2, 80, false},
		{"uppercase is lowered", "Agriculture", 1.0, 85, false},
		{"invalid characters", "bad-name", 1.0, 85, true},
		{"starts with digit", "1st", 1.0, 85, true},
		{"zero weight", "zero", 0, 85, true},
		{"threshold above 100", "loud", 1.0, 101, true},
		{"duplicate of default", "health", 1.0, 85, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewCategoryService(mocks.NewRelationalDB())
			ctx := context.Background()
			require.NoError(t, svc.LoadDefaults(ctx))

			err := svc.Add(ctx, tt.catName, "desc", tt.weight, tt.threshold)
			if tt.wantErr {
				assert.ErrorIs(t, err, entities.ErrValidation)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCategoryService_Remove(t *testing.T) {
	svc := NewCategoryService(mocks.NewRelationalDB())
	ctx := context.Background()
	require.NoError(t, svc.LoadDefaults(ctx))

	assert.ErrorIs(t, svc.Remove(ctx, "health"), entities.ErrValidation)
	assert.ErrorIs(t, svc.Remove(ctx, "nonexistent"), entities.ErrNotFound)

	require.NoError(t, svc.Add(ctx, "climate", "", 1.2, 80))
	c, err := svc.Resolve(ctx, "climate")
	require.NoError(t, err)
	assert.Equal(t, "climate", c.Name)

	require.NoError(t, svc.Remove(ctx, "climate"))
	c, err = svc.Resolve(ctx, "climate")
	require.NoError(t, err)
	assert.Equal(t, entities.CategoryOther, c.Name)
}

func TestCategoryService_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown falls back to other", func(t *testing.T) {
		svc := NewCategoryService(mocks.NewRelationalDB())
		require.NoError(t, svc.LoadDefaults(ctx))

		c, err := svc.Resolve(ctx, "astrology")
		require.NoError(t, err)
		assert.Equal(t, entities.CategoryOther, c.Name)

		c, err = svc.Resolve(ctx, "  POLITICS ")
		require.NoError(t, err)
		assert.Equal(t, "politics", c.Name)
	})

	t.Run("empty table still resolves", func(t *testing.T) {
		svc := NewCategoryService(mocks.NewRelationalDB())

		c, err := svc.Resolve(ctx, "politics")
		require.NoError(t, err)
		assert.Equal(t, entities.CategoryOther, c.Name)
		assert.InDelta(t, 1.0, c.Weight, 1e-9)
	})
}
