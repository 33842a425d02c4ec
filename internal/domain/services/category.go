package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/ports"
)

// validCategoryRegex allows lowercase alphanumerics and underscores.
var validCategoryRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// CategoryService manages claim categories and their trending weights.
type CategoryService struct {
	relationalDB ports.RelationalDB
	cache        map[string]entities.Category
	cacheMu      sync.RWMutex
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(relationalDB ports.RelationalDB) *CategoryService {
	return &CategoryService{relationalDB: relationalDB}
}

// LoadDefaults seeds the default categories into the database.
func (s *CategoryService) LoadDefaults(ctx context.Context) error {
	existing, err := s.relationalDB.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("listing categories: %w", err)
	}

	existingSet := make(map[string]bool, len(existing))
	for _, c := range existing {
		existingSet[c.Name] = true
	}

	for _, c := range entities.DefaultCategories {
		if !existingSet[c.Name] {
			cat := c
			if err := s.relationalDB.SaveCategory(ctx, &cat); err != nil {
				return fmt.Errorf("seeding category %s: %w", c.Name, err)
			}
		}
	}
	s.invalidateCache()
	return nil
}

// List returns all categories.
func (s *CategoryService) List(ctx context.Context) ([]entities.Category, error) {
	return s.relationalDB.ListCategories(ctx)
}

// Add creates a custom category.
func (s *CategoryService) Add(ctx context.Context, name, description string, weight, riskThreshold float64) error {
	name = strings.ToLower(strings.TrimSpace(name))

	if !validCategoryRegex.MatchString(name) {
		return &entities.ValidationError{Field: "name", Reason: "must be lowercase alphanumeric with underscores, starting with a letter"}
	}
	if weight <= 0 {
		return &entities.ValidationError{Field: "weight", Reason: "must be positive"}
	}
	if riskThreshold <= 0 || riskThreshold > 100 {
		return &entities.ValidationError{Field: "risk_threshold", Reason: "must be in (0, 100]"}
	}

	existing, err := s.relationalDB.FindCategory(ctx, name)
	if err != nil {
		return fmt.Errorf("checking category: %w", err)
	}
	if existing != nil {
		return &entities.ValidationError{Field: "name", Reason: fmt.Sprintf("category '%s' already exists", name)}
	}

	c := &entities.Category{
		Name:          name,
		Description:   description,
		Weight:        weight,
		RiskThreshold: riskThreshold,
		CreatedAt:     timeNow().UTC(),
	}
	if err := s.relationalDB.SaveCategory(ctx, c); err != nil {
		return fmt.Errorf("saving category: %w", err)
	}

	s.invalidateCache()
	return nil
}

// Remove deletes a custom category. Default categories cannot be removed.
func (s *CategoryService) Remove(ctx context.Context, name string) error {
	if entities.IsDefaultCategory(name) {
		return &entities.ValidationError{Field: "name", Reason: fmt.Sprintf("cannot remove default category '%s'", name)}
	}

	existing, err := s.relationalDB.FindCategory(ctx, name)
	if err != nil {
		return fmt.Errorf("checking category: %w", err)
	}
	if existing == nil {
		return &entities.NotFoundError{Entity: "category", ID: name}
	}

	if err := s.relationalDB.DeleteCategory(ctx, name); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}

	s.invalidateCache()
	return nil
}

// Resolve returns the named category, falling back to "other" for unknown
// or empty names.
func (s *CategoryService) Resolve(ctx context.Context, name string) (entities.Category, error) {
	if err := s.ensureCache(ctx); err != nil {
		return entities.Category{}, err
	}

	name = strings.ToLower(strings.TrimSpace(name))

	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	if c, ok := s.cache[name]; ok {
		return c, nil
	}
	if c, ok := s.cache[entities.CategoryOther]; ok {
		return c, nil
	}
	return entities.Category{Name: entities.CategoryOther, Weight: 1.0, RiskThreshold: 85}, nil
}

func (s *CategoryService) ensureCache(ctx context.Context) error {
	s.cacheMu.RLock()
	if s.cache != nil {
		s.cacheMu.RUnlock()
		return nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	// Double-check after acquiring write lock
	if s.cache != nil {
		return nil
	}

	cats, err := s.relationalDB.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("loading categories: %w", err)
	}
	s.cache = make(map[string]entities.Category, len(cats))
	for _, c := range cats {
		s.cache[c.Name] = c
	}
	return nil
}

func (s *CategoryService) invalidateCache() {
	s.cacheMu.Lock()
	s.cache = nil
	s.cacheMu.Unlock()
}
