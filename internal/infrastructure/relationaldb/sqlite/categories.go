package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

// SaveCategory inserts or updates a category.
func (r *Repository) SaveCategory(ctx context.Context, c *entities.Category) error {
	query := `
		INSERT INTO categories (name, description, weight, risk_threshold, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			weight = excluded.weight,
			risk_threshold = excluded.risk_threshold
	`
	_, err := r.q(ctx).ExecContext(ctx, query,
		c.Name,
		c.Description,
		c.Weight,
		c.RiskThreshold,
		utc(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving category: %w", err)
	}
	return nil
}

// FindCategory finds a category by name.
func (r *Repository) FindCategory(ctx context.Context, name string) (*entities.Category, error) {
	query := `
		SELECT name, description, weight, risk_threshold, created_at
		FROM categories
		WHERE name = ?
	`
	var c entities.Category
	err := r.q(ctx).QueryRowContext(ctx, query, name).Scan(&c.Name, &c.Description, &c.Weight, &c.RiskThreshold, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning category: %w", err)
	}
	return &c, nil
}

// ListCategories lists all categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]entities.Category, error) {
	query := `
		SELECT name, description, weight, risk_threshold, created_at
		FROM categories
		ORDER BY name ASC
	`
	rows, err := r.q(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	categories := make([]entities.Category, 0, len(entities.DefaultCategories))
	for rows.Next() {
		var c entities.Category
		if err := rows.Scan(&c.Name, &c.Description, &c.Weight, &c.RiskThreshold, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// DeleteCategory deletes a category by name.
func (r *Repository) DeleteCategory(ctx context.Context, name string) error {
	result, err := r.q(ctx).ExecContext(ctx, `DELETE FROM categories WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return &entities.NotFoundError{Entity: "category", ID: name}
	}
	return nil
}
