package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

const topicColumns = `id, label, normalized_label, category, engagement_score, base_engagement,
	claim_ids, is_high_risk, advisory_requested, detected_at, last_activity_at`

// SaveTopic inserts or updates a trending topic.
func (r *Repository) SaveTopic(ctx context.Context, t *entities.TrendingTopic) error {
	claimIDs, err := encodeStrings(t.ClaimIDs)
	if err != nil {
		return err
	}
	query := `INSERT INTO trending_topics (` + topicColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			normalized_label = excluded.normalized_label,
			category = excluded.category,
			engagement_score = excluded.engagement_score,
			base_engagement = excluded.base_engagement,
			claim_ids = excluded.claim_ids,
			is_high_risk = excluded.is_high_risk,
			advisory_requested = excluded.advisory_requested,
			last_activity_at = excluded.last_activity_at`
	_, err = r.q(ctx).ExecContext(ctx, query,
		t.ID,
		t.Label,
		t.NormalizedLabel,
		t.Category,
		t.EngagementScore,
		t.BaseEngagement,
		claimIDs,
		t.IsHighRisk,
		t.AdvisoryRequested,
		utc(t.DetectedAt),
		utc(t.LastActivityAt),
	)
	if err != nil {
		return fmt.Errorf("saving topic: %w", err)
	}
	return nil
}

// FindTopicByID finds a topic by its ID.
func (r *Repository) FindTopicByID(ctx context.Context, id string) (*entities.TrendingTopic, error) {
	return r.findTopic(ctx, `SELECT `+topicColumns+` FROM trending_topics WHERE id = ?`, id)
}

// FindTopicByLabel finds a topic by its normalized label.
func (r *Repository) FindTopicByLabel(ctx context.Context, normalizedLabel string) (*entities.TrendingTopic, error) {
	return r.findTopic(ctx, `SELECT `+topicColumns+` FROM trending_topics WHERE normalized_label = ?`, normalizedLabel)
}

func (r *Repository) findTopic(ctx context.Context, query string, arg string) (*entities.TrendingTopic, error) {
	t, err := scanTopic(r.q(ctx).QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTopics lists topics by engagement, highest first.
func (r *Repository) ListTopics(ctx context.Context, limit int) ([]entities.TrendingTopic, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + topicColumns + ` FROM trending_topics
		ORDER BY engagement_score DESC, id ASC LIMIT ?`
	rows, err := r.q(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying topics: %w", err)
	}
	defer rows.Close()

	var out []entities.TrendingTopic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// DeleteTopic deletes a topic by ID.
func (r *Repository) DeleteTopic(ctx context.Context, id string) error {
	if _, err := r.q(ctx).ExecContext(ctx, `DELETE FROM trending_topics WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting topic: %w", err)
	}
	return nil
}

func scanTopic(row rowScanner) (*entities.TrendingTopic, error) {
	var t entities.TrendingTopic
	var claimIDs string
	err := row.Scan(
		&t.ID,
		&t.Label,
		&t.NormalizedLabel,
		&t.Category,
		&t.EngagementScore,
		&t.BaseEngagement,
		&claimIDs,
		&t.IsHighRisk,
		&t.AdvisoryRequested,
		&t.DetectedAt,
		&t.LastActivityAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning topic: %w", err)
	}
	if t.ClaimIDs, err = decodeStrings(claimIDs); err != nil {
		return nil, err
	}
	return &t, nil
}

// SaveAdvisory stores generated advisory content, replacing any earlier draft
// for the same topic.
func (r *Repository) SaveAdvisory(ctx context.Context, a *entities.Advisory) error {
	query := `INSERT INTO advisories (id, topic_id, title, body, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(topic_id) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			model = excluded.model`
	_, err := r.q(ctx).ExecContext(ctx, query, a.ID, a.TopicID, a.Title, a.Body, a.Model, utc(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving advisory: %w", err)
	}
	return nil
}

// FindAdvisoryByTopic finds the advisory generated for a topic.
func (r *Repository) FindAdvisoryByTopic(ctx context.Context, topicID string) (*entities.Advisory, error) {
	query := `SELECT id, topic_id, title, body, model, created_at FROM advisories WHERE topic_id = ?`
	var a entities.Advisory
	err := r.q(ctx).QueryRowContext(ctx, query, topicID).Scan(&a.ID, &a.TopicID, &a.Title, &a.Body, &a.Model, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning advisory: %w", err)
	}
	return &a, nil
}
