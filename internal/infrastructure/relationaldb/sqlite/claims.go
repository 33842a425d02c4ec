package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

const claimColumns = `id, submitter_id, title, description, category, media_url, status, priority,
	submission_count, similarity_hash, ai_verdict_id, human_verdict_id, assigned_fact_checker_id,
	is_trending, trending_score, verdict_notified, verdict_read_at, published_at, created_at, updated_at`

// SaveClaim inserts a new claim, including its initial status.
func (r *Repository) SaveClaim(ctx context.Context, c *entities.Claim) error {
	query := `INSERT INTO claims (` + claimColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.q(ctx).ExecContext(ctx, query,
		c.ID,
		c.SubmitterID,
		c.Title,
		c.Description,
		c.Category,
		c.MediaURL,
		string(c.Status),
		string(c.Priority),
		c.SubmissionCount,
		c.SimilarityHash,
		c.AIVerdictID,
		c.HumanVerdictID,
		c.AssignedFactCheckerID,
		c.IsTrending,
		c.TrendingScore,
		c.VerdictNotified,
		nullTime(c.VerdictReadAt),
		nullTime(c.PublishedAt),
		utc(c.CreatedAt),
		utc(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving claim: %w", err)
	}
	return nil
}

// SetClaimAIVerdict points the claim at its latest AI verdict.
func (r *Repository) SetClaimAIVerdict(ctx context.Context, id, aiVerdictID string) error {
	query := `UPDATE claims SET ai_verdict_id = ?, updated_at = ? WHERE id = ?`
	return r.execClaim(ctx, "setting ai verdict", query, aiVerdictID, utc(timeNow()), id)
}

// SetClaimHumanVerdict sets the human verdict pointer and published_at.
func (r *Repository) SetClaimHumanVerdict(ctx context.Context, id, verdictID string, publishedAt *time.Time) error {
	query := `UPDATE claims SET human_verdict_id = ?, published_at = ?, updated_at = ? WHERE id = ?`
	return r.execClaim(ctx, "setting human verdict", query, verdictID, nullTime(publishedAt), utc(timeNow()), id)
}

// SetClaimTrending stores the trending flag and score.
func (r *Repository) SetClaimTrending(ctx context.Context, id string, trending bool, score float64) error {
	query := `UPDATE claims SET is_trending = ?, trending_score = ?, updated_at = ? WHERE id = ?`
	return r.execClaim(ctx, "setting trending", query, trending, score, utc(timeNow()), id)
}

func (r *Repository) execClaim(ctx context.Context, op, query string, args ...any) error {
	result, err := r.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return &entities.NotFoundError{Entity: "claim", ID: fmt.Sprint(args[len(args)-1])}
	}
	return nil
}

// MarkClaimVerdictRead stamps verdict_read_at if unset and sets verdict_notified.
func (r *Repository) MarkClaimVerdictRead(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE claims SET verdict_read_at = ?, verdict_notified = 1
		WHERE id = ? AND verdict_read_at IS NULL
	`
	result, err := r.q(ctx).ExecContext(ctx, query, utc(at), id)
	if err != nil {
		return false, fmt.Errorf("marking verdict read: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// ResetClaimVerdictRead clears the read stamp so a republished verdict counts as unread.
func (r *Repository) ResetClaimVerdictRead(ctx context.Context, id string) error {
	query := `UPDATE claims SET verdict_read_at = NULL, verdict_notified = 0, updated_at = ? WHERE id = ?`
	return r.execClaim(ctx, "resetting verdict read", query, utc(timeNow()), id)
}

// FindClaimByID finds a claim by its ID.
func (r *Repository) FindClaimByID(ctx context.Context, id string) (*entities.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = ?`
	claim, err := scanClaim(r.q(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// FindClaimsByIDs finds the claims with the given IDs, skipping unknown ones.
func (r *Repository) FindClaimsByIDs(ctx context.Context, ids []string) ([]*entities.Claim, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id IN (` + placeholders(len(ids)) + `)
		ORDER BY created_at DESC, id ASC`
	return r.queryClaims(ctx, query, args...)
}

// FindClaimsBySimilarityHash finds non-terminal claims sharing a hash.
func (r *Repository) FindClaimsBySimilarityHash(ctx context.Context, hash string) ([]*entities.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims
		WHERE similarity_hash = ? AND status NOT IN (?, ?)
		ORDER BY created_at DESC, id ASC`
	return r.queryClaims(ctx, query, hash, string(entities.StatusPublished), string(entities.StatusRejected))
}

// ListClaims lists claims matching the filter, newest first.
func (r *Repository) ListClaims(ctx context.Context, f entities.ClaimFilter) ([]*entities.Claim, error) {
	var where []string
	var args []any

	if len(f.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(f.Statuses))+")")
		args = append(args, statusArgs(f.Statuses)...)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.SubmitterID != "" {
		where = append(where, "submitter_id = ?")
		args = append(args, f.SubmitterID)
	}
	if f.CheckerID != "" {
		where = append(where, "assigned_fact_checker_id = ?")
		args = append(args, f.CheckerID)
	}
	if f.TrendingOnly {
		where = append(where, "is_trending = 1")
	}
	if !f.UpdatedTo.IsZero() {
		where = append(where, "updated_at <= ?")
		args = append(args, utc(f.UpdatedTo))
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + claimColumns + ` FROM claims`)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC, id ASC")

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, max(f.Offset, 0))

	return r.queryClaims(ctx, sb.String(), args...)
}

// TransitionClaim moves a claim to `to` if its current status is one of `from`.
func (r *Repository) TransitionClaim(ctx context.Context, id string, from []entities.ClaimStatus, to entities.ClaimStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	query := `UPDATE claims SET status = ?, updated_at = ?
		WHERE id = ? AND status IN (` + placeholders(len(from)) + `)`
	args := append([]any{string(to), utc(timeNow()), id}, statusArgs(from)...)

	result, err := r.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("transitioning claim: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// IncrementSubmissionCounts adds delta to submission_count on every claim in ids.
func (r *Repository) IncrementSubmissionCounts(ctx context.Context, ids []string, delta int) error {
	if len(ids) == 0 {
		return nil
	}
	args := []any{delta, utc(timeNow())}
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE claims SET submission_count = submission_count + ?, updated_at = ?
		WHERE id IN (` + placeholders(len(ids)) + `)`
	if _, err := r.q(ctx).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("incrementing submission counts: %w", err)
	}
	return nil
}

// AssignClaim sets the assignee only when the claim has none.
func (r *Repository) AssignClaim(ctx context.Context, id, factCheckerID string) (bool, error) {
	query := `UPDATE claims SET assigned_fact_checker_id = ?, updated_at = ?
		WHERE id = ? AND assigned_fact_checker_id = ''`
	result, err := r.q(ctx).ExecContext(ctx, query, factCheckerID, utc(timeNow()), id)
	if err != nil {
		return false, fmt.Errorf("assigning claim: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// UnassignClaim clears the assignee only if it is factCheckerID.
func (r *Repository) UnassignClaim(ctx context.Context, id, factCheckerID string) (bool, error) {
	query := `UPDATE claims SET assigned_fact_checker_id = '', updated_at = ?
		WHERE id = ? AND assigned_fact_checker_id = ?`
	result, err := r.q(ctx).ExecContext(ctx, query, utc(timeNow()), id, factCheckerID)
	if err != nil {
		return false, fmt.Errorf("unassigning claim: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// CountActiveAssignments counts non-terminal claims assigned to a reviewer.
func (r *Repository) CountActiveAssignments(ctx context.Context, factCheckerID string) (int, error) {
	query := `SELECT COUNT(*) FROM claims
		WHERE assigned_fact_checker_id = ? AND status NOT IN (?, ?)`
	var count int
	err := r.q(ctx).QueryRowContext(ctx, query, factCheckerID,
		string(entities.StatusPublished), string(entities.StatusRejected)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting assignments: %w", err)
	}
	return count, nil
}

func (r *Repository) queryClaims(ctx context.Context, query string, args ...any) ([]*entities.Claim, error) {
	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying claims: %w", err)
	}
	defer rows.Close()

	var claims []*entities.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*entities.Claim, error) {
	var c entities.Claim
	var status, priority string
	var readAt, publishedAt sql.NullTime

	err := row.Scan(
		&c.ID,
		&c.SubmitterID,
		&c.Title,
		&c.Description,
		&c.Category,
		&c.MediaURL,
		&status,
		&priority,
		&c.SubmissionCount,
		&c.SimilarityHash,
		&c.AIVerdictID,
		&c.HumanVerdictID,
		&c.AssignedFactCheckerID,
		&c.IsTrending,
		&c.TrendingScore,
		&c.VerdictNotified,
		&readAt,
		&publishedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning claim: %w", err)
	}

	c.Status = entities.ClaimStatus(status)
	c.Priority = entities.Priority(priority)
	c.VerdictReadAt = timePtr(readAt)
	c.PublishedAt = timePtr(publishedAt)
	return &c, nil
}
