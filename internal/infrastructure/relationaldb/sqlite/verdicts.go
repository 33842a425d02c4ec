package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

const aiVerdictColumns = `id, claim_id, verdict, confidence_score, explanation, sources, model_version, parse_mode, created_at`

const verdictColumns = `id, claim_id, fact_checker_id, verdict, explanation, sources, ai_verdict_id, is_final, created_at`

// SaveAIVerdict stores an immutable AI verdict.
func (r *Repository) SaveAIVerdict(ctx context.Context, v *entities.AIVerdict) error {
	sources, err := encodeStrings(v.Sources)
	if err != nil {
		return err
	}
	query := `INSERT INTO ai_verdicts (` + aiVerdictColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.q(ctx).ExecContext(ctx, query,
		v.ID,
		v.ClaimID,
		string(v.Verdict),
		v.ConfidenceScore,
		v.Explanation,
		sources,
		v.ModelVersion,
		string(v.ParseMode),
		utc(v.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving ai verdict: %w", err)
	}
	return nil
}

// FindAIVerdictByID finds an AI verdict by its ID.
func (r *Repository) FindAIVerdictByID(ctx context.Context, id string) (*entities.AIVerdict, error) {
	query := `SELECT ` + aiVerdictColumns + ` FROM ai_verdicts WHERE id = ?`
	v, err := scanAIVerdict(r.q(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// FindAIVerdictsByClaim lists a claim's AI verdicts, oldest first.
func (r *Repository) FindAIVerdictsByClaim(ctx context.Context, claimID string) ([]entities.AIVerdict, error) {
	query := `SELECT ` + aiVerdictColumns + ` FROM ai_verdicts WHERE claim_id = ? ORDER BY created_at ASC, id ASC`
	rows, err := r.q(ctx).QueryContext(ctx, query, claimID)
	if err != nil {
		return nil, fmt.Errorf("querying ai verdicts: %w", err)
	}
	defer rows.Close()

	var out []entities.AIVerdict
	for rows.Next() {
		v, err := scanAIVerdict(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// SaveVerdict stores a human verdict.
func (r *Repository) SaveVerdict(ctx context.Context, v *entities.Verdict) error {
	sources, err := encodeStrings(v.Sources)
	if err != nil {
		return err
	}
	query := `INSERT INTO verdicts (` + verdictColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.q(ctx).ExecContext(ctx, query,
		v.ID,
		v.ClaimID,
		v.FactCheckerID,
		string(v.Verdict),
		v.Explanation,
		sources,
		v.AIVerdictID,
		v.IsFinal,
		utc(v.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving verdict: %w", err)
	}
	return nil
}

// FindVerdictByID finds a human verdict by its ID.
func (r *Repository) FindVerdictByID(ctx context.Context, id string) (*entities.Verdict, error) {
	query := `SELECT ` + verdictColumns + ` FROM verdicts WHERE id = ?`
	v, err := scanVerdict(r.q(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// FindVerdictsByClaim lists a claim's human verdicts, oldest first.
func (r *Repository) FindVerdictsByClaim(ctx context.Context, claimID string) ([]entities.Verdict, error) {
	query := `SELECT ` + verdictColumns + ` FROM verdicts WHERE claim_id = ? ORDER BY created_at ASC, id ASC`
	rows, err := r.q(ctx).QueryContext(ctx, query, claimID)
	if err != nil {
		return nil, fmt.Errorf("querying verdicts: %w", err)
	}
	defer rows.Close()

	var out []entities.Verdict
	for rows.Next() {
		v, err := scanVerdict(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// CountVerdictsByChecker counts verdicts authored by a reviewer.
func (r *Repository) CountVerdictsByChecker(ctx context.Context, factCheckerID string) (int, error) {
	var count int
	err := r.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM verdicts WHERE fact_checker_id = ?`, factCheckerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting verdicts: %w", err)
	}
	return count, nil
}

func scanAIVerdict(row rowScanner) (*entities.AIVerdict, error) {
	var v entities.AIVerdict
	var verdict, sources, mode string
	err := row.Scan(
		&v.ID,
		&v.ClaimID,
		&verdict,
		&v.ConfidenceScore,
		&v.Explanation,
		&sources,
		&v.ModelVersion,
		&mode,
		&v.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning ai verdict: %w", err)
	}
	v.Verdict = entities.VerdictLabel(verdict)
	v.ParseMode = entities.ParseMode(mode)
	if v.Sources, err = decodeStrings(sources); err != nil {
		return nil, err
	}
	return &v, nil
}

func scanVerdict(row rowScanner) (*entities.Verdict, error) {
	var v entities.Verdict
	var verdict, sources string
	err := row.Scan(
		&v.ID,
		&v.ClaimID,
		&v.FactCheckerID,
		&verdict,
		&v.Explanation,
		&sources,
		&v.AIVerdictID,
		&v.IsFinal,
		&v.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning verdict: %w", err)
	}
	v.Verdict = entities.VerdictLabel(verdict)
	if v.Sources, err = decodeStrings(sources); err != nil {
		return nil, err
	}
	return &v, nil
}
