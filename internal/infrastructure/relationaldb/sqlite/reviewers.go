package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

const sessionColumns = `id, claim_id, fact_checker_id, started_at, ended_at, duration_seconds, end_reason`

const userColumns = `id, email, name, role, status, email_notifications, push_notifications, created_at`

// SaveSession inserts or updates a review session.
func (r *Repository) SaveSession(ctx context.Context, s *entities.ReviewSession) error {
	query := `INSERT INTO review_sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			ended_at = excluded.ended_at,
			duration_seconds = excluded.duration_seconds,
			end_reason = excluded.end_reason`
	_, err := r.q(ctx).ExecContext(ctx, query,
		s.ID,
		s.ClaimID,
		s.FactCheckerID,
		utc(s.StartedAt),
		nullTime(s.EndedAt),
		s.DurationSeconds,
		s.EndReason,
	)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// FindSessionByID finds a review session by its ID.
func (r *Repository) FindSessionByID(ctx context.Context, id string) (*entities.ReviewSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM review_sessions WHERE id = ?`
	return r.findSession(ctx, query, id)
}

// FindOpenSession finds the open session for a claim, if any.
func (r *Repository) FindOpenSession(ctx context.Context, claimID string) (*entities.ReviewSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM review_sessions
		WHERE claim_id = ? AND ended_at IS NULL
		ORDER BY started_at DESC LIMIT 1`
	return r.findSession(ctx, query, claimID)
}

func (r *Repository) findSession(ctx context.Context, query string, args ...any) (*entities.ReviewSession, error) {
	s, err := scanSession(r.q(ctx).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// FindOpenSessionsStartedBefore lists open sessions started before t, oldest first.
func (r *Repository) FindOpenSessionsStartedBefore(ctx context.Context, t time.Time) ([]entities.ReviewSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM review_sessions
		WHERE ended_at IS NULL AND started_at < ?
		ORDER BY started_at ASC`
	return r.querySessions(ctx, query, utc(t))
}

// FindSessionsByChecker lists a reviewer's sessions, newest first.
func (r *Repository) FindSessionsByChecker(ctx context.Context, factCheckerID string) ([]entities.ReviewSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM review_sessions
		WHERE fact_checker_id = ?
		ORDER BY started_at DESC`
	return r.querySessions(ctx, query, factCheckerID)
}

func (r *Repository) querySessions(ctx context.Context, query string, args ...any) ([]entities.ReviewSession, error) {
	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var out []entities.ReviewSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func scanSession(row rowScanner) (*entities.ReviewSession, error) {
	var s entities.ReviewSession
	var ended sql.NullTime
	err := row.Scan(
		&s.ID,
		&s.ClaimID,
		&s.FactCheckerID,
		&s.StartedAt,
		&ended,
		&s.DurationSeconds,
		&s.EndReason,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	s.EndedAt = timePtr(ended)
	return &s, nil
}

// SaveUser inserts or updates an account.
func (r *Repository) SaveUser(ctx context.Context, u *entities.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			role = excluded.role,
			status = excluded.status,
			email_notifications = excluded.email_notifications,
			push_notifications = excluded.push_notifications`
	_, err := r.q(ctx).ExecContext(ctx, query,
		u.ID,
		u.Email,
		u.Name,
		string(u.Role),
		string(u.Status),
		u.EmailNotifications,
		u.PushNotifications,
		utc(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

// FindUserByID finds an account by its ID.
func (r *Repository) FindUserByID(ctx context.Context, id string) (*entities.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	u, err := scanUser(r.q(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsersByRole lists accounts with the given role, ordered by ID.
func (r *Repository) ListUsersByRole(ctx context.Context, role entities.UserRole) ([]entities.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = ? ORDER BY id ASC`
	rows, err := r.q(ctx).QueryContext(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var out []entities.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func scanUser(row rowScanner) (*entities.User, error) {
	var u entities.User
	var role, status string
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&role,
		&status,
		&u.EmailNotifications,
		&u.PushNotifications,
		&u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	u.Role = entities.UserRole(role)
	u.Status = entities.UserStatus(status)
	return &u, nil
}
