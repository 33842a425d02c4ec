// Package sqlite provides a SQLite implementation of the RelationalDB interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/config"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// querier is the subset of *sql.DB and *sql.Tx the repository uses.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// Repository implements ports.RelationalDB using SQLite.
type Repository struct {
	db   *sql.DB
	path string
}

// NewRepository creates a new SQLite repository.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// One connection: every :memory: connection is a separate database, and
	// SQLite admits a single writer anyway.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", p, err)
		}
	}

	return &Repository{
		db:   db,
		path: cfg.Path,
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// Ping checks the connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// q returns the transaction carried by ctx, or the pool.
func (r *Repository) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return r.db
}

// WithinTx runs fn in a transaction. Calls made with the context handed to fn
// join it; a nested WithinTx reuses the outer transaction.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Claims (one row per distinct assertion; duplicates bump submission_count)
	CREATE TABLE IF NOT EXISTS claims (
		id TEXT PRIMARY KEY,
		submitter_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		media_url TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		submission_count INTEGER NOT NULL DEFAULT 1,
		similarity_hash TEXT NOT NULL,
		ai_verdict_id TEXT NOT NULL DEFAULT '',
		human_verdict_id TEXT NOT NULL DEFAULT '',
		assigned_fact_checker_id TEXT NOT NULL DEFAULT '',
		is_trending INTEGER NOT NULL DEFAULT 0,
		trending_score REAL NOT NULL DEFAULT 0,
		verdict_notified INTEGER NOT NULL DEFAULT 0,
		verdict_read_at TIMESTAMP,
		published_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status);
	CREATE INDEX IF NOT EXISTS idx_claims_hash ON claims(similarity_hash);
	CREATE INDEX IF NOT EXISTS idx_claims_submitter ON claims(submitter_id);
	CREATE INDEX IF NOT EXISTS idx_claims_checker ON claims(assigned_fact_checker_id);
	CREATE INDEX IF NOT EXISTS idx_claims_created ON claims(created_at);

	-- AI verdicts (immutable)
	CREATE TABLE IF NOT EXISTS ai_verdicts (
		id TEXT PRIMARY KEY,
		claim_id TEXT NOT NULL REFERENCES claims(id),
		verdict TEXT NOT NULL,
		confidence_score REAL NOT NULL,
		explanation TEXT NOT NULL,
		sources TEXT NOT NULL DEFAULT '[]',
		model_version TEXT NOT NULL DEFAULT '',
		parse_mode TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ai_verdicts_claim ON ai_verdicts(claim_id);

	-- Human verdicts
	CREATE TABLE IF NOT EXISTS verdicts (
		id TEXT PRIMARY KEY,
		claim_id TEXT NOT NULL REFERENCES claims(id),
		fact_checker_id TEXT NOT NULL,
		verdict TEXT NOT NULL,
		explanation TEXT NOT NULL,
		sources TEXT NOT NULL DEFAULT '[]',
		ai_verdict_id TEXT NOT NULL DEFAULT '',
		is_final INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_verdicts_claim ON verdicts(claim_id);
	CREATE INDEX IF NOT EXISTS idx_verdicts_checker ON verdicts(fact_checker_id);

	-- Review sessions (time a reviewer spends on a claim)
	CREATE TABLE IF NOT EXISTS review_sessions (
		id TEXT PRIMARY KEY,
		claim_id TEXT NOT NULL REFERENCES claims(id),
		fact_checker_id TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		end_reason TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_claim ON review_sessions(claim_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_checker ON review_sessions(fact_checker_id);

	-- Accounts
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		email_notifications INTEGER NOT NULL DEFAULT 1,
		push_notifications INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);

	-- Trending topics
	CREATE TABLE IF NOT EXISTS trending_topics (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		normalized_label TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL,
		engagement_score REAL NOT NULL DEFAULT 0,
		base_engagement REAL NOT NULL DEFAULT 0,
		claim_ids TEXT NOT NULL DEFAULT '[]',
		is_high_risk INTEGER NOT NULL DEFAULT 0,
		advisory_requested INTEGER NOT NULL DEFAULT 0,
		detected_at TIMESTAMP NOT NULL,
		last_activity_at TIMESTAMP NOT NULL
	);

	-- Advisories (one per topic)
	CREATE TABLE IF NOT EXISTS advisories (
		id TEXT PRIMARY KEY,
		topic_id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	-- Notifications (one per recipient and triggering event)
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		recipient_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		entity_type TEXT NOT NULL DEFAULT '',
		entity_id TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL,
		is_read INTEGER NOT NULL DEFAULT 0,
		read_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		UNIQUE(recipient_id, type, entity_type, entity_id)
	);
	CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, is_read);

	-- Categories
	CREATE TABLE IF NOT EXISTS categories (
		name TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		weight REAL NOT NULL DEFAULT 1,
		risk_threshold REAL NOT NULL DEFAULT 85,
		created_at TIMESTAMP NOT NULL
	);

	-- Audit log (tracks all actions)
	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		claim_id TEXT,
		details TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_log_claim ON audit_log(claim_id);
	CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
	CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at);
	`

	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// LogAction logs an action to the audit log.
func (r *Repository) LogAction(ctx context.Context, action string, claimID string, details map[string]any) error {
	var detailsJSON sql.NullString
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshaling details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `INSERT INTO audit_log (action, claim_id, details, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.q(ctx).ExecContext(ctx, query, action, nullString(claimID), detailsJSON, utc(timeNow()))
	if err != nil {
		return fmt.Errorf("logging action: %w", err)
	}
	return nil
}

// FindAuditLog finds audit log entries for a claim, oldest first.
func (r *Repository) FindAuditLog(ctx context.Context, claimID string) ([]entities.AuditEntry, error) {
	query := `
		SELECT id, action, claim_id, details, created_at
		FROM audit_log
		WHERE claim_id = ?
		ORDER BY id ASC
	`
	return r.queryAuditLog(ctx, query, claimID)
}

// FindAuditLogByAction finds audit log entries by action type, newest first.
func (r *Repository) FindAuditLogByAction(ctx context.Context, action string, limit int) ([]entities.AuditEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT id, action, claim_id, details, created_at
		FROM audit_log
		WHERE action = ?
		ORDER BY id DESC
		LIMIT ?
	`
	return r.queryAuditLog(ctx, query, action, limit)
}

// queryAuditLog is a helper to execute audit log queries.
func (r *Repository) queryAuditLog(ctx context.Context, query string, args ...any) ([]entities.AuditEntry, error) {
	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var entries []entities.AuditEntry
	for rows.Next() {
		var entry entities.AuditEntry
		var claimID, details sql.NullString

		if err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&claimID,
			&details,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		entry.ClaimID = claimID.String

		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &entry.Details); err != nil {
				return nil, fmt.Errorf("unmarshaling details: %w", err)
			}
		}

		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// utc normalizes stored times so string comparisons in SQL order correctly.
func utc(t time.Time) time.Time {
	return t.UTC()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("marshaling list: %w", err)
	}
	return string(data), nil
}

func decodeStrings(data string) ([]string, error) {
	if data == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("unmarshaling list: %w", err)
	}
	return values, nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func statusArgs(statuses []entities.ClaimStatus) []any {
	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = string(s)
	}
	return args
}
