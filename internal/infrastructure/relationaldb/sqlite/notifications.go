package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

const notificationColumns = `id, recipient_id, type, title, message, entity_type, entity_id,
	priority, is_read, read_at, created_at`

// SaveNotification inserts a notification unless the (recipient, type,
// entity) key already exists. Reports whether a row was created.
func (r *Repository) SaveNotification(ctx context.Context, n *entities.Notification) (bool, error) {
	query := `INSERT INTO notifications (` + notificationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(recipient_id, type, entity_type, entity_id) DO NOTHING`
	result, err := r.q(ctx).ExecContext(ctx, query,
		n.ID,
		n.RecipientID,
		string(n.Type),
		n.Title,
		n.Message,
		n.EntityType,
		n.EntityID,
		string(n.Priority),
		n.IsRead,
		nullTime(n.ReadAt),
		utc(n.CreatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("saving notification: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// FindNotificationByID finds a notification by its ID.
func (r *Repository) FindNotificationByID(ctx context.Context, id string) (*entities.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`
	n, err := scanNotification(r.q(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotifications lists a user's notifications, newest first.
func (r *Repository) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]entities.Notification, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE recipient_id = ? AND (? = 0 OR is_read = 0)
		ORDER BY created_at DESC, id ASC
		LIMIT ?`
	rows, err := r.q(ctx).QueryContext(ctx, query, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var out []entities.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// MarkNotificationRead sets is_read on one notification if still unread.
func (r *Repository) MarkNotificationRead(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE notifications SET is_read = 1, read_at = ? WHERE id = ? AND is_read = 0`
	if _, err := r.q(ctx).ExecContext(ctx, query, utc(at), id); err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification of a user read.
func (r *Repository) MarkAllNotificationsRead(ctx context.Context, userID string, at time.Time) (int, error) {
	query := `UPDATE notifications SET is_read = 1, read_at = ? WHERE recipient_id = ? AND is_read = 0`
	result, err := r.q(ctx).ExecContext(ctx, query, utc(at), userID)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

func scanNotification(row rowScanner) (*entities.Notification, error) {
	var n entities.Notification
	var typ, priority string
	var readAt sql.NullTime
	err := row.Scan(
		&n.ID,
		&n.RecipientID,
		&typ,
		&n.Title,
		&n.Message,
		&n.EntityType,
		&n.EntityID,
		&priority,
		&n.IsRead,
		&readAt,
		&n.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning notification: %w", err)
	}
	n.Type = entities.NotificationType(typ)
	n.Priority = entities.NotificationPriority(priority)
	n.ReadAt = timePtr(readAt)
	return &n, nil
}
