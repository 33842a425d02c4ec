package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/ports"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/logger"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/metrics"
)

// Entity types referenced by notifications.
const (
	EntityClaim      = "claim"
	EntityAssignment = "assignment"
	EntityVerdict    = "verdict"
	EntityTopic      = "trending_topic"
	EntityAlert      = "alert"
)

// NotificationDispatcher writes notification rows and fans them out to
// secondary channels. The row is the durable record; channel delivery is
// best-effort and only logged on failure.
type NotificationDispatcher struct {
	relationalDB ports.RelationalDB
	channels     []ports.Channel
	log          *logger.Logger
	metrics      *metrics.Metrics
}

// NewNotificationDispatcher creates a dispatcher over the given channels.
func NewNotificationDispatcher(relationalDB ports.RelationalDB, channels []ports.Channel, log *logger.Logger, m *metrics.Metrics) *NotificationDispatcher {
	return &NotificationDispatcher{
		relationalDB: relationalDB,
		channels:     channels,
		log:          log,
		metrics:      m,
	}
}

// Dispatch stores n and delivers it on every channel the recipient opted
// into. A notification already stored for the same recipient, type and
// entity is not stored or delivered again. Reports whether a row was created.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, n *entities.Notification) (bool, error) {
	if n.RecipientID == "" {
		return false, &entities.ValidationError{Field: "recipient_id", Reason: "required"}
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Priority == "" {
		n.Priority = entities.NotificationNormal
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = timeNow().UTC()
	}

	created, err := d.relationalDB.SaveNotification(ctx, n)
	if err != nil {
		return false, fmt.Errorf("saving notification: %w", err)
	}
	if !created {
		return false, nil
	}

	d.deliver(ctx, n)
	return true, nil
}

func (d *NotificationDispatcher) deliver(ctx context.Context, n *entities.Notification) {
	if len(d.channels) == 0 {
		return
	}
	user, err := d.relationalDB.FindUserByID(ctx, n.RecipientID)
	if err != nil {
		d.log.Warn("resolving notification recipient", "notification_id", n.ID, "error", err)
		return
	}
	if user == nil {
		return
	}
	for _, ch := range d.channels {
		if !ch.Enabled(user) {
			continue
		}
		if err := ch.Deliver(ctx, user, n); err != nil {
			d.log.Warn("notification delivery failed",
				"channel", ch.Name(),
				"notification_id", n.ID,
				"error", err,
			)
			d.metrics.IncDelivery(ch.Name(), "failed")
			continue
		}
		d.metrics.IncDelivery(ch.Name(), "delivered")
	}
}

// NotifyVerdict tells the submitter their claim has a published verdict.
func (d *NotificationDispatcher) NotifyVerdict(ctx context.Context, claim *entities.Claim, verdict *entities.Verdict) error {
	_, err := d.Dispatch(ctx, &entities.Notification{
		RecipientID: claim.SubmitterID,
		Type:        entities.NotificationVerdictPublished,
		Title:       "Your claim has been fact-checked",
		Message:     fmt.Sprintf("%q was rated %s.", claim.Title, verdict.Verdict),
		EntityType:  EntityVerdict,
		EntityID:    verdict.ID,
		Priority:    entities.NotificationHigh,
	})
	return err
}

// NotifyAssignment tells a fact-checker a claim was assigned to them.
// attempt numbers the claim's assignments so that each one notifies once.
func (d *NotificationDispatcher) NotifyAssignment(ctx context.Context, claim *entities.Claim, factCheckerID string, attempt int) error {
	_, err := d.Dispatch(ctx, &entities.Notification{
		RecipientID: factCheckerID,
		Type:        entities.NotificationClaimAssigned,
		Title:       "New claim assigned",
		Message:     fmt.Sprintf("You have been assigned %q for review.", claim.Title),
		EntityType:  EntityAssignment,
		EntityID:    fmt.Sprintf("%s/%d", claim.ID, attempt),
		Priority:    entities.NotificationNormal,
	})
	return err
}

// NotifyRejection tells the submitter their claim was rejected.
func (d *NotificationDispatcher) NotifyRejection(ctx context.Context, claim *entities.Claim, reason string) error {
	msg := fmt.Sprintf("%q was not accepted for fact-checking.", claim.Title)
	if reason != "" {
		msg += " Reason: " + reason
	}
	_, err := d.Dispatch(ctx, &entities.Notification{
		RecipientID: claim.SubmitterID,
		Type:        entities.NotificationClaimRejected,
		Title:       "Claim rejected",
		Message:     msg,
		EntityType:  EntityClaim,
		EntityID:    claim.ID,
		Priority:    entities.NotificationNormal,
	})
	return err
}

// Broadcast sends a system alert to every user in userIDs. alertID keys
// the notifications, so repeating a broadcast is a no-op for users who
// already have it. Returns how many rows were created.
func (d *NotificationDispatcher) Broadcast(ctx context.Context, alertID string, userIDs []string, title, message string, priority entities.NotificationPriority) (int, error) {
	if alertID == "" {
		alertID = uuid.New().String()
	}
	created := 0
	for _, uid := range userIDs {
		ok, err := d.Dispatch(ctx, &entities.Notification{
			RecipientID: uid,
			Type:        entities.NotificationSystemAlert,
			Title:       title,
			Message:     message,
			EntityType:  EntityAlert,
			EntityID:    alertID,
			Priority:    priority,
		})
		if err != nil {
			return created, fmt.Errorf("notifying %s: %w", uid, err)
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// NotifyTrending alerts every admin that a topic turned high-risk.
func (d *NotificationDispatcher) NotifyTrending(ctx context.Context, topic *entities.TrendingTopic) error {
	admins, err := d.relationalDB.ListUsersByRole(ctx, entities.RoleAdmin)
	if err != nil {
		return fmt.Errorf("listing admins: %w", err)
	}
	for _, admin := range admins {
		if admin.Status != entities.UserActive {
			continue
		}
		_, err := d.Dispatch(ctx, &entities.Notification{
			RecipientID: admin.ID,
			Type:        entities.NotificationTrendingAlert,
			Title:       "High-risk trending topic",
			Message:     fmt.Sprintf("%q reached engagement %.0f in %s.", topic.Label, topic.EngagementScore, topic.Category),
			EntityType:  EntityTopic,
			EntityID:    topic.ID,
			Priority:    entities.NotificationHigh,
		})
		if err != nil {
			return fmt.Errorf("notifying admin %s: %w", admin.ID, err)
		}
	}
	return nil
}

// ListForUser returns a user's notifications, newest first.
func (d *NotificationDispatcher) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]entities.Notification, error) {
	return d.relationalDB.ListNotifications(ctx, userID, unreadOnly, limit)
}

// MarkRead marks one notification read. Only the recipient may do this;
// anyone else gets NotFoundError so ids are not disclosed.
func (d *NotificationDispatcher) MarkRead(ctx context.Context, notificationID, userID string) error {
	n, err := d.relationalDB.FindNotificationByID(ctx, notificationID)
	if err != nil {
		return fmt.Errorf("finding notification: %w", err)
	}
	if n == nil || n.RecipientID != userID {
		return &entities.NotFoundError{Entity: "notification", ID: notificationID}
	}
	if n.IsRead {
		return nil
	}
	if err := d.relationalDB.MarkNotificationRead(ctx, notificationID, timeNow().UTC()); err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every unread notification of userID read.
func (d *NotificationDispatcher) MarkAllRead(ctx context.Context, userID string) (int, error) {
	n, err := d.relationalDB.MarkAllNotificationsRead(ctx, userID, timeNow().UTC())
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	return n, nil
}
