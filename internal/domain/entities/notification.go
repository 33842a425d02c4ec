package entities

import "time"

// NotificationType identifies the event that produced a notification.
type NotificationType string

// Notification types.
const (
	NotificationVerdictPublished NotificationType = "verdict_published"
	NotificationClaimAssigned    NotificationType = "claim_assigned"
	NotificationClaimRejected    NotificationType = "claim_rejected"
	NotificationSystemAlert      NotificationType = "system_alert"
	NotificationTrendingAlert    NotificationType = "trending_alert"
)

// NotificationPriority orders notifications in a user's inbox.
type NotificationPriority string

// Notification priorities.
const (
	NotificationLow    NotificationPriority = "low"
	NotificationNormal NotificationPriority = "normal"
	NotificationHigh   NotificationPriority = "high"
)

// Notification is a durable inbox row. Only the recipient flips IsRead.
// (RecipientID, Type, EntityType, EntityID) identifies the triggering event,
// so dispatching the same event twice yields one row.
type Notification struct {
	ID          string               `json:"id"`
	RecipientID string               `json:"recipient_id"`
	Type        NotificationType     `json:"type"`
	Title       string               `json:"title"`
	Message     string               `json:"message"`
	EntityType  string               `json:"entity_type"`
	EntityID    string               `json:"entity_id"`
	Priority    NotificationPriority `json:"priority"`
	IsRead      bool                 `json:"is_read"`
	ReadAt      *time.Time           `json:"read_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}
