package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/services"
)

// NotificationHandler handles inbox queries and system alerts.
type NotificationHandler struct {
	notifier *services.NotificationDispatcher
	users    *services.UserService
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(notifier *services.NotificationDispatcher, users *services.UserService) *NotificationHandler {
	return &NotificationHandler{notifier: notifier, users: users}
}

// List returns a user's notifications, newest first.
func (h *NotificationHandler) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]entities.Notification, error) {
	return h.notifier.ListForUser(ctx, userID, unreadOnly, limit)
}

// MarkRead marks one notification read on behalf of its recipient.
func (h *NotificationHandler) MarkRead(ctx context.Context, notificationID, userID string) error {
	return h.notifier.MarkRead(ctx, notificationID, userID)
}

// MarkAllRead marks every notification of userID read.
func (h *NotificationHandler) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return h.notifier.MarkAllRead(ctx, userID)
}

// AlertRequest is a system alert. Recipients are UserIDs, or every active
// account holding Role when UserIDs is empty.
type AlertRequest struct {
	AlertID  string
	UserIDs  []string
	Role     string
	Title    string
	Message  string
	Priority string
}

// Alert broadcasts a system alert and returns how many users got a new row.
func (h *NotificationHandler) Alert(ctx context.Context, req AlertRequest) (int, error) {
	if strings.TrimSpace(req.Title) == "" {
		return 0, &entities.ValidationError{Field: "title", Reason: "required"}
	}
	priority, err := parseNotificationPriority(req.Priority)
	if err != nil {
		return 0, err
	}

	recipients := req.UserIDs
	if len(recipients) == 0 {
		if req.Role == "" {
			return 0, &entities.ValidationError{Field: "recipients", Reason: "user ids or a role are required"}
		}
		role, err := parseRole(req.Role)
		if err != nil {
			return 0, err
		}
		users, err := h.users.ListByRole(ctx, role)
		if err != nil {
			return 0, err
		}
		for _, u := range users {
			if u.Status == entities.UserActive {
				recipients = append(recipients, u.ID)
			}
		}
	}

	return h.notifier.Broadcast(ctx, req.AlertID, recipients, req.Title, req.Message, priority)
}

func parseNotificationPriority(s string) (entities.NotificationPriority, error) {
	switch p := entities.NotificationPriority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return entities.NotificationNormal, nil
	case entities.NotificationLow, entities.NotificationNormal, entities.NotificationHigh:
		return p, nil
	default:
		return "", &entities.ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", s)}
	}
}
