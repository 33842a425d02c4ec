package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

// PushMessage is what subscribers of the push channel receive. A gateway
// process fans it out to the user's devices.
type PushMessage struct {
	UserID         string                        `json:"user_id"`
	NotificationID string                        `json:"notification_id"`
	Type           entities.NotificationType     `json:"type"`
	Title          string                        `json:"title"`
	Message        string                        `json:"message"`
	Priority       entities.NotificationPriority `json:"priority"`
	EntityType     string                        `json:"entity_type,omitempty"`
	EntityID       string                        `json:"entity_id,omitempty"`
}

// PushChannel implements ports.Channel by publishing to a Redis channel.
type PushChannel struct {
	client  *Client
	channel string
}

// NewPushChannel publishes to the given Redis channel name.
func NewPushChannel(client *Client, channel string) *PushChannel {
	if channel == "" {
		channel = client.Key("notifications")
	}
	return &PushChannel{client: client, channel: channel}
}

// Name identifies the channel.
func (p *PushChannel) Name() string { return "push" }

// Enabled reports whether the user opted into push notifications.
func (p *PushChannel) Enabled(user *entities.User) bool {
	return user != nil && user.PushNotifications
}

// Deliver publishes the notification.
func (p *PushChannel) Deliver(ctx context.Context, user *entities.User, n *entities.Notification) error {
	data, err := json.Marshal(newPushMessage(user, n))
	if err != nil {
		return fmt.Errorf("encoding push message: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publishing push message: %w", err)
	}
	return nil
}

// Subscribe streams decoded push messages until ctx is done.
func (p *PushChannel) Subscribe(ctx context.Context, fn func(PushMessage)) error {
	sub := p.client.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var pm PushMessage
			if err := json.Unmarshal([]byte(msg.Payload), &pm); err != nil {
				continue
			}
			fn(pm)
		}
	}
}

func newPushMessage(user *entities.User, n *entities.Notification) PushMessage {
	return PushMessage{
		UserID:         user.ID,
		NotificationID: n.ID,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		Priority:       n.Priority,
		EntityType:     n.EntityType,
		EntityID:       n.EntityID,
	}
}
