package ports

import (
	"context"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

// Channel is a secondary delivery path (email, push) for a notification that
// is already stored.
type Channel interface {
	// Name identifies the channel in logs and metrics.
	Name() string

	// Enabled reports whether the user opted into this channel.
	Enabled(user *entities.User) bool

	// Deliver sends the notification to the user.
	Deliver(ctx context.Context, user *entities.User, n *entities.Notification) error
}
