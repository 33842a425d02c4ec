package mocks

import (
	"context"
	"sync"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

// Channel is a mock implementation of ports.Channel.
type Channel struct {
	mu sync.Mutex

	ChannelName string
	// Gate decides Enabled; nil means always enabled.
	Gate func(u *entities.User) bool
	Err  error

	Delivered []entities.Notification
}

// Name returns the channel name.
func (m *Channel) Name() string {
	if m.ChannelName == "" {
		return "mock"
	}
	return m.ChannelName
}

// Enabled applies Gate.
func (m *Channel) Enabled(u *entities.User) bool {
	if m.Gate == nil {
		return true
	}
	return m.Gate(u)
}

// Deliver records the notification or returns Err.
func (m *Channel) Deliver(_ context.Context, _ *entities.User, n *entities.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Delivered = append(m.Delivered, *n)
	return nil
}

// Count returns the number of deliveries.
func (m *Channel) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Delivered)
}
