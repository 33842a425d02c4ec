package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

// Locker implements ports.Locker with an expiring in-process cache.
type Locker struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

// NewLocker creates a locker whose expired entries are swept every cleanup.
func NewLocker(cleanup time.Duration) *Locker {
	return &Locker{cache: gocache.New(gocache.NoExpiration, cleanup)}
}

// Acquire takes the lock or fails with entities.ErrLockHeld.
func (l *Locker) Acquire(_ context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.cache.Add(key, token, ttl); err != nil {
		return "", entities.ErrLockHeld
	}
	return token, nil
}

// Release frees the lock if token still owns it.
func (l *Locker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held, ok := l.cache.Get(key); ok && held.(string) == token {
		l.cache.Delete(key)
	}
	return nil
}
