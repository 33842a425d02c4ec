package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

// releaseScript deletes the lock only while the caller's token still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements ports.Locker with SET NX PX.
type Locker struct {
	client *Client
}

// NewLocker creates a locker under the client's key prefix.
func NewLocker(client *Client) *Locker {
	return &Locker{client: client}
}

// Acquire takes the lock or fails with entities.ErrLockHeld.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, l.client.Key("lock", key), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquiring lock %s: %w", key, err)
	}
	if !ok {
		return "", entities.ErrLockHeld
	}
	return token, nil
}

// Release frees the lock if token still owns it.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.client.Key("lock", key)}, token).Err(); err != nil {
		return fmt.Errorf("releasing lock %s: %w", key, err)
	}
	return nil
}
