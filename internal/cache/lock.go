package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// defaultLockTTL bounds how long a crashed holder can block a session.
const defaultLockTTL = 2 * time.Minute

// releaseScript deletes the key only if it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ExchangeLock is a per-session mutual-exclusion flag held in Redis, so the
// single-exchange rule holds across server replicas.
type ExchangeLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewExchangeLock constructs an ExchangeLock with a 2-minute expiry.
func NewExchangeLock(client *redis.Client) *ExchangeLock {
	return &ExchangeLock{client: client, ttl: defaultLockTTL}
}

func lockKey(sessionID string) string {
	return "chat:inflight:" + sessionID
}

// TryAcquire takes the lock for sessionID without waiting.
// ok is false when another holder has it.
func (l *ExchangeLock) TryAcquire(ctx context.Context, sessionID string) (func(), bool, error) {
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, lockKey(sessionID), token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquiring exchange lock for %s: %w", sessionID, err)
	}
	if !acquired {
		return nil, false, nil
	}

	release := func() {
		// The request context may already be done.
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{lockKey(sessionID)}, token).Err(); err != nil {
			slog.Warn("releasing exchange lock failed", "session", sessionID, "err", err)
		}
	}
	return release, true, nil
}
