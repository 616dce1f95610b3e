package rediscache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const orderLockPrefix = "courierbridge:lock:order:"

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// OrderLocker is a cross-process per-order mutex built on SET NX PX.
type OrderLocker struct {
	c   *redis.Client
	ttl time.Duration
}

func NewOrderLocker(c *redis.Client, ttl time.Duration) *OrderLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &OrderLocker{c: c, ttl: ttl}
}

// TryLock acquires the lock for key without waiting. The lock expires after
// the configured TTL if unlock is never called.
func (l *OrderLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.c.SetNX(ctx, orderLockPrefix+key, token, l.ttl).Result()
	if err != nil {
		return nil, false, errors.Wrap(err, "redis lock")
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func() {
		// Release must outlive a cancelled request context.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.c, []string{orderLockPrefix + key}, token).Err()
	}
	return unlock, true, nil
}
