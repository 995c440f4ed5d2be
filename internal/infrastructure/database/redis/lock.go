package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/logging"
	"github.com/appraisehub/valuation-platform/pkg/errors"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// unlockScript releases a lock only if the caller still owns it.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// PropertyLocker is the Redis-backed evidence.PropertyLocker.  One key per
// property serializes the pipeline across replicas; acquisition polls with a
// short interval until the context deadline.
type PropertyLocker struct {
	client       *Client
	ttl          time.Duration
	pollInterval time.Duration
	log          logging.Logger
}

// NewPropertyLocker constructs a PropertyLocker.  ttl bounds how long a
// crashed holder can block others.
func NewPropertyLocker(client *Client, ttl time.Duration, log logging.Logger) *PropertyLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &PropertyLocker{
		client:       client,
		ttl:          ttl,
		pollInterval: 50 * time.Millisecond,
		log:          log.Named("lock"),
	}
}

// WithLock implements evidence.PropertyLocker.
func (l *PropertyLocker) WithLock(ctx context.Context, address common.PropertyAddress, fn func(ctx context.Context) error) error {
	key := l.client.Key("lock", "property", address.String())
	owner := uuid.NewString()

	if err := l.acquire(ctx, key, owner); err != nil {
		return err
	}
	defer l.release(key, owner)

	return fn(ctx)
}

func (l *PropertyLocker) acquire(ctx context.Context, key, owner string) error {
	for {
		ok, err := l.client.SetNX(ctx, key, owner, l.ttl).Result()
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeEvidenceLockFailed, "failed to acquire property lock")
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.ErrCodeEvidenceLockFailed,
				"timed out waiting for property lock")
		case <-time.After(l.pollInterval):
		}
	}
}

func (l *PropertyLocker) release(key, owner string) {
	// Release outlives the caller's context so a cancelled operation still
	// frees the lock.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := unlockScript.Run(ctx, l.client.Client, []string{key}, owner).Err(); err != nil && err != redis.Nil {
		l.log.Warn("property lock release failed",
			logging.String("key", key),
			logging.Err(err))
	}
}
