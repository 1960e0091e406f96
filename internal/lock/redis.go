package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyNamespace = "storefront:lock:"

// releaseScript deletes the key only while it still holds our owner token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisClient is the subset of the go-redis client used by RedisLocker
type RedisClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisLocker implements Locker with SET NX PX and an owner token, so that
// several API instances serialize on the same keys
type RedisLocker struct {
	client RedisClient
	opts   Options
}

// NewRedisLocker constructs a Redis-backed locker
func NewRedisLocker(client RedisClient, opts Options) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	return &RedisLocker{client: client, opts: opts.withDefaults()}, nil
}

// Obtain polls until the key is set for us, the wait time elapses or ctx is done
func (l *RedisLocker) Obtain(ctx context.Context, key string) (Lease, error) {
	if key == "" {
		return nil, errors.New("lock key is required")
	}

	fullKey := keyNamespace + key
	owner := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.opts.Wait)
	defer cancel()

	ticker := time.NewTicker(l.opts.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, fullKey, owner, l.opts.TTL).Result()
		if err != nil {
			if waitCtx.Err() != nil {
				return nil, waitError(ctx)
			}
			return nil, fmt.Errorf("setnx: %w", err)
		}
		if ok {
			return &redisLease{client: l.client, key: fullKey, owner: owner}, nil
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			return nil, waitError(ctx)
		}
	}
}

type redisLease struct {
	client RedisClient
	key    string
	owner  string

	mu       sync.Mutex
	released bool
}

// Release frees the lock only if the owner value still matches
func (l *redisLease) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released {
		return nil
	}

	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock: %w", err)
	}

	l.released = true
	return nil
}
