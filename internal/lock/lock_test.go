package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T, opts Options) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	locker, err := NewRedisLocker(client, opts)
	require.NoError(t, err)
	return locker, mr
}

func TestRedisLocker_ObtainAndRelease(t *testing.T) {
	locker, mr := newRedisLocker(t, Options{TTL: time.Second, Wait: 50 * time.Millisecond, RetryInterval: 5 * time.Millisecond})
	ctx := context.Background()

	lease, err := locker.Obtain(ctx, CartKey("u1"))
	require.NoError(t, err)
	assert.True(t, mr.Exists(keyNamespace+"cart:u1"))

	_, err = locker.Obtain(ctx, CartKey("u1"))
	assert.ErrorIs(t, err, ErrNotObtained)

	require.NoError(t, lease.Release(ctx))
	assert.False(t, mr.Exists(keyNamespace+"cart:u1"))

	// Releasing twice is harmless
	require.NoError(t, lease.Release(ctx))

	again, err := locker.Obtain(ctx, CartKey("u1"))
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestRedisLocker_ReleaseKeepsForeignOwner(t *testing.T) {
	locker, mr := newRedisLocker(t, Options{TTL: time.Second, Wait: 20 * time.Millisecond, RetryInterval: 5 * time.Millisecond})
	ctx := context.Background()

	lease, err := locker.Obtain(ctx, ProductRatingKey("p1"))
	require.NoError(t, err)

	// Simulate the lease expiring and another instance taking the key
	key := keyNamespace + "product-rating:p1"
	mr.Del(key)
	require.NoError(t, mr.Set(key, "someone-else"))

	require.NoError(t, lease.Release(ctx))

	value, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", value)
}

func TestRedisLocker_ExpiredLeaseFreesKey(t *testing.T) {
	locker, mr := newRedisLocker(t, Options{TTL: 100 * time.Millisecond, Wait: 20 * time.Millisecond, RetryInterval: 5 * time.Millisecond})
	ctx := context.Background()

	_, err := locker.Obtain(ctx, CartKey("u2"))
	require.NoError(t, err)

	mr.FastForward(200 * time.Millisecond)

	lease, err := locker.Obtain(ctx, CartKey("u2"))
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
}

func TestRedisLocker_CancelledContext(t *testing.T) {
	locker, _ := newRedisLocker(t, Options{TTL: time.Second, Wait: time.Second, RetryInterval: 5 * time.Millisecond})

	held, err := locker.Obtain(context.Background(), CartKey("u3"))
	require.NoError(t, err)
	defer held.Release(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = locker.Obtain(ctx, CartKey("u3"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRedisLocker_RequiresClient(t *testing.T) {
	_, err := NewRedisLocker(nil, Options{})
	assert.Error(t, err)
}

func TestLocalLocker_MutualExclusion(t *testing.T) {
	locker := NewLocalLocker(Options{Wait: 5 * time.Second})
	ctx := context.Background()

	var (
		inside  int32
		maxSeen int32
		counter int
		wg      sync.WaitGroup
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := locker.Obtain(ctx, CartKey("shared"))
			if err != nil {
				t.Error(err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			counter++
			atomic.AddInt32(&inside, -1)
			_ = lease.Release(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, int32(1), maxSeen)
	assert.Empty(t, locker.slots)
}

func TestLocalLocker_DistinctKeysDoNotBlock(t *testing.T) {
	locker := NewLocalLocker(Options{Wait: 10 * time.Millisecond})
	ctx := context.Background()

	a, err := locker.Obtain(ctx, CartKey("a"))
	require.NoError(t, err)
	b, err := locker.Obtain(ctx, CartKey("b"))
	require.NoError(t, err)

	require.NoError(t, a.Release(ctx))
	require.NoError(t, b.Release(ctx))
}

func TestLocalLocker_WaitTimeout(t *testing.T) {
	locker := NewLocalLocker(Options{Wait: 10 * time.Millisecond})
	ctx := context.Background()

	lease, err := locker.Obtain(ctx, CartKey("busy"))
	require.NoError(t, err)

	_, err = locker.Obtain(ctx, CartKey("busy"))
	assert.True(t, errors.Is(err, ErrNotObtained))

	require.NoError(t, lease.Release(ctx))
	require.NoError(t, lease.Release(ctx))
	assert.Empty(t, locker.slots)
}
