package pipeline

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

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisLockerExclusive(t *testing.T) {
	_, rdb := setupTestRedis(t)
	locker := NewRedisLocker(rdb)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "a1", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "a1", time.Minute)
	assert.True(t, errors.Is(err, ErrLockHeld))

	other, err := locker.Acquire(ctx, "a2", time.Minute)
	require.NoError(t, err, "different attempts must not contend")
	other()

	release()
	again, err := locker.Acquire(ctx, "a1", time.Minute)
	require.NoError(t, err)
	again()
}

func TestRedisLockerExpiredLeaseDoesNotReleaseNewOwner(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	locker := NewRedisLocker(rdb)
	ctx := context.Background()

	staleRelease, err := locker.Acquire(ctx, "a1", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	_, err = locker.Acquire(ctx, "a1", time.Minute)
	require.NoError(t, err)

	staleRelease()
	assert.True(t, mr.Exists("interview:lock:a1"), "stale owner must not delete the new owner's lock")
}

func TestLocalLockerConcurrentAcquire(t *testing.T) {
	locker := NewLocalLocker()
	var winners int32
	var wg sync.WaitGroup
	releases := make(chan func(), 16)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), "a1", time.Minute)
			if err == nil {
				atomic.AddInt32(&winners, 1)
				releases <- release
			}
		}()
	}
	wg.Wait()
	close(releases)

	assert.Equal(t, int32(1), winners)
	for release := range releases {
		release()
		release()
	}
	_, err := locker.Acquire(context.Background(), "a1", time.Minute)
	assert.NoError(t, err)
}
