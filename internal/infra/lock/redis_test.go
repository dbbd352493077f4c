package lock

import (
	"context"
	"testing"
	"time"

	"health_notification_service/internal/infra/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := NewRedisClient(mr.Addr(), "", 0)
	t.Cleanup(func() { rdb.Close() })
	return NewRedisLocker(rdb, logger.Discard()), mr
}

func TestRedisLocker_Exclusive(t *testing.T) {
	l, mr := newRedisLocker(t)
	ctx := context.Background()

	release, ok, err := l.TryLock(ctx, "cycle", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists(keyPrefix+"cycle"))

	_, ok, err = l.TryLock(ctx, "cycle", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	_, ok, _ = l.TryLock(ctx, "seed", time.Minute)
	assert.True(t, ok, "locks are per name")

	release()
	assert.False(t, mr.Exists(keyPrefix+"cycle"))

	_, ok, _ = l.TryLock(ctx, "cycle", time.Minute)
	assert.True(t, ok, "released lock can be taken again")
}

func TestRedisLocker_StaleReleaseKeepsNewOwner(t *testing.T) {
	l, mr := newRedisLocker(t)
	ctx := context.Background()

	stale, ok, err := l.TryLock(ctx, "cycle", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(time.Minute)
	require.False(t, mr.Exists(keyPrefix+"cycle"), "lock expired")

	_, ok, err = l.TryLock(ctx, "cycle", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	owner, err := mr.Get(keyPrefix + "cycle")
	require.NoError(t, err)

	stale()

	current, err := mr.Get(keyPrefix + "cycle")
	require.NoError(t, err, "new owner's key must survive")
	assert.Equal(t, owner, current)
}

func TestRedisLocker_Unreachable(t *testing.T) {
	l, mr := newRedisLocker(t)
	mr.Close()

	_, ok, err := l.TryLock(context.Background(), "cycle", time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
}
