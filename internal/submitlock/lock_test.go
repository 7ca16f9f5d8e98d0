package submitlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/costline/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedisLocker_ExclusiveUntilReleased(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	locker := NewRedisLocker(client)

	token, ok, err := locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, "k", "someone-else"))
	assert.True(t, mr.Exists("k"))

	require.NoError(t, locker.Release(ctx, "k", token))
	assert.False(t, mr.Exists("k"))

	_, ok, err = locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_Expires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	locker := NewRedisLocker(client)

	_, ok, err := locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	locker := NewLocalLocker()
	locker.now = func() time.Time { return now }

	token, ok, err := locker.TryLock(ctx, "doc", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, _ = locker.TryLock(ctx, "doc", 10*time.Second)
	assert.False(t, ok)

	now = now.Add(11 * time.Second)
	_, ok, _ = locker.TryLock(ctx, "doc", 10*time.Second)
	assert.True(t, ok, "expired lock is reclaimed")

	_ = locker.Release(ctx, "doc", token)
	_, ok, _ = locker.TryLock(ctx, "doc", 10*time.Second)
	assert.False(t, ok, "stale token does not release the new holder")

	_, _, err = locker.TryLock(ctx, "", time.Second)
	assert.Error(t, err)
}

func TestGuard_Acquire(t *testing.T) {
	ctx := context.Background()
	guard := NewGuard(NewLocalLocker(), config.NewStaticEngineConfigHolder(config.DefaultEngineConfig()), zap.NewNop())

	release, ok, err := guard.Acquire(ctx, snowflake.ID(7))
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = guard.Acquire(ctx, snowflake.ID(7))
	require.NoError(t, err)
	assert.False(t, ok)

	release(ctx)
	_, ok, err = guard.Acquire(ctx, snowflake.ID(7))
	require.NoError(t, err)
	assert.True(t, ok)
}

type failingReleaseLocker struct {
	*LocalLocker
}

func (failingReleaseLocker) Release(context.Context, string, string) error {
	return errors.New("redis: connection reset")
}

func TestGuard_ReleaseFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.WarnLevel)
	guard := NewGuard(
		failingReleaseLocker{NewLocalLocker()},
		config.NewStaticEngineConfigHolder(config.DefaultEngineConfig()),
		zap.New(core),
	)

	release, ok, err := guard.Acquire(ctx, snowflake.ID(9))
	require.NoError(t, err)
	require.True(t, ok)
	release(ctx)

	entries := logs.FilterMessage("submit lock release failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "9", fields["document_id"])
	assert.Equal(t, "redis: connection reset", fields["error"])
}
