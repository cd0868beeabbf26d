package limiters

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuard(t *testing.T) (*FailedLoginGuard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	guard := NewFailedLoginGuard(client, FailedLoginConfig{
		Enabled:     true,
		MaxAttempts: 5,
		Window:      15 * time.Minute,
	})
	return guard, mr
}

func TestGuardLocksAfterMaxFailures(t *testing.T) {
	guard, _ := newGuard(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := guard.RecordFailure(ctx, "203.0.113.1", "alice")
		require.NoError(t, err)

		locked, err := guard.IsLockedOut(ctx, "203.0.113.1", "alice")
		require.NoError(t, err)
		assert.False(t, locked, "not locked after %d failures", i+1)
	}

	count, err := guard.RecordFailure(ctx, "203.0.113.1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	locked, err := guard.IsLockedOut(ctx, "203.0.113.1", "alice")
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestGuardKeyedByOriginAndIdentity(t *testing.T) {
	guard, _ := newGuard(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := guard.RecordFailure(ctx, "203.0.113.1", "alice")
		require.NoError(t, err)
	}

	// Same identity from another origin, same origin with another identity.
	locked, err := guard.IsLockedOut(ctx, "198.51.100.2", "alice")
	require.NoError(t, err)
	assert.False(t, locked)

	locked, err = guard.IsLockedOut(ctx, "203.0.113.1", "bob")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestGuardWindowSlidesFromLastFailure(t *testing.T) {
	guard, mr := newGuard(t)
	ctx := context.Background()

	_, err := guard.RecordFailure(ctx, "203.0.113.1", "alice")
	require.NoError(t, err)

	mr.FastForward(10 * time.Minute)
	_, err = guard.RecordFailure(ctx, "203.0.113.1", "alice")
	require.NoError(t, err)

	// The first failure is 10 minutes old; the counter must still be live
	// because the second failure refreshed the TTL.
	mr.FastForward(10 * time.Minute)
	locked, err := guard.IsLockedOut(ctx, "203.0.113.1", "alice")
	require.NoError(t, err)
	assert.False(t, locked)

	count, err := guard.RecordFailure(ctx, "203.0.113.1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestGuardRecordExpiresAfterWindow(t *testing.T) {
	guard, mr := newGuard(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := guard.RecordFailure(ctx, "203.0.113.1", "alice")
		require.NoError(t, err)
	}

	locked, err := guard.IsLockedOut(ctx, "203.0.113.1", "alice")
	require.NoError(t, err)
	require.True(t, locked)

	mr.FastForward(16 * time.Minute)

	locked, err = guard.IsLockedOut(ctx, "203.0.113.1", "alice")
	require.NoError(t, err)
	assert.False(t, locked)

	// The record is gone, so the next failure starts a fresh count.
	count, err := guard.RecordFailure(ctx, "203.0.113.1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGuardResetOnSuccess(t *testing.T) {
	guard, _ := newGuard(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := guard.RecordFailure(ctx, "203.0.113.1", "alice")
		require.NoError(t, err)
	}
	require.NoError(t, guard.Reset(ctx, "203.0.113.1", "alice"))

	remaining, err := guard.Remaining(ctx, "203.0.113.1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)
}

func TestGuardDisabledIsNoOp(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	guard := NewFailedLoginGuard(client, FailedLoginConfig{
		Enabled:     false,
		MaxAttempts: 1,
		Window:      time.Minute,
	})
	ctx := context.Background()

	_, err := guard.RecordFailure(ctx, "203.0.113.1", "alice")
	require.NoError(t, err)
	locked, err := guard.IsLockedOut(ctx, "203.0.113.1", "alice")
	require.NoError(t, err)
	assert.False(t, locked)
	assert.Empty(t, mr.Keys())
}

func TestGuardUnavailableBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	guard := NewFailedLoginGuard(client, FailedLoginConfig{
		Enabled:     true,
		MaxAttempts: 5,
		Window:      time.Minute,
	})
	mr.Close()
	_ = client.Close()

	_, err := guard.IsLockedOut(context.Background(), "203.0.113.1", "alice")
	assert.ErrorIs(t, err, ErrGuardUnavailable)
	_, err = guard.RecordFailure(context.Background(), "203.0.113.1", "alice")
	assert.ErrorIs(t, err, ErrGuardUnavailable)
}

func newRedeemLimiter(t *testing.T) (*RedeemLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRedeemLimiter(client, RedeemConfig{
		MaxAttempts: 3,
		Cooldown:    5 * time.Minute,
	})
	return limiter, mr
}

func TestRedeemLimiterBlocksAfterMaxAttempts(t *testing.T) {
	limiter, _ := newRedeemLimiter(t)
	ctx := context.Background()

	require.NoError(t, limiter.Check(ctx, "42"))
	require.NoError(t, limiter.RecordFailure(ctx, "42"))
	require.NoError(t, limiter.RecordFailure(ctx, "42"))

	err := limiter.RecordFailure(ctx, "42")
	assert.ErrorIs(t, err, ErrRedeemRateLimited)
	assert.ErrorIs(t, limiter.Check(ctx, "42"), ErrRedeemRateLimited)
}

func TestRedeemLimiterCooldownExpires(t *testing.T) {
	limiter, mr := newRedeemLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = limiter.RecordFailure(ctx, "42")
	}
	require.ErrorIs(t, limiter.Check(ctx, "42"), ErrRedeemRateLimited)

	mr.FastForward(6 * time.Minute)
	assert.NoError(t, limiter.Check(ctx, "42"))
}

func TestRedeemLimiterResetOnSuccess(t *testing.T) {
	limiter, _ := newRedeemLimiter(t)
	ctx := context.Background()

	require.NoError(t, limiter.RecordFailure(ctx, "42"))
	require.NoError(t, limiter.RecordFailure(ctx, "42"))
	require.NoError(t, limiter.Reset(ctx, "42"))
	assert.NoError(t, limiter.Check(ctx, "42"))
}

func TestRedeemLimiterNilReceiverIsNoOp(t *testing.T) {
	var limiter *RedeemLimiter
	ctx := context.Background()

	assert.NoError(t, limiter.Check(ctx, "42"))
	assert.NoError(t, limiter.RecordFailure(ctx, "42"))
	assert.NoError(t, limiter.Reset(ctx, "42"))
}
