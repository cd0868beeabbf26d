package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrGuardUnavailable is an exported constant or variable used by the limiters package.
var ErrGuardUnavailable = errors.New("failed login guard unavailable")

// FailedLoginConfig holds the failed-login guard tuning parameters.
type FailedLoginConfig struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
}

// FailedLoginGuard counts consecutive authentication failures per
// origin/identity pair. The counter key carries a TTL that is refreshed on
// every failure, so the lockout window slides from the most recent attempt
// and the record self-heals once the window elapses.
type FailedLoginGuard struct {
	redis  redis.UniversalClient
	config FailedLoginConfig
}

// NewFailedLoginGuard creates a [FailedLoginGuard].
func NewFailedLoginGuard(redisClient redis.UniversalClient, cfg FailedLoginConfig) *FailedLoginGuard {
	return &FailedLoginGuard{
		redis:  redisClient,
		config: cfg,
	}
}

func failedLoginKey(origin, identity string) string {
	return "fl:" + origin + ":" + identity
}

// IsLockedOut describes the islockedout operation and its observable behavior.
//
// IsLockedOut may return an error when input validation, dependency calls, or security checks fail.
// IsLockedOut does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (g *FailedLoginGuard) IsLockedOut(ctx context.Context, origin, identity string) (bool, error) {
	if g == nil || g.redis == nil || !g.config.Enabled {
		return false, nil
	}
	count, err := g.redis.Get(ctx, failedLoginKey(origin, identity)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrGuardUnavailable, err)
	}
	return count >= int64(g.config.MaxAttempts), nil
}

// RecordFailure describes the recordfailure operation and its observable behavior.
//
// RecordFailure may return an error when input validation, dependency calls, or security checks fail.
// RecordFailure does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (g *FailedLoginGuard) RecordFailure(ctx context.Context, origin, identity string) (int64, error) {
	if g == nil || g.redis == nil || !g.config.Enabled {
		return 0, nil
	}

	key := failedLoginKey(origin, identity)

	// Increment and TTL refresh travel in one transaction so a crash between
	// them cannot leave a counter that never expires.
	var incr *redis.IntCmd
	_, err := g.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, g.config.Window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrGuardUnavailable, err)
	}
	return incr.Val(), nil
}

// Reset describes the reset operation and its observable behavior.
//
// Reset may return an error when input validation, dependency calls, or security checks fail.
// Reset does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (g *FailedLoginGuard) Reset(ctx context.Context, origin, identity string) error {
	if g == nil || g.redis == nil || !g.config.Enabled {
		return nil
	}
	if err := g.redis.Del(ctx, failedLoginKey(origin, identity)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrGuardUnavailable, err)
	}
	return nil
}

// Remaining reports how many failures are left before lockout. Used for
// operator tooling, not for the enforcement path.
func (g *FailedLoginGuard) Remaining(ctx context.Context, origin, identity string) (int, error) {
	if g == nil || g.redis == nil || !g.config.Enabled {
		return 0, nil
	}
	count, err := g.redis.Get(ctx, failedLoginKey(origin, identity)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return g.config.MaxAttempts, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrGuardUnavailable, err)
	}
	remaining := g.config.MaxAttempts - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
