package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRedeemRateLimited is an exported constant or variable used by the limiters package.
	ErrRedeemRateLimited = errors.New("backup code redemption rate limited")
	// ErrRedeemUnavailable is an exported constant or variable used by the limiters package.
	ErrRedeemUnavailable = errors.New("backup code limiter unavailable")
)

// RedeemConfig holds the redeem limiter tuning parameters.
type RedeemConfig struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// RedeemLimiter throttles backup code redemption attempts per user. Unlike
// the failed-login guard the cooldown TTL is fixed at the first failure,
// so a burst of guesses cannot extend its own punishment window forever.
type RedeemLimiter struct {
	redis  redis.UniversalClient
	config RedeemConfig
}

// NewRedeemLimiter creates a [RedeemLimiter].
func NewRedeemLimiter(redisClient redis.UniversalClient, cfg RedeemConfig) *RedeemLimiter {
	return &RedeemLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

func redeemKey(userID string) string {
	return "bk:" + userID
}

// Check describes the check operation and its observable behavior.
//
// Check may return an error when input validation, dependency calls, or security checks fail.
// Check does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (l *RedeemLimiter) Check(ctx context.Context, userID string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	count, err := l.redis.Get(ctx, redeemKey(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedeemUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRedeemRateLimited
	}
	return nil
}

// RecordFailure describes the recordfailure operation and its observable behavior.
//
// RecordFailure may return an error when input validation, dependency calls, or security checks fail.
// RecordFailure does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (l *RedeemLimiter) RecordFailure(ctx context.Context, userID string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	count, err := l.redis.Incr(ctx, redeemKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedeemUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, redeemKey(userID), l.config.Cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedeemUnavailable, err)
		}
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRedeemRateLimited
	}
	return nil
}

// Reset describes the reset operation and its observable behavior.
//
// Reset may return an error when input validation, dependency calls, or security checks fail.
// Reset does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (l *RedeemLimiter) Reset(ctx context.Context, userID string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	if err := l.redis.Del(ctx, redeemKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedeemUnavailable, err)
	}
	return nil
}
