package flows

import (
	"context"
	"errors"
	"strconv"
)

// RedeemMetrics carries metric IDs needed by the redemption flow.
type RedeemMetrics struct {
	RedeemSuccess     int
	RedeemFailure     int
	RedeemRateLimited int
}

// RedeemEvents carries audit event names used by the redemption flow.
type RedeemEvents struct {
	RedeemSuccess     string
	RedeemFailure     string
	RedeemRateLimited string
}

// RedeemErrors carries host-level sentinel errors used by the redemption flow.
type RedeemErrors struct {
	EngineNotReady     error
	NotConfigured      error
	CodeInvalid        error
	RateLimited        error
	StoreUnavailable   error
	LimiterRateLimited error
}

// RedeemDeps captures the backup code redemption dependencies.
type RedeemDeps struct {
	CheckLimiter  func(ctx context.Context, userID string) error
	RecordFailure func(ctx context.Context, userID string) error
	ResetLimiter  func(ctx context.Context, userID string) error

	// VerifyCode matches the candidate against the stored set and returns
	// the matched index. MarkUsed must be conditional at the store: it
	// reports false when the index was already consumed by a racing call.
	VerifyCode func(ctx context.Context, userID, candidate string) (int, bool, error)
	MarkUsed   func(ctx context.Context, userID string, index int) (bool, error)
	Remaining  func(ctx context.Context, userID string) (int, error)

	MetricInc func(int)
	EmitAudit func(ctx context.Context, eventType string, success bool, userID string, err error, metadata func() map[string]string)

	Metrics RedeemMetrics
	Events  RedeemEvents
	Errors  RedeemErrors
}

// RunRedeem executes one backup code redemption. A code that matched but
// lost the mark-used race is reported exactly like a wrong code, so a
// concurrent double spend yields one success and one ordinary failure.
func RunRedeem(ctx context.Context, userID, candidate string, deps RedeemDeps) (int, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.VerifyCode == nil || deps.MarkUsed == nil {
		return 0, deps.Errors.EngineNotReady
	}

	if deps.CheckLimiter != nil {
		if err := deps.CheckLimiter(ctx, userID); err != nil {
			if errors.Is(err, deps.Errors.LimiterRateLimited) {
				deps.MetricInc(deps.Metrics.RedeemRateLimited)
				deps.EmitAudit(ctx, deps.Events.RedeemRateLimited, false, userID, deps.Errors.RateLimited, nil)
				return 0, deps.Errors.RateLimited
			}
			// Limiter backend detail never leaves the flow.
			if deps.Errors.StoreUnavailable != nil {
				return 0, deps.Errors.StoreUnavailable
			}
			return 0, err
		}
	}

	index, matched, err := deps.VerifyCode(ctx, userID, candidate)
	if err != nil {
		return 0, err
	}
	if !matched {
		return 0, runFailRedeemAttempt(ctx, userID, deps)
	}

	consumed, err := deps.MarkUsed(ctx, userID, index)
	if err != nil {
		return 0, err
	}
	if !consumed {
		// Lost the race to a concurrent redemption of the same code.
		return 0, runFailRedeemAttempt(ctx, userID, deps)
	}

	if deps.ResetLimiter != nil {
		_ = deps.ResetLimiter(ctx, userID)
	}

	remaining := -1
	if deps.Remaining != nil {
		if n, err := deps.Remaining(ctx, userID); err == nil {
			remaining = n
		}
	}

	deps.MetricInc(deps.Metrics.RedeemSuccess)
	deps.EmitAudit(ctx, deps.Events.RedeemSuccess, true, userID, nil, func() map[string]string {
		meta := map[string]string{}
		if remaining >= 0 {
			meta["remaining"] = strconv.Itoa(remaining)
		}
		return meta
	})
	return remaining, nil
}

func runFailRedeemAttempt(ctx context.Context, userID string, deps RedeemDeps) error {
	if deps.RecordFailure != nil {
		if err := deps.RecordFailure(ctx, userID); err != nil {
			if errors.Is(err, deps.Errors.LimiterRateLimited) {
				deps.MetricInc(deps.Metrics.RedeemRateLimited)
				deps.EmitAudit(ctx, deps.Events.RedeemRateLimited, false, userID, deps.Errors.RateLimited, nil)
				return deps.Errors.RateLimited
			}
			if deps.Errors.StoreUnavailable != nil {
				return deps.Errors.StoreUnavailable
			}
			return err
		}
	}
	deps.MetricInc(deps.Metrics.RedeemFailure)
	deps.EmitAudit(ctx, deps.Events.RedeemFailure, false, userID, deps.Errors.CodeInvalid, nil)
	return deps.Errors.CodeInvalid
}
