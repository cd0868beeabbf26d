package aegis

import (
	"context"
	"errors"

	"github.com/tmarkell/aegis/backupcode"
	"github.com/tmarkell/aegis/internal/flows"
	"github.com/tmarkell/aegis/internal/limiters"
)

// BackupCodeStore is the host-provided persistence for hashed backup code
// sets. MarkBackupCodeUsed must be conditional: it returns false without
// modifying anything when the entry at index is already marked used, so two
// concurrent redemptions of the same code cannot both succeed.
type BackupCodeStore interface {
	GetBackupCodes(ctx context.Context, userID string) (backupcode.Set, error)
	ReplaceBackupCodes(ctx context.Context, userID string, set backupcode.Set) error
	MarkBackupCodeUsed(ctx context.Context, userID string, index int) (bool, error)
}

// GenerateBackupCodes creates a fresh code set for the user, replacing any
// previous one. The returned display strings are shown to the user exactly
// once; only salted hashes are persisted.
func (e *Engine) GenerateBackupCodes(ctx context.Context, userID string) ([]string, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.codes == nil {
		return nil, ErrBackupCodesNotConfigured
	}
	if userID == "" {
		return nil, ErrInvalidInput
	}

	codes, err := backupcode.Generate(e.config.BackupCode.Count, e.config.BackupCode.Length)
	if err != nil {
		return nil, err
	}
	set, err := e.hasher.HashForStorage(codes)
	if err != nil {
		return nil, err
	}
	if err := e.codes.ReplaceBackupCodes(ctx, userID, set); err != nil {
		return nil, ErrBackendUnavailable
	}

	// Regeneration wipes any pending redemption throttle.
	_ = e.redeemLimiter.Reset(ctx, userID)

	e.metricInc(MetricBackupCodesGenerated)
	e.emitAudit(ctx, EventBackupCodesGenerated, true, "", nil, func() map[string]string {
		return map[string]string{"user_id": userID}
	})
	return codes, nil
}

// RedeemBackupCode attempts to consume one backup code. On success it
// returns how many unused codes remain. Wrong codes, already-used codes,
// and lost mark-used races are all reported as [ErrBackupCodeInvalid].
func (e *Engine) RedeemBackupCode(ctx context.Context, userID, candidate string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if e.codes == nil {
		return 0, ErrBackupCodesNotConfigured
	}
	if userID == "" || !backupcode.ValidateFormat(candidate, e.config.BackupCode.Length) {
		return 0, ErrInvalidInput
	}

	return flows.RunRedeem(ctx, userID, candidate, flows.RedeemDeps{
		CheckLimiter:  e.redeemLimiter.Check,
		RecordFailure: e.redeemLimiter.RecordFailure,
		ResetLimiter:  e.redeemLimiter.Reset,

		VerifyCode: func(ctx context.Context, userID, candidate string) (int, bool, error) {
			set, err := e.codes.GetBackupCodes(ctx, userID)
			if err != nil {
				return 0, false, ErrBackendUnavailable
			}
			if len(set) == 0 {
				return 0, false, ErrBackupCodesNotConfigured
			}
			index, ok := e.hasher.Verify(candidate, set)
			return index, ok, nil
		},
		MarkUsed: func(ctx context.Context, userID string, index int) (bool, error) {
			ok, err := e.codes.MarkBackupCodeUsed(ctx, userID, index)
			if err != nil {
				return false, ErrBackendUnavailable
			}
			return ok, nil
		},
		Remaining: func(ctx context.Context, userID string) (int, error) {
			set, err := e.codes.GetBackupCodes(ctx, userID)
			if err != nil {
				return 0, ErrBackendUnavailable
			}
			return backupcode.RemainingCount(set), nil
		},

		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: func(ctx context.Context, eventType string, success bool, userID string, err error, metadata func() map[string]string) {
			e.emitAudit(ctx, eventType, success, "", err, func() map[string]string {
				meta := map[string]string{"user_id": userID}
				if metadata != nil {
					for k, v := range metadata() {
						meta[k] = v
					}
				}
				return meta
			})
		},

		Metrics: flows.RedeemMetrics{
			RedeemSuccess:     int(MetricBackupCodeRedeemed),
			RedeemFailure:     int(MetricBackupCodeRejected),
			RedeemRateLimited: int(MetricBackupCodeRateLimited),
		},
		Events: flows.RedeemEvents{
			RedeemSuccess:     EventBackupCodeRedeemed,
			RedeemFailure:     EventBackupCodeRejected,
			RedeemRateLimited: EventBackupCodeRateLimited,
		},
		Errors: flows.RedeemErrors{
			EngineNotReady:     ErrEngineNotReady,
			NotConfigured:      ErrBackupCodesNotConfigured,
			CodeInvalid:        ErrBackupCodeInvalid,
			RateLimited:        ErrBackupCodeRateLimited,
			StoreUnavailable:   ErrBackendUnavailable,
			LimiterRateLimited: limiters.ErrRedeemRateLimited,
		},
	})
}

// RemainingBackupCodes reports how many unused codes the user has left.
func (e *Engine) RemainingBackupCodes(ctx context.Context, userID string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if e.codes == nil {
		return 0, ErrBackupCodesNotConfigured
	}
	set, err := e.codes.GetBackupCodes(ctx, userID)
	if err != nil {
		return 0, ErrBackendUnavailable
	}
	if len(set) == 0 {
		return 0, ErrBackupCodesNotConfigured
	}
	return backupcode.RemainingCount(set), nil
}

// IsBackupCodeRateLimited reports whether redemption attempts for the user
// are currently throttled.
func (e *Engine) IsBackupCodeRateLimited(ctx context.Context, userID string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	err := e.redeemLimiter.Check(ctx, userID)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, limiters.ErrRedeemRateLimited) {
		return true, nil
	}
	return false, ErrBackendUnavailable
}
