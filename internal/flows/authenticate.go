package flows

import (
	"context"
)

// CredentialMetrics carries metric IDs needed by the credential flow.
type CredentialMetrics struct {
	AuthSuccess   int
	AuthFailure   int
	AuthLockedOut int
}

// CredentialEvents carries audit event names used by the credential flow.
type CredentialEvents struct {
	AuthSuccess      string
	AuthFailure      string
	LockoutTriggered string
	LockoutRejected  string
}

// CredentialErrors carries host-level sentinel errors used by the credential flow.
type CredentialErrors struct {
	EngineNotReady       error
	InvalidInput         error
	AuthenticationFailed error
	LockedOut            error
	GuardUnavailable     error
}

// CredentialDeps captures the credential validation dependencies.
type CredentialDeps struct {
	MaxAttempts int

	IsLockedOut   func(ctx context.Context, origin, identity string) (bool, error)
	RecordFailure func(ctx context.Context, origin, identity string) (int64, error)
	ResetGuard    func(ctx context.Context, origin, identity string) error

	ValidateIdentity func(identity string) error
	BindDirectory    func(ctx context.Context, identity, secret string) error
	FailureCause     func(err error) string

	MetricInc func(int)
	EmitAudit func(ctx context.Context, eventType string, success bool, identity string, err error, metadata func() map[string]string)

	Metrics CredentialMetrics
	Events  CredentialEvents
	Errors  CredentialErrors
}

// RunAuthenticate executes the credential validation flow: lockout check,
// identity syntax check, directory bind, then guard bookkeeping. The order
// is load-bearing: a locked-out pair is rejected before any directory
// traffic, and syntax rejections never count against the guard.
func RunAuthenticate(ctx context.Context, origin, identity, secret string, deps CredentialDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.FailureCause == nil {
		deps.FailureCause = func(error) string { return "" }
	}
	if deps.ValidateIdentity == nil || deps.BindDirectory == nil {
		return deps.Errors.EngineNotReady
	}

	if deps.IsLockedOut != nil {
		locked, err := deps.IsLockedOut(ctx, origin, identity)
		if err != nil {
			// Guard backend detail stays in the flow; callers see only
			// the host's generic unavailability sentinel.
			if deps.Errors.GuardUnavailable != nil {
				return deps.Errors.GuardUnavailable
			}
			return err
		}
		if locked {
			deps.MetricInc(deps.Metrics.AuthLockedOut)
			deps.EmitAudit(ctx, deps.Events.LockoutRejected, false, identity, deps.Errors.LockedOut, func() map[string]string {
				return map[string]string{
					"origin": origin,
				}
			})
			return deps.Errors.LockedOut
		}
	}

	if err := deps.ValidateIdentity(identity); err != nil {
		deps.MetricInc(deps.Metrics.AuthFailure)
		deps.EmitAudit(ctx, deps.Events.AuthFailure, false, identity, deps.Errors.InvalidInput, func() map[string]string {
			return map[string]string{
				"origin": origin,
				"reason": "identity_syntax",
			}
		})
		return deps.Errors.InvalidInput
	}

	if err := deps.BindDirectory(ctx, identity, secret); err != nil {
		cause := deps.FailureCause(err)

		var count int64
		if deps.RecordFailure != nil {
			attempts, recErr := deps.RecordFailure(ctx, origin, identity)
			if recErr != nil {
				if deps.Errors.GuardUnavailable != nil {
					return deps.Errors.GuardUnavailable
				}
				return recErr
			}
			count = attempts
		}

		deps.MetricInc(deps.Metrics.AuthFailure)
		deps.EmitAudit(ctx, deps.Events.AuthFailure, false, identity, deps.Errors.AuthenticationFailed, func() map[string]string {
			return map[string]string{
				"origin": origin,
				"cause":  cause,
			}
		})

		if deps.MaxAttempts > 0 && count == int64(deps.MaxAttempts) {
			deps.MetricInc(deps.Metrics.AuthLockedOut)
			deps.EmitAudit(ctx, deps.Events.LockoutTriggered, false, identity, deps.Errors.LockedOut, func() map[string]string {
				return map[string]string{
					"origin": origin,
				}
			})
		}
		return deps.Errors.AuthenticationFailed
	}

	if deps.ResetGuard != nil {
		if err := deps.ResetGuard(ctx, origin, identity); err != nil {
			// The bind succeeded; a guard cleanup failure must not turn a
			// valid login into a rejection.
			deps.EmitAudit(ctx, deps.Events.AuthSuccess, true, identity, nil, func() map[string]string {
				return map[string]string{
					"origin": origin,
					"note":   "guard_reset_failed",
				}
			})
			deps.MetricInc(deps.Metrics.AuthSuccess)
			return nil
		}
	}

	deps.MetricInc(deps.Metrics.AuthSuccess)
	deps.EmitAudit(ctx, deps.Events.AuthSuccess, true, identity, nil, func() map[string]string {
		return map[string]string{
			"origin": origin,
		}
	})
	return nil
}
