package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errNotReady   = errors.New("engine not ready")
	errInvalid    = errors.New("invalid input")
	errAuthFailed = errors.New("authentication failed")
	errLockedOut  = errors.New("locked out")
)

type credHarness struct {
	deps CredentialDeps

	lockedOut   bool
	bindErr     error
	failCount   int64
	resetCalled bool
	bindCalls   int
	events      []string
	metrics     []int
}

func newCredHarness() *credHarness {
	h := &credHarness{}
	h.deps = CredentialDeps{
		MaxAttempts: 5,
		IsLockedOut: func(ctx context.Context, origin, identity string) (bool, error) {
			return h.lockedOut, nil
		},
		RecordFailure: func(ctx context.Context, origin, identity string) (int64, error) {
			h.failCount++
			return h.failCount, nil
		},
		ResetGuard: func(ctx context.Context, origin, identity string) error {
			h.resetCalled = true
			h.failCount = 0
			return nil
		},
		ValidateIdentity: func(identity string) error {
			if identity == "" || identity == "bad)syntax" {
				return errInvalid
			}
			return nil
		},
		BindDirectory: func(ctx context.Context, identity, secret string) error {
			h.bindCalls++
			return h.bindErr
		},
		FailureCause: func(err error) string { return "bind" },
		MetricInc:    func(id int) { h.metrics = append(h.metrics, id) },
		EmitAudit: func(ctx context.Context, eventType string, success bool, identity string, err error, metadata func() map[string]string) {
			h.events = append(h.events, eventType)
		},
		Metrics: CredentialMetrics{AuthSuccess: 1, AuthFailure: 2, AuthLockedOut: 3},
		Events: CredentialEvents{
			AuthSuccess:      "auth.success",
			AuthFailure:      "auth.failure",
			LockoutTriggered: "auth.lockout.triggered",
			LockoutRejected:  "auth.lockout.rejected",
		},
		Errors: CredentialErrors{
			EngineNotReady:       errNotReady,
			InvalidInput:         errInvalid,
			AuthenticationFailed: errAuthFailed,
			LockedOut:            errLockedOut,
		},
	}
	return h
}

func TestRunAuthenticateSuccess(t *testing.T) {
	h := newCredHarness()
	h.failCount = 3

	err := RunAuthenticate(context.Background(), "203.0.113.1", "alice", "secret", h.deps)
	require.NoError(t, err)

	assert.True(t, h.resetCalled)
	assert.Contains(t, h.events, "auth.success")
	assert.Contains(t, h.metrics, 1)
}

func TestRunAuthenticateLockedOutBeforeBind(t *testing.T) {
	h := newCredHarness()
	h.lockedOut = true

	err := RunAuthenticate(context.Background(), "203.0.113.1", "alice", "secret", h.deps)
	assert.ErrorIs(t, err, errLockedOut)
	assert.Zero(t, h.bindCalls, "locked-out request must not reach the directory")
	assert.Contains(t, h.events, "auth.lockout.rejected")
}

func TestRunAuthenticateSyntaxFailureDoesNotCount(t *testing.T) {
	h := newCredHarness()

	err := RunAuthenticate(context.Background(), "203.0.113.1", "bad)syntax", "secret", h.deps)
	assert.ErrorIs(t, err, errInvalid)
	assert.Zero(t, h.bindCalls)
	assert.Zero(t, h.failCount, "syntax rejection must not increment the guard")
}

func TestRunAuthenticateBindFailureCounts(t *testing.T) {
	h := newCredHarness()
	h.bindErr = errors.New("invalid credentials")

	err := RunAuthenticate(context.Background(), "203.0.113.1", "alice", "wrong", h.deps)
	assert.ErrorIs(t, err, errAuthFailed)
	assert.Equal(t, int64(1), h.failCount)
	assert.Contains(t, h.events, "auth.failure")
	assert.NotContains(t, h.events, "auth.lockout.triggered")
}

func TestRunAuthenticateLockoutTriggeredAtThreshold(t *testing.T) {
	h := newCredHarness()
	h.bindErr = errors.New("invalid credentials")
	h.failCount = 4

	err := RunAuthenticate(context.Background(), "203.0.113.1", "alice", "wrong", h.deps)
	assert.ErrorIs(t, err, errAuthFailed)
	assert.Contains(t, h.events, "auth.lockout.triggered")
	assert.Contains(t, h.metrics, 3)
}

func TestRunAuthenticateGuardResetFailureStillSucceeds(t *testing.T) {
	h := newCredHarness()
	h.deps.ResetGuard = func(ctx context.Context, origin, identity string) error {
		return errors.New("redis down")
	}

	err := RunAuthenticate(context.Background(), "203.0.113.1", "alice", "secret", h.deps)
	assert.NoError(t, err)
	assert.Contains(t, h.events, "auth.success")
}

func TestRunAuthenticateMissingDeps(t *testing.T) {
	h := newCredHarness()
	h.deps.BindDirectory = nil

	err := RunAuthenticate(context.Background(), "203.0.113.1", "alice", "secret", h.deps)
	assert.ErrorIs(t, err, errNotReady)
}

func TestRunAuthenticateGuardBackendFailureIsOpaque(t *testing.T) {
	h := newCredHarness()
	errGuardDown := errors.New("backend unavailable")
	h.deps.Errors.GuardUnavailable = errGuardDown
	h.deps.IsLockedOut = func(ctx context.Context, origin, identity string) (bool, error) {
		return false, errors.New("dial tcp 127.0.0.1:6379: connection refused")
	}

	err := RunAuthenticate(context.Background(), "203.0.113.1", "alice", "secret", h.deps)
	require.ErrorIs(t, err, errGuardDown)
	assert.NotContains(t, err.Error(), "dial tcp")
	assert.Zero(t, h.bindCalls)
}

func TestRunAuthenticateRecordFailureBackendFailureIsOpaque(t *testing.T) {
	h := newCredHarness()
	errGuardDown := errors.New("backend unavailable")
	h.deps.Errors.GuardUnavailable = errGuardDown
	h.bindErr = errors.New("invalid credentials")
	h.deps.RecordFailure = func(ctx context.Context, origin, identity string) (int64, error) {
		return 0, errors.New("dial tcp 127.0.0.1:6379: connection refused")
	}

	err := RunAuthenticate(context.Background(), "203.0.113.1", "alice", "wrong", h.deps)
	require.ErrorIs(t, err, errGuardDown)
	assert.NotContains(t, err.Error(), "dial tcp")
}
