package aegis

import (
	"context"
	"time"

	"github.com/tmarkell/aegis/directory"
	"github.com/tmarkell/aegis/internal/flows"
	"github.com/tmarkell/aegis/session"
)

// Authenticate validates directory credentials for identity and, on success,
// creates a session bound to the caller's origin and user agent (taken from
// the context via [WithRequestMeta]). Lockout state is consulted before any
// directory traffic, and identity syntax rejections never count against the
// lockout guard.
func (e *Engine) Authenticate(ctx context.Context, identity, secret string, class session.TimeoutClass) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.directory == nil {
		return nil, ErrDirectoryDisabled
	}

	start := time.Now()
	defer func() {
		e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
	}()

	meta, _ := metaFromContext(ctx)
	origin := meta.OriginAddress

	err := flows.RunAuthenticate(ctx, origin, identity, secret, flows.CredentialDeps{
		MaxAttempts: e.config.Throttle.MaxAttempts,

		IsLockedOut:   e.guard.IsLockedOut,
		RecordFailure: e.guard.RecordFailure,
		ResetGuard:    e.guard.Reset,

		ValidateIdentity: directory.ValidateIdentity,
		BindDirectory: func(ctx context.Context, identity, secret string) error {
			err := e.directory.Authenticate(ctx, identity, secret)
			if err != nil && directory.CauseOf(err) == directory.CauseConnect {
				e.metricInc(MetricDirectoryUnavailable)
			}
			return err
		},
		FailureCause: func(err error) string {
			return directory.CauseOf(err).String()
		},

		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,

		Metrics: flows.CredentialMetrics{
			AuthSuccess:   int(MetricAuthSuccess),
			AuthFailure:   int(MetricAuthFailure),
			AuthLockedOut: int(MetricAuthLockedOut),
		},
		Events: flows.CredentialEvents{
			AuthSuccess:      EventAuthSuccess,
			AuthFailure:      EventAuthFailure,
			LockoutTriggered: EventLockoutTriggered,
			LockoutRejected:  EventLockoutRejected,
		},
		Errors: flows.CredentialErrors{
			EngineNotReady:       ErrEngineNotReady,
			InvalidInput:         ErrInvalidInput,
			AuthenticationFailed: ErrAuthenticationFailed,
			LockedOut:            ErrLockedOut,
			GuardUnavailable:     ErrBackendUnavailable,
		},
	})
	if err != nil {
		return nil, err
	}

	return e.createSession(ctx, identity, meta, class)
}

func (e *Engine) createSession(ctx context.Context, identity string, meta RequestMeta, class session.TimeoutClass) (*AuthResult, error) {
	id, err := session.NewID()
	if err != nil {
		return nil, err
	}
	csrf, err := session.NewCSRFToken()
	if err != nil {
		return nil, err
	}

	rec := &session.Record{
		ID:            id,
		UserID:        identity,
		OriginAddress: meta.OriginAddress,
		UserAgent:     meta.UserAgent,
		CSRFToken:     csrf,
	}
	if err := e.sessions.Save(ctx, rec, class); err != nil {
		return nil, ErrBackendUnavailable
	}

	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, EventSessionCreated, true, identity, nil, func() map[string]string {
		return map[string]string{"session_id": id}
	})

	result := &AuthResult{
		Identity:  identity,
		SessionID: id,
		CSRFToken: csrf,
	}

	if e.tokens != nil {
		exchange, err := e.tokens.Issue(identity, id)
		if err != nil {
			return nil, err
		}
		result.ExchangeToken = exchange
		e.metricInc(MetricTokenIssued)
		e.emitAudit(ctx, EventTokenIssued, true, identity, nil, nil)
	}

	return result, nil
}

// IsLockedOut reports whether the origin/identity pair is currently locked.
func (e *Engine) IsLockedOut(ctx context.Context, origin, identity string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	locked, err := e.guard.IsLockedOut(ctx, origin, identity)
	if err != nil {
		return false, ErrBackendUnavailable
	}
	return locked, nil
}

// ResetLockout clears the failed-attempt record for an origin/identity pair.
// Operator action; normal logins clear their own record on success.
func (e *Engine) ResetLockout(ctx context.Context, origin, identity string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.guard.Reset(ctx, origin, identity); err != nil {
		return ErrBackendUnavailable
	}
	return nil
}

// RemainingAttempts reports how many failures remain before lockout.
func (e *Engine) RemainingAttempts(ctx context.Context, origin, identity string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	remaining, err := e.guard.Remaining(ctx, origin, identity)
	if err != nil {
		return 0, ErrBackendUnavailable
	}
	return remaining, nil
}

// LookupIdentity reads the directory entry for an identity. The search
// filter is escaped independently of bind DN escaping.
func (e *Engine) LookupIdentity(ctx context.Context, identity string) (map[string][]string, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.directory == nil {
		return nil, ErrDirectoryDisabled
	}
	if err := directory.ValidateIdentity(identity); err != nil {
		return nil, ErrInvalidInput
	}
	return e.directory.Lookup(ctx, identity, e.config.Directory.SearchBase)
}
