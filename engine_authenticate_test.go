package aegis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tmarkell/aegis/directory"
	"github.com/tmarkell/aegis/session"
	"github.com/tmarkell/aegis/token"
)

func TestAuthenticateSuccessCreatesSession(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := authCtx("203.0.113.7")

	res, err := engine.Authenticate(ctx, "jdoe", testSecret, session.TimeoutDefault)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if res.Identity != "jdoe" {
		t.Fatalf("unexpected identity %q", res.Identity)
	}
	if res.SessionID == "" || res.CSRFToken == "" {
		t.Fatalf("expected session id and csrf token, got %+v", res)
	}

	view, err := engine.ReadSession(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("ReadSession failed: %v", err)
	}
	if view.UserID != "jdoe" {
		t.Fatalf("session user %q, want jdoe", view.UserID)
	}
	if view.OriginAddress != "203.0.113.7" {
		t.Fatalf("session origin %q", view.OriginAddress)
	}
	if view.CSRFToken != res.CSRFToken {
		t.Fatal("csrf token mismatch between result and stored session")
	}
}

func TestAuthenticateWrongSecret(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)

	_, err := engine.Authenticate(authCtx("203.0.113.7"), "jdoe", "wrong", session.TimeoutDefault)
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("got %v, want ErrAuthenticationFailed", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricAuthFailure] != 1 {
		t.Fatalf("auth failure counter = %d, want 1", snap.Counters[MetricAuthFailure])
	}
}

func TestAuthenticateLockoutAfterMaxAttempts(t *testing.T) {
	engine, conn, _ := newTestEngine(t, nil)
	ctx := authCtx("203.0.113.7")

	for i := 0; i < 5; i++ {
		_, err := engine.Authenticate(ctx, "jdoe", "wrong", session.TimeoutDefault)
		if !errors.Is(err, ErrAuthenticationFailed) {
			t.Fatalf("attempt %d: got %v", i, err)
		}
	}

	dials := conn.bindCalls
	_, err := engine.Authenticate(ctx, "jdoe", testSecret, session.TimeoutDefault)
	if !errors.Is(err, ErrLockedOut) {
		t.Fatalf("got %v, want ErrLockedOut", err)
	}
	if conn.bindCalls != dials {
		t.Fatalf("locked-out request reached the directory (%d binds)", conn.bindCalls-dials)
	}

	locked, err := engine.IsLockedOut(ctx, "203.0.113.7", "jdoe")
	if err != nil || !locked {
		t.Fatalf("IsLockedOut = %v, %v", locked, err)
	}
}

func TestAuthenticateLockoutIsPerOrigin(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)

	for i := 0; i < 5; i++ {
		_, _ = engine.Authenticate(authCtx("203.0.113.7"), "jdoe", "wrong", session.TimeoutDefault)
	}

	// Same identity from a different origin is not locked out.
	res, err := engine.Authenticate(authCtx("198.51.100.9"), "jdoe", testSecret, session.TimeoutDefault)
	if err != nil {
		t.Fatalf("Authenticate from second origin failed: %v", err)
	}
	if res.SessionID == "" {
		t.Fatal("expected session from second origin")
	}
}

func TestAuthenticateSyntaxRejectionDoesNotCount(t *testing.T) {
	engine, conn, _ := newTestEngine(t, nil)
	ctx := authCtx("203.0.113.7")

	_, err := engine.Authenticate(ctx, "jdoe)(uid=*", testSecret, session.TimeoutDefault)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
	if conn.bindCalls != 0 {
		t.Fatal("syntax rejection reached the directory")
	}

	remaining, err := engine.RemainingAttempts(ctx, "203.0.113.7", "jdoe)(uid=*")
	if err != nil {
		t.Fatalf("RemainingAttempts failed: %v", err)
	}
	if remaining != 5 {
		t.Fatalf("remaining = %d, want 5 (syntax rejections must not consume attempts)", remaining)
	}
}

func TestAuthenticateSuccessResetsGuard(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := authCtx("203.0.113.7")

	for i := 0; i < 3; i++ {
		_, _ = engine.Authenticate(ctx, "jdoe", "wrong", session.TimeoutDefault)
	}
	if _, err := engine.Authenticate(ctx, "jdoe", testSecret, session.TimeoutDefault); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	remaining, err := engine.RemainingAttempts(ctx, "203.0.113.7", "jdoe")
	if err != nil {
		t.Fatalf("RemainingAttempts failed: %v", err)
	}
	if remaining != 5 {
		t.Fatalf("remaining = %d after successful login, want 5", remaining)
	}
}

func TestAuthenticateEmptySecret(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)

	_, err := engine.Authenticate(authCtx("203.0.113.7"), "jdoe", "", session.TimeoutDefault)
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("got %v, want ErrAuthenticationFailed", err)
	}
}

func TestAuthenticateDirectoryDisabled(t *testing.T) {
	engine, _, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Directory.Enabled = false
	})

	_, err := engine.Authenticate(authCtx("203.0.113.7"), "jdoe", testSecret, session.TimeoutDefault)
	if !errors.Is(err, ErrDirectoryDisabled) {
		t.Fatalf("got %v, want ErrDirectoryDisabled", err)
	}
}

func TestAuthenticateIssuesExchangeToken(t *testing.T) {
	engine, _, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Token.Enabled = true
		cfg.Token.TTL = time.Minute
		cfg.Token.SigningMethod = token.MethodHS256
		cfg.Token.PrivateKey = []byte("an-hs256-signing-key-of-decent-length")
	})
	ctx := authCtx("203.0.113.7")

	res, err := engine.Authenticate(ctx, "jdoe", testSecret, session.TimeoutDefault)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if res.ExchangeToken == "" {
		t.Fatal("expected exchange token when token feature enabled")
	}

	claims, err := engine.VerifyExchangeToken(res.ExchangeToken)
	if err != nil {
		t.Fatalf("VerifyExchangeToken failed: %v", err)
	}
	if claims.Identity != "jdoe" {
		t.Fatalf("token identity %q", claims.Identity)
	}
	if claims.SessionID != res.SessionID {
		t.Fatalf("token session %q, want %q", claims.SessionID, res.SessionID)
	}
}

func TestAuthenticateDirectoryConnectFailureCounted(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(client).
		WithDirectoryDialer(func(ctx context.Context, _ directory.Config) (directory.Conn, error) {
			return nil, errors.New("connection refused")
		}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	_, err = engine.Authenticate(authCtx("203.0.113.7"), "jdoe", testSecret, session.TimeoutDefault)
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("got %v, want ErrAuthenticationFailed", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricDirectoryUnavailable] != 1 {
		t.Fatalf("directory unavailable counter = %d, want 1", snap.Counters[MetricDirectoryUnavailable])
	}
}

func TestAuthenticateGuardBackendUnavailable(t *testing.T) {
	engine, conn, mr := newTestEngine(t, nil)
	mr.Close()
	ctx := authCtx("203.0.113.7")

	_, err := engine.Authenticate(ctx, "jdoe", testSecret, session.TimeoutDefault)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("got %v, want ErrBackendUnavailable", err)
	}
	if strings.Contains(err.Error(), "dial") {
		t.Fatalf("backend detail leaked to the caller: %v", err)
	}
	if conn.bindCalls != 0 {
		t.Fatal("directory reached while the guard backend was down")
	}

	if _, err := engine.IsLockedOut(ctx, "203.0.113.7", "jdoe"); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("IsLockedOut: got %v, want ErrBackendUnavailable", err)
	}
	if _, err := engine.RemainingAttempts(ctx, "203.0.113.7", "jdoe"); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("RemainingAttempts: got %v, want ErrBackendUnavailable", err)
	}
	if err := engine.ResetLockout(ctx, "203.0.113.7", "jdoe"); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("ResetLockout: got %v, want ErrBackendUnavailable", err)
	}
}

func TestResetLockout(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := authCtx("203.0.113.7")

	for i := 0; i < 5; i++ {
		_, _ = engine.Authenticate(ctx, "jdoe", "wrong", session.TimeoutDefault)
	}
	if err := engine.ResetLockout(ctx, "203.0.113.7", "jdoe"); err != nil {
		t.Fatalf("ResetLockout failed: %v", err)
	}

	if _, err := engine.Authenticate(ctx, "jdoe", testSecret, session.TimeoutDefault); err != nil {
		t.Fatalf("Authenticate after reset failed: %v", err)
	}
}
