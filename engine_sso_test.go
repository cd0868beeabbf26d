package aegis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tmarkell/aegis/token"
)

func ssoEngine(t *testing.T) *Engine {
	t.Helper()
	engine, _, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Token.Enabled = true
		cfg.Token.TTL = time.Minute
		cfg.Token.SigningMethod = token.MethodHS256
		cfg.Token.PrivateKey = []byte("an-hs256-signing-key-of-decent-length")
	})
	return engine
}

func TestIssueAndVerifyExchangeToken(t *testing.T) {
	engine := ssoEngine(t)

	signed, err := engine.IssueExchangeToken(context.Background(), "jdoe", "sess-1")
	if err != nil {
		t.Fatalf("IssueExchangeToken failed: %v", err)
	}

	claims, err := engine.VerifyExchangeToken(signed)
	if err != nil {
		t.Fatalf("VerifyExchangeToken failed: %v", err)
	}
	if claims.Identity != "jdoe" || claims.SessionID != "sess-1" {
		t.Fatalf("claims %+v", claims)
	}
}

func TestVerifyExchangeTokenTampered(t *testing.T) {
	engine := ssoEngine(t)

	signed, err := engine.IssueExchangeToken(context.Background(), "jdoe", "sess-1")
	if err != nil {
		t.Fatalf("IssueExchangeToken failed: %v", err)
	}

	tampered := signed[:len(signed)-2] + "xx"
	if tampered == signed {
		tampered = signed[:len(signed)-2] + "yy"
	}
	if _, err := engine.VerifyExchangeToken(tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("got %v, want ErrTokenInvalid", err)
	}
	if _, err := engine.VerifyExchangeToken("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("got %v, want ErrTokenInvalid", err)
	}
}

func TestExchangeTokenFeatureDisabled(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)

	if _, err := engine.IssueExchangeToken(context.Background(), "jdoe", "sess-1"); !errors.Is(err, ErrTokenFeatureDisabled) {
		t.Fatalf("got %v, want ErrTokenFeatureDisabled", err)
	}
	if _, err := engine.VerifyExchangeToken("x"); !errors.Is(err, ErrTokenFeatureDisabled) {
		t.Fatalf("got %v, want ErrTokenFeatureDisabled", err)
	}
}

func TestIssueExchangeTokenEmptyIdentity(t *testing.T) {
	engine := ssoEngine(t)

	if _, err := engine.IssueExchangeToken(context.Background(), "", "sess-1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}
