// Package totp wraps time-based one-time password enrollment and
// verification. The shared secret is never persisted by this package;
// the engine stores it only inside an encryption envelope.
package totp

import (
	"errors"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Config defines a public type used by aegis APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Issuer string
	Period uint
	Skew   uint
	Digits int
}

// Enrollment carries the provisioning material handed to the user once
// during setup.
type Enrollment struct {
	Secret string
	URL    string
}

// Manager defines a public type used by aegis APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
// NewManager does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("totp issuer required")
	}
	if cfg.Period == 0 {
		cfg.Period = 30
	}
	if cfg.Skew == 0 {
		cfg.Skew = 1
	}
	if cfg.Digits == 0 {
		cfg.Digits = 6
	}
	if cfg.Digits != 6 && cfg.Digits != 8 {
		return nil, errors.New("totp digits must be 6 or 8")
	}
	return &Manager{config: cfg}, nil
}

// Enroll generates a fresh shared secret for the account.
func (m *Manager) Enroll(accountName string) (*Enrollment, error) {
	if accountName == "" {
		return nil, errors.New("totp account name required")
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.config.Issuer,
		AccountName: accountName,
		Period:      m.config.Period,
		Digits:      m.digits(),
	})
	if err != nil {
		return nil, err
	}
	return &Enrollment{
		Secret: key.Secret(),
		URL:    key.URL(),
	}, nil
}

// Verify checks a code against the secret at the given time, allowing the
// configured clock skew.
func (m *Manager) Verify(secret, code string, at time.Time) (bool, error) {
	if secret == "" || code == "" {
		return false, nil
	}
	return totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period: m.config.Period,
		Skew:   m.config.Skew,
		Digits: m.digits(),
	})
}

func (m *Manager) digits() otp.Digits {
	if m.config.Digits == 8 {
		return otp.DigitsEight
	}
	return otp.DigitsSix
}
