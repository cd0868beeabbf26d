package aegis

import (
	"crypto/tls"
	"errors"
	"time"

	"github.com/tmarkell/aegis/backupcode"
	"github.com/tmarkell/aegis/envelope"
	"github.com/tmarkell/aegis/token"
)

// CryptoConfig defines a public type used by aegis APIs.
//
// CryptoConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CryptoConfig struct {
	MasterKey []byte
	KDF       envelope.KDFParams
}

// SessionConfig defines a public type used by aegis APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	Prefix           string
	DefaultTimeout   time.Duration
	ExtendedTimeout  time.Duration
	RotationInterval time.Duration
	RotateGrace      time.Duration
}

// ThrottleConfig defines a public type used by aegis APIs.
//
// ThrottleConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ThrottleConfig struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
}

// BackupCodeConfig defines a public type used by aegis APIs.
//
// BackupCodeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type BackupCodeConfig struct {
	Count       int
	Length      int
	MaxAttempts int
	Cooldown    time.Duration
	Hash        backupcode.HashParams
}

// DirectoryConfig defines a public type used by aegis APIs.
//
// DirectoryConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type DirectoryConfig struct {
	Enabled    bool
	Host       string
	Port       int
	BindPrefix string
	BindSuffix string
	SearchBase string
	Timeout    time.Duration
	TLSConfig  *tls.Config
}

// TOTPConfig defines a public type used by aegis APIs.
//
// TOTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TOTPConfig struct {
	Enabled bool
	Issuer  string
	Period  uint
	Skew    uint
	Digits  int
}

// TokenConfig defines a public type used by aegis APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	Enabled       bool
	TTL           time.Duration
	SigningMethod token.SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// AuditConfig defines a public type used by aegis APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by aegis APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Config defines a public type used by aegis APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Crypto     CryptoConfig
	Session    SessionConfig
	Throttle   ThrottleConfig
	BackupCode BackupCodeConfig
	Directory  DirectoryConfig
	TOTP       TOTPConfig
	Token      TokenConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Crypto: CryptoConfig{
			KDF: envelope.DefaultKDFParams(),
		},
		Session: SessionConfig{
			Prefix:           "sess",
			DefaultTimeout:   time.Hour,
			ExtendedTimeout:  30 * 24 * time.Hour,
			RotationInterval: 10 * time.Minute,
			RotateGrace:      10 * time.Second,
		},
		Throttle: ThrottleConfig{
			Enabled:     true,
			MaxAttempts: 5,
			Window:      15 * time.Minute,
		},
		BackupCode: BackupCodeConfig{
			Count:       backupcode.DefaultCount,
			Length:      backupcode.DefaultLength,
			MaxAttempts: 5,
			Cooldown:    5 * time.Minute,
			Hash:        backupcode.DefaultHashParams(),
		},
		Directory: DirectoryConfig{
			Timeout: 5 * time.Second,
		},
		TOTP: TOTPConfig{
			Issuer: "aegis",
			Period: 30,
			Skew:   1,
			Digits: 6,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks configuration invariants that must hold before the engine
// is built. Key material problems are surfaced here, at startup, never at
// first use.
func (c Config) Validate() error {
	if len(c.Crypto.MasterKey) < envelope.MinMasterKeySize {
		return errors.New("master key must be at least 32 bytes")
	}
	if c.Session.DefaultTimeout <= 0 || c.Session.ExtendedTimeout <= 0 {
		return errors.New("session timeouts must be positive")
	}
	if c.Session.ExtendedTimeout < c.Session.DefaultTimeout {
		return errors.New("extended session timeout below default timeout")
	}
	if c.Throttle.Enabled {
		if c.Throttle.MaxAttempts <= 0 {
			return errors.New("throttle max attempts must be positive")
		}
		if c.Throttle.Window <= 0 {
			return errors.New("throttle window must be positive")
		}
	}
	if c.BackupCode.Count <= 0 || c.BackupCode.Length <= 0 {
		return errors.New("backup code count and length must be positive")
	}
	if c.Directory.Enabled {
		if c.Directory.Host == "" {
			return errors.New("directory host required")
		}
		if c.Directory.Port <= 0 || c.Directory.Port > 65535 {
			return errors.New("directory port out of range")
		}
		if c.Directory.BindPrefix == "" {
			return errors.New("directory bind prefix required")
		}
	}
	if c.Token.Enabled && c.Token.TTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Crypto.MasterKey != nil {
		out.Crypto.MasterKey = append([]byte(nil), cfg.Crypto.MasterKey...)
	}
	if cfg.Token.PrivateKey != nil {
		out.Token.PrivateKey = append([]byte(nil), cfg.Token.PrivateKey...)
	}
	if cfg.Token.PublicKey != nil {
		out.Token.PublicKey = append([]byte(nil), cfg.Token.PublicKey...)
	}
	return out
}
