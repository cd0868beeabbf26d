package aegis

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/tmarkell/aegis/backupcode"
	"github.com/tmarkell/aegis/directory"
	"github.com/tmarkell/aegis/envelope"
	"github.com/tmarkell/aegis/internal/audit"
	"github.com/tmarkell/aegis/internal/limiters"
	"github.com/tmarkell/aegis/session"
	"github.com/tmarkell/aegis/token"
	"github.com/tmarkell/aegis/totp"
)

// Builder defines a public type used by aegis APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	codes     BackupCodeStore
	auditSink AuditSink
	dialer    directory.Dialer

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithBackupCodeStore describes the withbackupcodestore operation and its observable behavior.
//
// WithBackupCodeStore may return an error when input validation, dependency calls, or security checks fail.
// WithBackupCodeStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithBackupCodeStore(store BackupCodeStore) *Builder {
	b.codes = store
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithDirectoryDialer overrides how directory connections are established.
// Intended for tests and for hosts that pool connections themselves.
func (b *Builder) WithDirectoryDialer(d directory.Dialer) *Builder {
	b.dialer = d
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	env, err := envelope.NewService(b.config.Crypto.MasterKey, b.config.Crypto.KDF)
	if err != nil {
		return nil, err
	}

	hasher, err := backupcode.NewHasher(b.config.BackupCode.Hash)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:   b.config,
		envelope: env,
		hasher:   hasher,
		codes:    b.codes,
		metrics:  NewMetrics(b.config.Metrics),
	}

	e.sessions = session.NewStore(b.redis, session.Config{
		Prefix:          b.config.Session.Prefix,
		DefaultTimeout:  b.config.Session.DefaultTimeout,
		ExtendedTimeout: b.config.Session.ExtendedTimeout,
		RotateGrace:     b.config.Session.RotateGrace,
	})

	e.guard = limiters.NewFailedLoginGuard(b.redis, limiters.FailedLoginConfig{
		Enabled:     b.config.Throttle.Enabled,
		MaxAttempts: b.config.Throttle.MaxAttempts,
		Window:      b.config.Throttle.Window,
	})

	e.redeemLimiter = limiters.NewRedeemLimiter(b.redis, limiters.RedeemConfig{
		MaxAttempts: b.config.BackupCode.MaxAttempts,
		Cooldown:    b.config.BackupCode.Cooldown,
	})

	if b.config.Directory.Enabled {
		opts := []directory.Option{}
		if b.dialer != nil {
			opts = append(opts, directory.WithDialer(b.dialer))
		}
		validator, err := directory.New(directory.Config{
			Host:       b.config.Directory.Host,
			Port:       b.config.Directory.Port,
			BindPrefix: b.config.Directory.BindPrefix,
			BindSuffix: b.config.Directory.BindSuffix,
			Timeout:    b.config.Directory.Timeout,
			TLSConfig:  b.config.Directory.TLSConfig,
		}, opts...)
		if err != nil {
			return nil, err
		}
		e.directory = validator
	}

	if b.config.TOTP.Enabled {
		manager, err := totp.NewManager(totp.Config{
			Issuer: b.config.TOTP.Issuer,
			Period: b.config.TOTP.Period,
			Skew:   b.config.TOTP.Skew,
			Digits: b.config.TOTP.Digits,
		})
		if err != nil {
			return nil, err
		}
		e.totp = manager
	}

	if b.config.Token.Enabled {
		manager, err := token.NewManager(token.Config{
			TTL:           b.config.Token.TTL,
			SigningMethod: b.config.Token.SigningMethod,
			PrivateKey:    b.config.Token.PrivateKey,
			PublicKey:     b.config.Token.PublicKey,
			Issuer:        b.config.Token.Issuer,
			Audience:      b.config.Token.Audience,
			Leeway:        b.config.Token.Leeway,
		})
		if err != nil {
			return nil, err
		}
		e.tokens = manager
	}

	e.audit = audit.NewDispatcher(audit.DispatcherConfig{
		Enabled:    b.config.Audit.Enabled,
		BufferSize: b.config.Audit.BufferSize,
		DropIfFull: b.config.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true
	return e, nil
}
