package aegis

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Session.DefaultTimeout != time.Hour {
		t.Fatalf("default timeout = %v", cfg.Session.DefaultTimeout)
	}
	if cfg.Session.ExtendedTimeout != 30*24*time.Hour {
		t.Fatalf("extended timeout = %v", cfg.Session.ExtendedTimeout)
	}
	if !cfg.Throttle.Enabled || cfg.Throttle.MaxAttempts != 5 {
		t.Fatalf("throttle defaults: %+v", cfg.Throttle)
	}
	if cfg.BackupCode.Count != 10 || cfg.BackupCode.Length != 8 {
		t.Fatalf("backup code defaults: %+v", cfg.BackupCode)
	}
	if cfg.Directory.Enabled || cfg.TOTP.Enabled || cfg.Token.Enabled {
		t.Fatal("optional features must default to disabled")
	}
}

func TestConfigValidate(t *testing.T) {
	valid := testConfig()
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "short master key",
			mutate:  func(c *Config) { c.Crypto.MasterKey = []byte("too short") },
			wantMsg: "master key",
		},
		{
			name:    "zero session timeout",
			mutate:  func(c *Config) { c.Session.DefaultTimeout = 0 },
			wantMsg: "session timeouts",
		},
		{
			name:    "extended below default",
			mutate:  func(c *Config) { c.Session.ExtendedTimeout = time.Minute },
			wantMsg: "extended session timeout",
		},
		{
			name:    "zero throttle attempts",
			mutate:  func(c *Config) { c.Throttle.MaxAttempts = 0 },
			wantMsg: "throttle max attempts",
		},
		{
			name:    "zero backup code count",
			mutate:  func(c *Config) { c.BackupCode.Count = 0 },
			wantMsg: "backup code",
		},
		{
			name:    "directory without host",
			mutate:  func(c *Config) { c.Directory.Host = "" },
			wantMsg: "directory host",
		},
		{
			name:    "directory port out of range",
			mutate:  func(c *Config) { c.Directory.Port = 70000 },
			wantMsg: "directory port",
		},
		{
			name: "token enabled without TTL",
			mutate: func(c *Config) {
				c.Token.Enabled = true
				c.Token.TTL = 0
			},
			wantMsg: "token TTL",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("error %q does not mention %q", err, tc.wantMsg)
			}
		})
	}
}

func TestCloneConfigIsolatesKeyMaterial(t *testing.T) {
	cfg := testConfig()
	cfg.Token.PrivateKey = []byte("signing-key")

	clone := cloneConfig(cfg)
	cfg.Crypto.MasterKey[0] = 'X'
	cfg.Token.PrivateKey[0] = 'X'

	if clone.Crypto.MasterKey[0] == 'X' {
		t.Fatal("clone shares master key backing array")
	}
	if clone.Token.PrivateKey[0] == 'X' {
		t.Fatal("clone shares private key backing array")
	}
}
