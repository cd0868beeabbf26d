package aegis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-ldap/ldap/v3"
	"github.com/redis/go-redis/v9"

	"github.com/tmarkell/aegis/backupcode"
	"github.com/tmarkell/aegis/directory"
	"github.com/tmarkell/aegis/envelope"
)

const testSecret = "correct-horse-battery"

type fakeDirConn struct {
	mu        sync.Mutex
	bindCalls int
	bindErr   error
}

func (c *fakeDirConn) Bind(username, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindCalls++
	if c.bindErr != nil {
		return c.bindErr
	}
	if password != testSecret {
		return ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("invalid credentials"))
	}
	return nil
}

func (c *fakeDirConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	return &ldap.SearchResult{}, nil
}

func (c *fakeDirConn) SetTimeout(time.Duration) {}
func (c *fakeDirConn) Close() error             { return nil }

type memoryCodeStore struct {
	mu   sync.Mutex
	sets map[string]backupcode.Set
}

func newMemoryCodeStore() *memoryCodeStore {
	return &memoryCodeStore{sets: map[string]backupcode.Set{}}
}

func (s *memoryCodeStore) GetBackupCodes(_ context.Context, userID string) (backupcode.Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[userID]
	out := make(backupcode.Set, len(set))
	copy(out, set)
	return out, nil
}

func (s *memoryCodeStore) ReplaceBackupCodes(_ context.Context, userID string, set backupcode.Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make(backupcode.Set, len(set))
	copy(stored, set)
	s.sets[userID] = stored
	return nil
}

func (s *memoryCodeStore) MarkBackupCodeUsed(_ context.Context, userID string, index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[userID]
	if index < 0 || index >= len(set) {
		return false, nil
	}
	if set[index].Used {
		return false, nil
	}
	set[index].Used = true
	return true, nil
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Crypto.MasterKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Crypto.KDF = envelope.KDFParams{Memory: 8192, Time: 1, Parallelism: 1}
	cfg.BackupCode.Hash = backupcode.HashParams{Memory: 8192, Time: 1, Parallelism: 1}
	cfg.Directory.Enabled = true
	cfg.Directory.Host = "ldap.example.org"
	cfg.Directory.Port = 636
	cfg.Directory.BindPrefix = "uid="
	cfg.Directory.BindSuffix = ",ou=people,dc=example,dc=org"
	return cfg
}

func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *fakeDirConn, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	conn := &fakeDirConn{}
	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithBackupCodeStore(newMemoryCodeStore()).
		WithDirectoryDialer(func(ctx context.Context, _ directory.Config) (directory.Conn, error) {
			return conn, nil
		}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, conn, mr
}

func authCtx(origin string) context.Context {
	return WithRequestMeta(context.Background(), RequestMeta{
		OriginAddress: origin,
		UserAgent:     "test-agent/1.0",
	})
}
