package directory

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
)

const (
	// MaxIdentityLength bounds accepted identifiers.
	MaxIdentityLength = 255

	defaultTimeout = 5 * time.Second
)

var (
	// ErrAuthFailed is the uniform failure observed by callers for every
	// rejected authentication attempt, whatever the underlying cause.
	ErrAuthFailed = errors.New("directory: authentication failed")

	// ErrInvalidIdentity rejects identifiers outside the allow-list before
	// any escaping or connection attempt happens.
	ErrInvalidIdentity = errors.New("directory: invalid identity")
)

// Cause is the closed set of internal failure causes, retained for audit
// logging only. It never reaches end users.
type Cause int

const (
	CauseNone Cause = iota
	CauseSyntax
	CauseConnect
	CauseBind
	CauseSearch
)

// String maps a cause to its audit label. The switch is exhaustive over the
// closed set; new causes must be added here.
func (c Cause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CauseSyntax:
		return "syntax"
	case CauseConnect:
		return "connect"
	case CauseBind:
		return "bind"
	case CauseSearch:
		return "search"
	default:
		return "unknown"
	}
}

// Failure wraps an internal error with its cause. Error text stays uniform;
// audit code unwraps the cause with errors.As.
type Failure struct {
	Cause Cause
	Err   error
}

func (f *Failure) Error() string {
	return ErrAuthFailed.Error()
}

func (f *Failure) Unwrap() error {
	return ErrAuthFailed
}

func fail(cause Cause, err error) error {
	return &Failure{Cause: cause, Err: err}
}

// CauseOf extracts the audit cause from an error returned by this package.
func CauseOf(err error) Cause {
	var f *Failure
	if errors.As(err, &f) {
		return f.Cause
	}
	return CauseNone
}

// Config holds the directory connection and naming parameters.
type Config struct {
	Host string
	Port int

	// BindPrefix and BindSuffix frame the escaped identity into a bind DN,
	// e.g. "uid=" + identity + ",ou=people,dc=example,dc=org".
	BindPrefix string
	BindSuffix string

	// Timeout bounds dialing and every directory operation. Zero selects the
	// 5 second default.
	Timeout time.Duration

	// TLSConfig overrides the TLS client configuration for the ldaps
	// connection. Nil uses the library default with the configured host name.
	TLSConfig *tls.Config
}

// Conn is the subset of the LDAP client used by the validator. *ldap.Conn
// satisfies it; tests substitute fakes.
type Conn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	SetTimeout(d time.Duration)
	Close() error
}

// Dialer opens a connection to the directory. The default dials ldaps with a
// bounded network timeout.
type Dialer func(ctx context.Context, cfg Config) (Conn, error)

func defaultDialer(ctx context.Context, cfg Config) (Conn, error) {
	tlsConfig := cfg.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}

	dialer := &net.Dialer{Timeout: cfg.Timeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	conn, err := ldap.DialURL(
		fmt.Sprintf("ldaps://%s:%d", cfg.Host, cfg.Port),
		ldap.DialWithDialer(dialer),
		ldap.DialWithTLSConfig(tlsConfig),
	)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Validator performs syntax validation, escaping, and credential checks
// against one configured directory.
type Validator struct {
	config Config
	dial   Dialer
}

// Option customizes a Validator.
type Option func(*Validator)

// WithDialer replaces the connection dialer. Used by tests and by callers
// that pool connections themselves.
func WithDialer(d Dialer) Option {
	return func(v *Validator) { v.dial = d }
}

// New validates the configuration and returns a Validator.
func New(cfg Config, opts ...Option) (*Validator, error) {
	if cfg.Host == "" {
		return nil, errors.New("directory: host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, errors.New("directory: invalid port")
	}
	if cfg.BindPrefix == "" {
		return nil, errors.New("directory: bind prefix is required")
	}
	if cfg.Timeout < 0 {
		return nil, errors.New("directory: negative timeout")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	v := &Validator{config: cfg, dial: defaultDialer}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// ValidateIdentity enforces the identifier allow-list: 1–255 characters of
// [A-Za-z0-9._@-]. This is the primary injection defense; escaping is a
// second, independent layer applied afterwards.
func ValidateIdentity(raw string) error {
	if len(raw) == 0 || len(raw) > MaxIdentityLength {
		return ErrInvalidIdentity
	}
	for i := 0; i < len(raw); i++ {
		if !identityChar(raw[i]) {
			return ErrInvalidIdentity
		}
	}
	return nil
}

func identityChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '.' || c == '_' || c == '@' || c == '-':
		return true
	}
	return false
}

// EscapeBindName escapes a value for use inside a distinguished name
// (RFC 4514). Never use this output in a search filter.
func EscapeBindName(value string) string {
	return ldap.EscapeDN(value)
}

// EscapeSearchFilter escapes a value for use inside a search filter
// (RFC 4515). Never use this output in a distinguished name.
func EscapeSearchFilter(value string) string {
	return ldap.EscapeFilter(value)
}

// BindDN builds the bind distinguished name for an already-validated identity.
func (v *Validator) BindDN(identity string) string {
	return v.config.BindPrefix + EscapeBindName(identity) + v.config.BindSuffix
}

// Authenticate confirms identity/secret by binding to the directory. All
// rejection paths return a [Failure] whose message is uniform; the cause is
// available to audit code via [CauseOf]. The connection is released on every
// path.
func (v *Validator) Authenticate(ctx context.Context, identity, secret string) error {
	if err := ValidateIdentity(identity); err != nil {
		return fail(CauseSyntax, err)
	}
	// An empty secret would turn the bind into an anonymous bind, which many
	// servers accept. Reject it before touching the network.
	if secret == "" {
		return fail(CauseBind, errors.New("empty bind password"))
	}

	conn, err := v.dial(ctx, v.config)
	if err != nil {
		return fail(CauseConnect, err)
	}
	defer conn.Close()
	conn.SetTimeout(v.config.Timeout)

	if err := conn.Bind(v.BindDN(identity), secret); err != nil {
		return fail(CauseBind, err)
	}
	return nil
}

// Lookup searches for an identity under searchBase with a filter-escaped
// (uid=...) filter. It is independent of the bind path and uses filter
// escaping, never DN escaping.
func (v *Validator) Lookup(ctx context.Context, identity, searchBase string) (map[string][]string, error) {
	if err := ValidateIdentity(identity); err != nil {
		return nil, fail(CauseSyntax, err)
	}

	conn, err := v.dial(ctx, v.config)
	if err != nil {
		return nil, fail(CauseConnect, err)
	}
	defer conn.Close()
	conn.SetTimeout(v.config.Timeout)

	req := ldap.NewSearchRequest(
		searchBase,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		1, // size limit: one entry
		int(v.config.Timeout/time.Second),
		false,
		"(uid="+EscapeSearchFilter(identity)+")",
		nil,
		nil,
	)

	res, err := conn.Search(req)
	if err != nil {
		return nil, fail(CauseSearch, err)
	}
	if len(res.Entries) == 0 {
		return nil, fail(CauseSearch, errors.New("no matching entry"))
	}

	entry := res.Entries[0]
	attrs := make(map[string][]string, len(entry.Attributes))
	for _, a := range entry.Attributes {
		attrs[a.Name] = a.Values
	}
	return attrs, nil
}
