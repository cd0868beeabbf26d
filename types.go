package aegis

// RequestMeta defines a public type used by aegis APIs.
//
// RequestMeta instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RequestMeta struct {
	OriginAddress string
	UserAgent     string
}

// AuthResult defines a public type used by aegis APIs.
//
// AuthResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuthResult struct {
	Identity      string
	SessionID     string
	CSRFToken     string
	ExchangeToken string
}

// SessionView is the read-only projection of a session record returned to
// the host application.
type SessionView struct {
	ID            string
	UserID        string
	OriginAddress string
	UserAgent     string
	CSRFToken     string
	Payload       map[string]string
	CreatedAt     int64
	UpdatedAt     int64
	ExpiresAt     int64
}
