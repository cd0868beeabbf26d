package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

const (
	idSize        = 16
	csrfTokenSize = 32
)

// Record defines a public type used by aegis APIs.
//
// Record instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Record struct {
	ID            string
	UserID        string
	OriginAddress string
	UserAgent     string
	CSRFToken     string
	Payload       map[string]string

	CreatedAt int64
	UpdatedAt int64
	ExpiresAt int64
}

// TimeoutClass selects which configured timeout applies to a write. The
// extended class exists for the fixed allow-list of long-lived routes
// (login, registration, password reset); it is policy, not a code path.
type TimeoutClass int

const (
	// TimeoutDefault is an exported constant or variable used by the session store.
	TimeoutDefault TimeoutClass = iota
	// TimeoutExtended is an exported constant or variable used by the session store.
	TimeoutExtended
)

// NewID returns a fresh opaque session identifier: 128 bits of
// crypto-random, base64url without padding.
func NewID() (string, error) {
	var raw [idSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewCSRFToken returns a fresh anti-forgery token with 256 bits of entropy.
func NewCSRFToken() (string, error) {
	var raw [csrfTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ValidateID rejects identifiers that cannot have been produced by NewID.
func ValidateID(id string) error {
	raw, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return errors.New("session: invalid id encoding")
	}
	if len(raw) != idSize {
		return errors.New("session: invalid id size")
	}
	return nil
}
