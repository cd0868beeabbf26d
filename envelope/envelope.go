package envelope

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// FormatVersion is the current envelope format tag. Unknown versions are
	// rejected outright during decryption.
	FormatVersion byte = 1

	// MaxPlaintextSize bounds the input accepted by Encrypt. The KDF cost is
	// the security feature; the size cap bounds worst-case latency.
	MaxPlaintextSize = 64 * 1024

	// MinMasterKeySize is the minimum master key length in bytes.
	MinMasterKeySize = 32

	saltSize   = 16
	derivedKey = 32

	headerSize = 1 + saltSize
	minRawSize = headerSize + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
)

var (
	// ErrDecryptFailed is the single failure signal for every non-success
	// decryption path. Wrong key, tampered data, and corrupt encoding are
	// deliberately indistinguishable.
	ErrDecryptFailed = errors.New("envelope: decrypt failed")

	// ErrEmptyPlaintext is an input validation error for zero-length plaintext.
	ErrEmptyPlaintext = errors.New("envelope: empty plaintext")
	// ErrPlaintextTooLarge is an input validation error for oversized plaintext.
	ErrPlaintextTooLarge = errors.New("envelope: plaintext exceeds size limit")
	// ErrMasterKeyTooShort rejects master keys below MinMasterKeySize.
	ErrMasterKeyTooShort = errors.New("envelope: master key must be at least 32 bytes")
)

// KDFParams holds the Argon2id cost parameters for per-call key derivation.
type KDFParams struct {
	Memory      uint32 // in KiB
	Time        uint32
	Parallelism uint8
}

// DefaultKDFParams returns production Argon2id costs: 64 MiB, 3 passes.
func DefaultKDFParams() KDFParams {
	return KDFParams{Memory: 64 * 1024, Time: 3, Parallelism: 2}
}

func (p KDFParams) validate() error {
	if p.Memory < 8*1024 {
		return errors.New("envelope: KDF memory must be >= 8192 KiB")
	}
	if p.Time < 1 {
		return errors.New("envelope: KDF time must be >= 1")
	}
	if p.Parallelism < 1 {
		return errors.New("envelope: KDF parallelism must be >= 1")
	}
	return nil
}

// Service seals and opens envelopes under a fixed master key. It is stateless
// apart from the key material and safe for concurrent use.
type Service struct {
	masterKey []byte
	kdf       KDFParams
}

// NewService validates the master key and KDF parameters and returns a Service.
// A short master key fails here, at configuration time, not at first use.
func NewService(masterKey []byte, kdf KDFParams) (*Service, error) {
	if len(masterKey) < MinMasterKeySize {
		return nil, ErrMasterKeyTooShort
	}
	if err := kdf.validate(); err != nil {
		return nil, err
	}

	key := make([]byte, len(masterKey))
	copy(key, masterKey)

	return &Service{masterKey: key, kdf: kdf}, nil
}

// Encrypt seals plaintext into a versioned envelope string. Each call uses a
// fresh random salt and nonce; the version byte and salt are bound into the
// authentication tag as associated data.
func (s *Service) Encrypt(plaintext []byte) (string, error) {
	if len(plaintext) == 0 {
		return "", ErrEmptyPlaintext
	}
	if len(plaintext) > MaxPlaintextSize {
		return "", ErrPlaintextTooLarge
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := s.deriveKey(salt)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	raw := make([]byte, 0, headerSize+len(nonce)+len(plaintext)+aead.Overhead())
	raw = append(raw, FormatVersion)
	raw = append(raw, salt...)
	raw = append(raw, nonce...)
	raw = aead.Seal(raw, nonce, plaintext, raw[:headerSize])

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decrypt opens an envelope previously produced by Encrypt. The tag is checked
// in constant time by the AEAD before any decrypted byte is interpreted.
func (s *Service) Decrypt(encoded string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	if len(raw) < minRawSize {
		return nil, ErrDecryptFailed
	}
	if raw[0] != FormatVersion {
		return nil, ErrDecryptFailed
	}

	salt := raw[1:headerSize]
	nonce := raw[headerSize : headerSize+chacha20poly1305.NonceSizeX]
	body := raw[headerSize+chacha20poly1305.NonceSizeX:]

	key := s.deriveKey(salt)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	plaintext, err := aead.Open(nil, nonce, body, raw[:headerSize])
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

func (s *Service) deriveKey(salt []byte) []byte {
	return argon2.IDKey(s.masterKey, salt, s.kdf.Time, s.kdf.Memory, s.kdf.Parallelism, derivedKey)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
