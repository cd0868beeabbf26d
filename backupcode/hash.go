package backupcode

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	hashAlgorithm  = "argon2id"
	hashSaltLength = 16
	hashKeyLength  = 32
)

// HashParams holds Argon2id costs for code hashing. Codes are short and
// low-entropy compared to passwords, which is exactly why the hash must be
// slow and salted per entry.
type HashParams struct {
	Memory      uint32 // in KiB
	Time        uint32
	Parallelism uint8
}

// DefaultHashParams returns production code-hashing costs.
func DefaultHashParams() HashParams {
	return HashParams{Memory: 32 * 1024, Time: 2, Parallelism: 1}
}

// Hasher hashes and verifies backup codes with per-entry random salts.
type Hasher struct {
	params HashParams
}

// NewHasher validates the cost parameters and returns a Hasher.
func NewHasher(params HashParams) (*Hasher, error) {
	if params.Memory < 8*1024 {
		return nil, errors.New("backupcode: hash memory must be >= 8192 KiB")
	}
	if params.Time < 1 {
		return nil, errors.New("backupcode: hash time must be >= 1")
	}
	if params.Parallelism < 1 {
		return nil, errors.New("backupcode: hash parallelism must be >= 1")
	}
	return &Hasher{params: params}, nil
}

// HashForStorage hashes each plaintext code with an independent random salt
// and returns the storable set. The input plaintext is never retained.
func (h *Hasher) HashForStorage(codes []string) (Set, error) {
	set := make(Set, 0, len(codes))
	for _, code := range codes {
		encoded, err := h.hash(Canonicalize(code))
		if err != nil {
			return nil, err
		}
		set = append(set, Entry{Hash: encoded})
	}
	return set, nil
}

func (h *Hasher) hash(canonical string) (string, error) {
	salt := make([]byte, hashSaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(canonical), salt, h.params.Time, h.params.Memory, h.params.Parallelism, hashKeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		hashAlgorithm,
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// compare re-derives the hash with the stored parameters and compares in
// constant time. A malformed stored hash never matches.
func (h *Hasher) compare(canonical, encoded string) bool {
	memory, time, parallelism, salt, want, err := parseHash(encoded)
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(canonical), salt, time, memory, parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

func parseHash(encoded string) (memory, time uint32, parallelism uint8, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != hashAlgorithm {
		return 0, 0, 0, nil, nil, errors.New("backupcode: malformed hash")
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return 0, 0, 0, nil, nil, errors.New("backupcode: unsupported hash version")
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &parallelism); err != nil {
		return 0, 0, 0, nil, nil, errors.New("backupcode: malformed hash parameters")
	}
	if memory == 0 || time == 0 || parallelism == 0 {
		return 0, 0, 0, nil, nil, errors.New("backupcode: invalid hash parameters")
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return 0, 0, 0, nil, nil, errors.New("backupcode: malformed hash salt")
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return 0, 0, 0, nil, nil, errors.New("backupcode: malformed hash key")
	}

	return memory, time, parallelism, salt, key, nil
}
