package backupcode

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
)

// Alphabet is the unambiguous code alphabet. 0, O, I, and 1 are excluded so a
// code read off paper cannot be mistyped into a different valid code.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	// DefaultCount is the number of codes in a freshly generated set.
	DefaultCount = 10
	// DefaultLength is the canonical (separator-free) code length.
	DefaultLength = 8

	groupSize = 4
	separator = "-"
)

var (
	// ErrIndexOutOfRange is returned by MarkUsed for an invalid entry index.
	ErrIndexOutOfRange = errors.New("backupcode: index out of range")
	// ErrAlreadyUsed is returned by MarkUsed when the entry was redeemed before.
	ErrAlreadyUsed = errors.New("backupcode: code already used")
)

// Entry is one stored code: its hash and a one-way used flag.
type Entry struct {
	Hash string `json:"hash"`
	Used bool   `json:"used"`
}

// Set is the ordered collection of entries belonging to one account. It is
// persisted as a single serialized blob attached to the account record.
type Set []Entry

// Generate returns count plaintext codes of the given canonical length, each
// formatted for display. The plaintext exists only in the returned slice;
// callers hash it with a Hasher before storing anything.
func Generate(count, length int) ([]string, error) {
	if count <= 0 || length <= 0 {
		return nil, errors.New("backupcode: invalid count or length")
	}

	codes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		raw, err := newCode(length)
		if err != nil {
			return nil, err
		}
		codes = append(codes, Format(raw))
	}
	return codes, nil
}

func newCode(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	max := big.NewInt(int64(len(Alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Format renders a canonical code as grouped display form, e.g. ABCD-EFGH.
func Format(code string) string {
	if len(code) <= groupSize {
		return code
	}
	var b strings.Builder
	b.Grow(len(code) + len(code)/groupSize)
	for i := 0; i < len(code); i += groupSize {
		if i > 0 {
			b.WriteString(separator)
		}
		end := i + groupSize
		if end > len(code) {
			end = len(code)
		}
		b.WriteString(code[i:end])
	}
	return b.String()
}

// Canonicalize strips separators and whitespace and uppercases the input,
// recovering the canonical form from however the user typed the code.
func Canonicalize(code string) string {
	s := strings.ToUpper(strings.TrimSpace(code))
	s = strings.ReplaceAll(s, separator, "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// ValidateFormat reports whether candidate canonicalizes to a well-formed code
// of the given length. It is a pure syntax check and never touches stored
// hashes, so it is safe for pre-validation in request handlers.
func ValidateFormat(candidate string, length int) bool {
	canonical := Canonicalize(candidate)
	if len(canonical) != length {
		return false
	}
	for i := 0; i < len(canonical); i++ {
		if !strings.ContainsRune(Alphabet, rune(canonical[i])) {
			return false
		}
	}
	return true
}

// Verify checks a provided code against every unused entry and returns the
// index of the first match. Used entries are skipped entirely, so a redeemed
// code can never match again regardless of input.
func (h *Hasher) Verify(code string, set Set) (int, bool) {
	canonical := Canonicalize(code)
	if canonical == "" {
		return 0, false
	}
	for i, entry := range set {
		if entry.Used {
			continue
		}
		if h.compare(canonical, entry.Hash) {
			return i, true
		}
	}
	return 0, false
}

// MarkUsed flips exactly one entry to used and returns the updated set. The
// flip is one-way; marking an already-used entry fails. Together with Verify
// this forms the redeem operation — callers that share the set across
// processes must commit the flip with a conditional update in their store.
func MarkUsed(set Set, index int) (Set, error) {
	if index < 0 || index >= len(set) {
		return set, ErrIndexOutOfRange
	}
	if set[index].Used {
		return set, ErrAlreadyUsed
	}

	out := make(Set, len(set))
	copy(out, set)
	out[index].Used = true
	return out, nil
}

// RemainingCount returns the number of unredeemed entries.
func RemainingCount(set Set) int {
	n := 0
	for _, entry := range set {
		if !entry.Used {
			n++
		}
	}
	return n
}

// EncodeSet serializes a set to its storage blob.
func EncodeSet(set Set) ([]byte, error) {
	return json.Marshal(set)
}

// DecodeSet parses a storage blob produced by EncodeSet.
func DecodeSet(data []byte) (Set, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, err
	}
	return set, nil
}
