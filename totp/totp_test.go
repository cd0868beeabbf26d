package totp

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{Issuer: "aegis-test"})
	require.NoError(t, err)
	return m
}

func TestEnrollProducesProvisioningURL(t *testing.T) {
	m := newManager(t)

	enrollment, err := m.Enroll("alice@example.org")
	require.NoError(t, err)

	assert.NotEmpty(t, enrollment.Secret)
	assert.True(t, strings.HasPrefix(enrollment.URL, "otpauth://totp/"))
	assert.Contains(t, enrollment.URL, "aegis-test")
}

func TestVerifyAcceptsCurrentCode(t *testing.T) {
	m := newManager(t)

	enrollment, err := m.Enroll("alice@example.org")
	require.NoError(t, err)

	now := time.Now()
	code, err := totp.GenerateCode(enrollment.Secret, now)
	require.NoError(t, err)

	ok, err := m.Verify(enrollment.Secret, code, now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsStaleCode(t *testing.T) {
	m := newManager(t)

	enrollment, err := m.Enroll("alice@example.org")
	require.NoError(t, err)

	// Two periods plus skew in the past.
	old := time.Now().Add(-3 * 30 * time.Second)
	code, err := totp.GenerateCode(enrollment.Secret, old)
	require.NoError(t, err)

	ok, err := m.Verify(enrollment.Secret, code, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyEmptyInputs(t *testing.T) {
	m := newManager(t)

	ok, err := m.Verify("", "123456", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.Verify("SECRET", "", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(Config{})
	assert.Error(t, err)

	_, err = NewManager(Config{Issuer: "x", Digits: 7})
	assert.Error(t, err)
}
