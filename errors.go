package aegis

import "errors"

var (
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrInvalidInput is an exported constant or variable used by the authentication engine.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAuthenticationFailed is an exported constant or variable used by the authentication engine.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrLockedOut is an exported constant or variable used by the authentication engine.
	ErrLockedOut = errors.New("too many failed attempts")
	// ErrDirectoryDisabled is an exported constant or variable used by the authentication engine.
	ErrDirectoryDisabled = errors.New("directory validation disabled")
	// ErrSessionNotFound is an exported constant or variable used by the authentication engine.
	ErrSessionNotFound = errors.New("session not found")
	// ErrDecryptFailed is an exported constant or variable used by the authentication engine.
	ErrDecryptFailed = errors.New("decryption failed")
	// ErrBackupCodeInvalid is an exported constant or variable used by the authentication engine.
	ErrBackupCodeInvalid = errors.New("backup code invalid")
	// ErrBackupCodeRateLimited is an exported constant or variable used by the authentication engine.
	ErrBackupCodeRateLimited = errors.New("backup code rate limited")
	// ErrBackupCodesNotConfigured is an exported constant or variable used by the authentication engine.
	ErrBackupCodesNotConfigured = errors.New("backup codes not configured")
	// ErrTOTPFeatureDisabled is an exported constant or variable used by the authentication engine.
	ErrTOTPFeatureDisabled = errors.New("totp feature disabled")
	// ErrTOTPInvalid is an exported constant or variable used by the authentication engine.
	ErrTOTPInvalid = errors.New("totp code invalid")
	// ErrTokenFeatureDisabled is an exported constant or variable used by the authentication engine.
	ErrTokenFeatureDisabled = errors.New("token feature disabled")
	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrBackendUnavailable is an exported constant or variable used by the authentication engine.
	ErrBackendUnavailable = errors.New("backend unavailable")
)
