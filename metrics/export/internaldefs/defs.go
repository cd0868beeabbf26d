package internaldefs

import (
	aegis "github.com/tmarkell/aegis"
)

// CounterDef defines a public type used by aegis APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   aegis.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by aegis APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   aegis.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: aegis.MetricAuthSuccess, Name: "aegis_auth_success_total", Help: "Successful credential validations."},
	{ID: aegis.MetricAuthFailure, Name: "aegis_auth_failure_total", Help: "Failed credential validations."},
	{ID: aegis.MetricAuthLockedOut, Name: "aegis_auth_locked_out_total", Help: "Authentication attempts rejected by lockout."},
	{ID: aegis.MetricSessionCreated, Name: "aegis_session_created_total", Help: "Created sessions."},
	{ID: aegis.MetricSessionRotated, Name: "aegis_session_rotated_total", Help: "Session identifier rotations."},
	{ID: aegis.MetricSessionDestroyed, Name: "aegis_session_destroyed_total", Help: "Destroyed sessions."},
	{ID: aegis.MetricSessionNotFound, Name: "aegis_session_not_found_total", Help: "Lookups of absent or expired sessions."},
	{ID: aegis.MetricEncryptOps, Name: "aegis_encrypt_ops_total", Help: "Envelope encryption operations."},
	{ID: aegis.MetricDecryptOps, Name: "aegis_decrypt_ops_total", Help: "Successful envelope decryption operations."},
	{ID: aegis.MetricDecryptFailure, Name: "aegis_decrypt_failure_total", Help: "Failed envelope decryption operations."},
	{ID: aegis.MetricBackupCodeRedeemed, Name: "aegis_backup_code_redeemed_total", Help: "Successful backup code redemptions."},
	{ID: aegis.MetricBackupCodeRejected, Name: "aegis_backup_code_rejected_total", Help: "Rejected backup code redemptions."},
	{ID: aegis.MetricBackupCodeRateLimited, Name: "aegis_backup_code_rate_limited_total", Help: "Rate-limited backup code redemptions."},
	{ID: aegis.MetricBackupCodesGenerated, Name: "aegis_backup_codes_generated_total", Help: "Backup code set generations."},
	{ID: aegis.MetricTOTPSuccess, Name: "aegis_totp_success_total", Help: "Successful TOTP verifications."},
	{ID: aegis.MetricTOTPFailure, Name: "aegis_totp_failure_total", Help: "Failed TOTP verifications."},
	{ID: aegis.MetricTokenIssued, Name: "aegis_token_issued_total", Help: "Issued exchange tokens."},
	{ID: aegis.MetricDirectoryUnavailable, Name: "aegis_directory_unavailable_total", Help: "Directory connection or timeout failures."},
}

// HistogramDefs is an exported constant or variable used by the authentication engine.
var HistogramDefs = []HistogramDef{
	{ID: aegis.MetricAuthenticateLatency, Name: "aegis_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the authentication engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the authentication engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
