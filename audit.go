package aegis

import (
	"context"

	"github.com/tmarkell/aegis/internal/audit"
)

// AuditEvent is the event shape delivered to audit sinks.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher.
type AuditSink = audit.Sink

// NoOpSink discards every audit event.
type NoOpSink = audit.NoOpSink

// NewChannelSink creates a channel-backed audit sink, mainly for tests.
func NewChannelSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a sink writing one JSON object per line.
var NewJSONWriterSink = audit.NewJSONWriterSink

// Audit event types emitted by the engine.
const (
	// EventAuthSuccess is an exported constant or variable used by the authentication engine.
	EventAuthSuccess = "auth.success"
	// EventAuthFailure is an exported constant or variable used by the authentication engine.
	EventAuthFailure = "auth.failure"
	// EventLockoutTriggered is an exported constant or variable used by the authentication engine.
	EventLockoutTriggered = "auth.lockout.triggered"
	// EventLockoutRejected is an exported constant or variable used by the authentication engine.
	EventLockoutRejected = "auth.lockout.rejected"
	// EventSessionCreated is an exported constant or variable used by the authentication engine.
	EventSessionCreated = "session.created"
	// EventSessionRotated is an exported constant or variable used by the authentication engine.
	EventSessionRotated = "session.rotated"
	// EventSessionDestroyed is an exported constant or variable used by the authentication engine.
	EventSessionDestroyed = "session.destroyed"
	// EventSessionsTerminated is an exported constant or variable used by the authentication engine.
	EventSessionsTerminated = "session.terminated_all"
	// EventBackupCodesGenerated is an exported constant or variable used by the authentication engine.
	EventBackupCodesGenerated = "backup.generated"
	// EventBackupCodeRedeemed is an exported constant or variable used by the authentication engine.
	EventBackupCodeRedeemed = "backup.redeem.success"
	// EventBackupCodeRejected is an exported constant or variable used by the authentication engine.
	EventBackupCodeRejected = "backup.redeem.failure"
	// EventBackupCodeRateLimited is an exported constant or variable used by the authentication engine.
	EventBackupCodeRateLimited = "backup.redeem.rate_limited"
	// EventTOTPEnrolled is an exported constant or variable used by the authentication engine.
	EventTOTPEnrolled = "totp.enrolled"
	// EventTOTPVerified is an exported constant or variable used by the authentication engine.
	EventTOTPVerified = "totp.verified"
	// EventTOTPRejected is an exported constant or variable used by the authentication engine.
	EventTOTPRejected = "totp.rejected"
	// EventTokenIssued is an exported constant or variable used by the authentication engine.
	EventTokenIssued = "token.issued"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identity string,
	err error,
	metadata func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := audit.NewEvent(eventType)
	event.Identity = identity
	event.Success = success
	if err != nil {
		event.Error = err.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}
	if meta, ok := metaFromContext(ctx); ok {
		event.Origin = meta.OriginAddress
		event.UserAgent = meta.UserAgent
	}
	e.audit.Emit(ctx, event)
}
