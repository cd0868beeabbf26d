package aegis

import (
	"github.com/tmarkell/aegis/backupcode"
	"github.com/tmarkell/aegis/directory"
	"github.com/tmarkell/aegis/envelope"
	"github.com/tmarkell/aegis/internal/audit"
	"github.com/tmarkell/aegis/internal/limiters"
	"github.com/tmarkell/aegis/session"
	"github.com/tmarkell/aegis/token"
	"github.com/tmarkell/aegis/totp"
)

// Engine defines a public type used by aegis APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config        Config
	envelope      *envelope.Service
	sessions      *session.Store
	guard         *limiters.FailedLoginGuard
	redeemLimiter *limiters.RedeemLimiter
	hasher        *backupcode.Hasher
	directory     *directory.Validator
	totp          *totp.Manager
	tokens        *token.Manager
	audit         *audit.Dispatcher
	metrics       *Metrics
	codes         BackupCodeStore
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
