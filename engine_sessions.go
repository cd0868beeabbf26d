package aegis

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/tmarkell/aegis/session"
)

func viewOf(rec *session.Record) *SessionView {
	view := &SessionView{
		ID:            rec.ID,
		UserID:        rec.UserID,
		OriginAddress: rec.OriginAddress,
		UserAgent:     rec.UserAgent,
		CSRFToken:     rec.CSRFToken,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
		ExpiresAt:     rec.ExpiresAt,
	}
	if len(rec.Payload) > 0 {
		view.Payload = make(map[string]string, len(rec.Payload))
		for k, v := range rec.Payload {
			view.Payload[k] = v
		}
	}
	return view
}

func (e *Engine) getSession(ctx context.Context, id string) (*session.Record, error) {
	if session.ValidateID(id) != nil {
		return nil, ErrSessionNotFound
	}
	rec, err := e.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			e.metricInc(MetricSessionNotFound)
			return nil, ErrSessionNotFound
		}
		return nil, ErrBackendUnavailable
	}
	return rec, nil
}

// ReadSession returns the session record without renewing it. An expired or
// unknown identifier yields [ErrSessionNotFound]; the two are not
// distinguishable by the caller.
func (e *Engine) ReadSession(ctx context.Context, id string) (*SessionView, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	rec, err := e.getSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return viewOf(rec), nil
}

// TouchSession renews the sliding expiry of a live session and rotates its
// identifier once the rotation interval has passed since creation or the
// last rotation. The returned view carries the identifier the caller must
// use from now on.
func (e *Engine) TouchSession(ctx context.Context, id string, class session.TimeoutClass) (*SessionView, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	rec, err := e.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	interval := e.config.Session.RotationInterval
	if interval > 0 && time.Now().Unix()-rec.CreatedAt >= int64(interval/time.Second) {
		return e.rotate(ctx, rec, class)
	}

	if err := e.sessions.Save(ctx, rec, class); err != nil {
		return nil, ErrBackendUnavailable
	}
	return viewOf(rec), nil
}

// WriteSessionPayload merges the given keys into the session payload and
// renews the sliding expiry.
func (e *Engine) WriteSessionPayload(ctx context.Context, id string, payload map[string]string, class session.TimeoutClass) (*SessionView, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	rec, err := e.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(payload) > 0 {
		if rec.Payload == nil {
			rec.Payload = make(map[string]string, len(payload))
		}
		for k, v := range payload {
			rec.Payload[k] = v
		}
	}

	if err := e.sessions.Save(ctx, rec, class); err != nil {
		return nil, ErrBackendUnavailable
	}
	return viewOf(rec), nil
}

// RotateSession forces an identifier rotation, regenerating the anti-forgery
// token. The old identifier stays valid only for the configured grace window.
func (e *Engine) RotateSession(ctx context.Context, id string, class session.TimeoutClass) (*SessionView, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	rec, err := e.getSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.rotate(ctx, rec, class)
}

func (e *Engine) rotate(ctx context.Context, rec *session.Record, class session.TimeoutClass) (*SessionView, error) {
	rotated, err := e.sessions.Rotate(ctx, rec.ID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, ErrBackendUnavailable
	}
	if err := e.sessions.Save(ctx, rotated, class); err != nil {
		return nil, ErrBackendUnavailable
	}

	e.metricInc(MetricSessionRotated)
	e.emitAudit(ctx, EventSessionRotated, true, rotated.UserID, nil, func() map[string]string {
		return map[string]string{"session_id": rotated.ID}
	})
	return viewOf(rotated), nil
}

// DestroySession removes a session. Destroying an absent session is not an
// error.
func (e *Engine) DestroySession(ctx context.Context, id string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if session.ValidateID(id) != nil {
		return nil
	}
	if err := e.sessions.Delete(ctx, id); err != nil {
		return ErrBackendUnavailable
	}
	e.metricInc(MetricSessionDestroyed)
	e.emitAudit(ctx, EventSessionDestroyed, true, "", nil, func() map[string]string {
		return map[string]string{"session_id": id}
	})
	return nil
}

// ValidateCSRF compares a presented anti-forgery token against the one bound
// to the session, in constant time.
func (e *Engine) ValidateCSRF(ctx context.Context, id, presented string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	rec, err := e.getSession(ctx, id)
	if err != nil {
		return false, err
	}
	if rec.CSRFToken == "" || presented == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(rec.CSRFToken), []byte(presented)) == 1, nil
}

// ListSessions returns the live sessions of one user.
func (e *Engine) ListSessions(ctx context.Context, userID string) ([]*SessionView, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	records, err := e.sessions.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, ErrBackendUnavailable
	}
	views := make([]*SessionView, 0, len(records))
	for _, rec := range records {
		views = append(views, viewOf(rec))
	}
	return views, nil
}

// TerminateOtherSessions deletes every session of a user except keepID.
// Pass an empty keepID to terminate all of them.
func (e *Engine) TerminateOtherSessions(ctx context.Context, userID, keepID string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.sessions.TerminateAllForUser(ctx, userID, keepID)
	if err != nil {
		return n, ErrBackendUnavailable
	}
	e.emitAudit(ctx, EventSessionsTerminated, true, "", nil, func() map[string]string {
		return map[string]string{"user_id": userID}
	})
	return n, nil
}

// SweepSessions garbage-collects stale user index entries. Intended to run
// from a host-level ticker.
func (e *Engine) SweepSessions(ctx context.Context) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.sessions.Sweep(ctx)
	if err != nil {
		return n, ErrBackendUnavailable
	}
	return n, nil
}
