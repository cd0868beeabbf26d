package aegis

import "context"

type contextKey uint8

const metaContextKey contextKey = 1

// WithRequestMeta attaches the caller's origin address and user agent to the
// context. The engine reads them for session binding and audit events.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, metaContextKey, meta)
}

func metaFromContext(ctx context.Context) (RequestMeta, bool) {
	if ctx == nil {
		return RequestMeta{}, false
	}
	meta, ok := ctx.Value(metaContextKey).(RequestMeta)
	return meta, ok
}
