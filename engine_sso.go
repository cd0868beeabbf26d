package aegis

import (
	"context"

	"github.com/tmarkell/aegis/token"
)

// IssueExchangeToken signs a short-lived token attesting the identity and
// session to downstream services, so they never handle directory
// credentials themselves.
func (e *Engine) IssueExchangeToken(ctx context.Context, identity, sessionID string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if e.tokens == nil {
		return "", ErrTokenFeatureDisabled
	}
	if identity == "" {
		return "", ErrInvalidInput
	}

	signed, err := e.tokens.Issue(identity, sessionID)
	if err != nil {
		return "", err
	}
	e.metricInc(MetricTokenIssued)
	e.emitAudit(ctx, EventTokenIssued, true, identity, nil, nil)
	return signed, nil
}

// VerifyExchangeToken parses and validates an exchange token, returning its
// claims. Expired, tampered, or cross-algorithm tokens are rejected with
// [ErrTokenInvalid].
func (e *Engine) VerifyExchangeToken(tokenStr string) (*token.Claims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.tokens == nil {
		return nil, ErrTokenFeatureDisabled
	}
	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
