package aegis

import (
	"context"
	"time"
)

// TOTPEnrollment carries the provisioning material for a new authenticator
// enrollment. Secret and URL are shown to the user once; EncryptedSecret is
// the envelope the host persists and later passes to [Engine.VerifyTOTP].
type TOTPEnrollment struct {
	Secret          string
	URL             string
	EncryptedSecret string
}

// EnrollTOTP generates a fresh authenticator secret for the account. The
// engine never stores the secret; it hands back an envelope ciphertext for
// the host to persist.
func (e *Engine) EnrollTOTP(ctx context.Context, accountName string) (*TOTPEnrollment, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.totp == nil {
		return nil, ErrTOTPFeatureDisabled
	}

	enrollment, err := e.totp.Enroll(accountName)
	if err != nil {
		return nil, ErrInvalidInput
	}
	sealed, err := e.EncryptSecret([]byte(enrollment.Secret))
	if err != nil {
		return nil, err
	}

	e.emitAudit(ctx, EventTOTPEnrolled, true, accountName, nil, nil)
	return &TOTPEnrollment{
		Secret:          enrollment.Secret,
		URL:             enrollment.URL,
		EncryptedSecret: sealed,
	}, nil
}

// VerifyTOTP checks a one-time code against the envelope-protected secret.
func (e *Engine) VerifyTOTP(ctx context.Context, encryptedSecret, code string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if e.totp == nil {
		return ErrTOTPFeatureDisabled
	}

	secret, err := e.DecryptSecret(encryptedSecret)
	if err != nil {
		return err
	}

	ok, err := e.totp.Verify(string(secret), code, time.Now())
	if err != nil || !ok {
		e.metricInc(MetricTOTPFailure)
		e.emitAudit(ctx, EventTOTPRejected, false, "", ErrTOTPInvalid, nil)
		return ErrTOTPInvalid
	}

	e.metricInc(MetricTOTPSuccess)
	e.emitAudit(ctx, EventTOTPVerified, true, "", nil, nil)
	return nil
}
