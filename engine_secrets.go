package aegis

// EncryptSecret seals a plaintext into a self-describing envelope string
// safe to persist in any store. Every call produces a distinct ciphertext.
func (e *Engine) EncryptSecret(plaintext []byte) (string, error) {
	if e == nil || e.envelope == nil {
		return "", ErrEngineNotReady
	}
	sealed, err := e.envelope.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	e.metricInc(MetricEncryptOps)
	return sealed, nil
}

// DecryptSecret opens an envelope produced by [Engine.EncryptSecret]. Any
// failure, from transport corruption to a wrong key, surfaces as the single
// [ErrDecryptFailed] sentinel.
func (e *Engine) DecryptSecret(sealed string) ([]byte, error) {
	if e == nil || e.envelope == nil {
		return nil, ErrEngineNotReady
	}
	plaintext, err := e.envelope.Decrypt(sealed)
	if err != nil {
		e.metricInc(MetricDecryptFailure)
		return nil, ErrDecryptFailed
	}
	e.metricInc(MetricDecryptOps)
	return plaintext, nil
}
