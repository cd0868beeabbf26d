// Package envelope implements the authenticated encryption service used to
// protect secrets at rest. Plaintext is sealed into a versioned, self-describing
// envelope: a per-call key is derived from the configured master key and a fresh
// random salt with Argon2id, then the payload is encrypted with
// XChaCha20-Poly1305. The envelope is transported as a single base64url string.
//
// Decryption is all-or-nothing. Every non-success path — malformed encoding,
// unknown version, truncated body, wrong key, tampered bytes — collapses into
// the single sentinel [ErrDecryptFailed] so callers cannot be turned into a
// padding or tampering oracle.
package envelope
