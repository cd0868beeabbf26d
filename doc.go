// Package aegis is an embeddable authentication security core: authenticated
// encryption envelopes for secrets at rest, Redis-backed sessions with
// integrity-checked binary records, brute-force lockout throttling, LDAP
// credential validation, and one-time backup codes.
//
// The host application constructs an [Engine] through the [Builder], wires
// its own storage for backup code sets, and calls the engine's operations
// from its request handlers. The engine owns no HTTP surface.
package aegis
