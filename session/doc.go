// Package session stores server-side web sessions in Redis, keyed by opaque
// unguessable identifiers, and enforces the integrity policy around them:
// expired records read back as absent before any sliding renewal can touch
// them, anti-forgery tokens live exactly as long as the session identifier
// that issued them, and identifier rotation is atomic with a short grace
// window so requests in flight on the old identifier are not broken.
package session
