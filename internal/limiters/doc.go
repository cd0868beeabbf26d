// Package limiters implements Redis-backed brute-force throttles: the
// failed-login guard that locks an origin/identity pair after repeated
// authentication failures, and the redeem limiter that throttles backup
// code attempts per user.
package limiters
