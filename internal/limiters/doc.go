// Package limiters provides the Redis-backed throttles for reset code
// requests: a fixed window per identifier and per IP, and a resend cooldown
// held as a SET NX key.
//
// All methods are nil-safe: calling them on a nil *OTPResetLimiter returns nil.
//
// # What this package must NOT do
//
//   - Import goReset or any sibling internal package.
//   - Decide consequences beyond counting; the backend service does that.
package limiters
