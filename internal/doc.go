// Package internal holds helpers private to goReset: reset code generation,
// code hashing and the email key used in Redis keys.
//
// Sub-packages:
//
//   - audit: asynchronous audit dispatch and sinks
//   - flows: the reset flow transition rules
//   - limiters: Redis request throttles and the resend cooldown
//   - metrics: lock-free counters and the verify latency histogram
//   - stores: the Redis reset record store
//   - validate: request validation with go-playground/validator
package internal
