// Package goReset implements the client side of an OTP password-recovery flow:
// request a code by email, verify it within its lifetime and attempt budget,
// then set a new password.
//
// An [Engine] is built once with [New] and holds configuration, the
// [OTPClient] collaborator, the clock, the password policy, audit dispatch and
// metrics. Every recovery attempt is a [Flow] obtained from [Engine.NewFlow].
//
// # Architecture boundaries
//
// goReset is the public surface. Stage transitions and their guards live in
// internal/flows as pure functions; the Flow type adds locking, stale-response
// detection, collaborator calls, audit and metrics. The code entry buffer is
// the standalone otp package.
//
// A reference collaborator backed by Redis lives in backend/, an HTTP surface
// for it in backend/httpapi and a REST client in transport/httpclient.
// Engine metrics are exported by metrics/export/prometheus and
// metrics/export/otel.
//
// # What this package must NOT do
//
//   - Reveal whether an email address is registered.
//   - Distinguish a wrong code from an expired one in user-facing output.
//   - Retry or queue collaborator calls.
//   - Import backend or transport packages.
package goReset
