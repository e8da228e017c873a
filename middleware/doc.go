// Package middleware provides the HTTP adapters used by the reset API:
//
//   - [ClientIP] records the caller address for throttling and audit.
//   - [RequireGrant] admits only requests carrying a valid reset grant.
//
// # What this package must NOT do
//
//   - Sign grants or touch Redis.
//   - Decide anything beyond pass/reject.
package middleware
