// Package httpapi exposes a backend.Service over JSON/HTTP:
//
//	POST /auth/forgot-password  {"email", "force"}            -> 200 generic message
//	POST /auth/verify-otp       {"email", "code"}             -> {"verified", "reset_token"}
//	POST /auth/reset-password   {"email", "password", "confirm"}
//	                            Authorization: Bearer <reset_token>
//
// The forgot-password endpoint answers registered and unknown addresses
// identically. Wrong, expired and exhausted codes all produce
// {"verified": false}.
package httpapi
