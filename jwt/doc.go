// Package jwt issues and verifies the short-lived reset grant handed out after
// a code is verified and required when the new password is committed.
//
// Grants are signed with Ed25519 or HS256, carry a fixed purpose claim and
// reference the verified record, so a grant cannot be replayed after the
// record is consumed.
package jwt
