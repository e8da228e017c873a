// Package stores provides the Redis-backed record store for issued reset
// codes.
//
// # Design
//
// A record is a versioned binary blob stored under one key per identifier with
// a TTL. Verify and Consume use WATCH/MULTI optimistic transactions and retry
// on contention. Code hashes are compared in constant time. A record is
// deleted when its attempt budget runs out or when a verified record is
// consumed.
//
// # What this package must NOT do
//
//   - Import goReset or any sibling internal package.
//   - Store plaintext codes or email addresses.
package stores
