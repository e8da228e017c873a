// Package backend is a reference server for the reset flow: it issues numeric
// codes, verifies them against a Redis record with an attempt budget, and
// commits the new password as an argon2id hash.
//
// [Service] implements goReset.OTPClient, so an Engine can use it directly
// in-process. The HTTP surface in backend/httpapi adds a short-lived signed
// grant between verification and commit.
//
// Responses never reveal whether an address is registered: malformed and
// unknown addresses return the same result as registered ones, after the same
// minimum delay.
package backend
