// Package httpclient is a goReset.OTPClient that reaches the reset backend
// over HTTP. A reset token returned by verification is held per address and
// sent with the commit; requesting a new code discards it.
package httpclient
