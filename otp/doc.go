// Package otp provides the entry buffer used while a user types a one-time
// passcode.
//
// The buffer never touches UI widgets. Focus movement is reported as a hint in
// the returned [State] and through the optional [FocusFunc] listener so the
// presentation layer can act on it.
package otp
