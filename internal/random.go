package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	MinOTPDigits = 4
	MaxOTPDigits = 10
)

// NewOTP returns a uniformly random numeric code of the given length.
func NewOTP(digits int) (string, error) {
	if digits < MinOTPDigits || digits > MaxOTPDigits {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}

// HashOTP binds code to the identifier it was issued for, so equal codes for
// different addresses never share a hash.
func HashOTP(identifier, code string) [32]byte {
	h := sha256.New()
	h.Write([]byte(identifier))
	h.Write([]byte{0})
	h.Write([]byte(code))

	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// NormalizeEmail lowercases and trims an address for use as a lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailKey is the Redis-safe identifier for an address. Plain addresses never
// appear in key names.
func EmailKey(email string) string {
	sum := sha256.Sum256([]byte(NormalizeEmail(email)))
	return hex.EncodeToString(sum[:16])
}
