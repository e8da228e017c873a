package internal

import "testing"

func TestNewOTPDigitsOnly(t *testing.T) {
	for digits := MinOTPDigits; digits <= MaxOTPDigits; digits++ {
		code, err := NewOTP(digits)
		if err != nil {
			t.Fatalf("NewOTP(%d): %v", digits, err)
		}
		if len(code) != digits {
			t.Fatalf("expected %d digits, got %q", digits, code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("non-digit in %q", code)
			}
		}
	}
}

func TestNewOTPRejectsLength(t *testing.T) {
	for _, digits := range []int{0, 3, 11} {
		if _, err := NewOTP(digits); err == nil {
			t.Fatalf("expected error for %d digits", digits)
		}
	}
}

func TestHashOTPBoundToIdentifier(t *testing.T) {
	if HashOTP("a", "123456") == HashOTP("b", "123456") {
		t.Fatal("hash must depend on identifier")
	}
	if HashOTP("a", "123456") != HashOTP("a", "123456") {
		t.Fatal("hash must be deterministic")
	}
	if HashOTP("a1", "23456") == HashOTP("a", "123456") {
		t.Fatal("identifier and code must be separated")
	}
}

func TestEmailKeyNormalizes(t *testing.T) {
	a := EmailKey(" User@Example.COM")
	if a != EmailKey("user@example.com") {
		t.Fatal("expected normalized keys to match")
	}
	if len(a) != 32 {
		t.Fatalf("unexpected key length %d", len(a))
	}
}
