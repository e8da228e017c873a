package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

// FuzzParseGrant feeds arbitrary strings to the grant parser. It must never
// panic and must never return nil claims without an error.
func FuzzParseGrant(f *testing.F) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		f.Fatal(err)
	}
	mgr, err := NewManager(Config{
		GrantTTL:      5 * time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "fuzz-test",
		Leeway:        30 * time.Second,
		RequireIAT:    true,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub},
	})
	if err != nil {
		f.Fatal(err)
	}

	valid, err := mgr.CreateGrant("subject", "record")
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJFZERTQSJ9.eyJyaWQiOiJ4In0.invalid")
	f.Add("eyJhbGciOiJub25lIn0.eyJyaWQiOiJ4In0.")

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := mgr.ParseGrant(input)
		if err != nil {
			return
		}
		if claims == nil {
			t.Fatal("ParseGrant returned nil claims without error")
		}
	})
}
