package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func newEdManager(t *testing.T, priv ed25519.PrivateKey) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		GrantTTL:      5 * time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     priv.Public().(ed25519.PublicKey),
		Issuer:        "goreset",
		Audience:      "reset",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func signedGrant(t *testing.T, priv ed25519.PrivateKey, claims GrantClaims) string {
	t.Helper()
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims).SignedString(priv)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func validClaims() GrantClaims {
	return GrantClaims{
		RecordID: "rec-1",
		Purpose:  GrantPurpose,
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "subj",
			Issuer:    "goreset",
			Audience:  gjwt.ClaimStrings{"reset"},
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
			IssuedAt:  gjwt.NewNumericDate(time.Now()),
		},
	}
}

func TestCreateAndParseGrant(t *testing.T) {
	_, priv := newEdKeys(t)
	m := newEdManager(t, priv)

	token, err := m.CreateGrant("subj", "rec-1")
	if err != nil {
		t.Fatalf("create grant: %v", err)
	}
	claims, err := m.ParseGrant(token)
	if err != nil {
		t.Fatalf("parse grant: %v", err)
	}
	if claims.Subject != "subj" || claims.RecordID != "rec-1" || claims.Purpose != GrantPurpose {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if _, err := m.CreateGrant("", "rec-1"); err == nil {
		t.Fatal("expected empty subject to be rejected")
	}
}

func TestParseGrantRejectsWrongAlgorithm(t *testing.T) {
	_, priv := newEdKeys(t)
	m := newEdManager(t, priv)

	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, validClaims())
	token, err := tok.SignedString([]byte("secret-secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.ParseGrant(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestParseGrantIssuerAudienceAndLeeway(t *testing.T) {
	_, priv := newEdKeys(t)
	m := newEdManager(t, priv)

	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "other"
	if _, err := m.ParseGrant(signedGrant(t, priv, wrongIssuer)); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}

	wrongAudience := validClaims()
	wrongAudience.Audience = gjwt.ClaimStrings{"api"}
	if _, err := m.ParseGrant(signedGrant(t, priv, wrongAudience)); err == nil {
		t.Fatal("expected wrong audience to fail")
	}

	withinLeeway := validClaims()
	withinLeeway.ExpiresAt = gjwt.NewNumericDate(time.Now().Add(-15 * time.Second))
	if _, err := m.ParseGrant(signedGrant(t, priv, withinLeeway)); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}

	expired := validClaims()
	expired.ExpiresAt = gjwt.NewNumericDate(time.Now().Add(-2 * time.Minute))
	if _, err := m.ParseGrant(signedGrant(t, priv, expired)); err == nil {
		t.Fatal("expected expired token to fail")
	}

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil
	if _, err := m.ParseGrant(signedGrant(t, priv, noExpiry)); err == nil {
		t.Fatal("expected token without exp to fail")
	}
}

func TestParseGrantRequiresPurpose(t *testing.T) {
	_, priv := newEdKeys(t)
	m := newEdManager(t, priv)

	other := validClaims()
	other.Purpose = "access"
	if _, err := m.ParseGrant(signedGrant(t, priv, other)); !errors.Is(err, ErrGrantPurpose) {
		t.Fatalf("expected purpose error, got %v", err)
	}

	noRecord := validClaims()
	noRecord.RecordID = ""
	if _, err := m.ParseGrant(signedGrant(t, priv, noRecord)); !errors.Is(err, ErrGrantPurpose) {
		t.Fatalf("expected purpose error for missing record, got %v", err)
	}
}

func TestParseGrantUnknownKidFails(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, _ := newEdKeys(t)
	m, err := NewManager(Config{
		GrantTTL:      time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv1,
		PublicKey:     pub1,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub1},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := validClaims()
	claims.Issuer = ""
	claims.Audience = nil

	tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims)
	tok.Header["kid"] = "k2"
	bad, _ := tok.SignedString(priv1)
	if _, err := m.ParseGrant(bad); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected unknown kid failure, got %v", err)
	}

	tok2 := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims)
	tok2.Header["kid"] = "k1"
	good, _ := tok2.SignedString(priv1)
	if _, err := m.ParseGrant(good); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}

	m2, _ := NewManager(Config{GrantTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub2, VerifyKeys: map[string][]byte{"k2": pub2}})
	if _, err := m2.ParseGrant(good); err == nil {
		t.Fatal("expected parse failure with mismatched key set")
	}
}

func TestNewManagerRejectsConfig(t *testing.T) {
	pub, _ := newEdKeys(t)
	cases := map[string]Config{
		"zero ttl":      {SigningMethod: MethodEd25519, PublicKey: pub},
		"ttl too long":  {GrantTTL: time.Hour, SigningMethod: MethodEd25519, PublicKey: pub},
		"short hmac":    {GrantTTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("short")},
		"no ed key":     {GrantTTL: time.Minute, SigningMethod: MethodEd25519},
		"unknown alg":   {GrantTTL: time.Minute, SigningMethod: "rs256", PublicKey: pub},
		"big leeway":    {GrantTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub, Leeway: time.Hour},
		"kid not found": {GrantTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub, KeyID: "x", VerifyKeys: map[string][]byte{"y": pub}},
	}
	for name, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestHS256Grant(t *testing.T) {
	m, err := NewManager(Config{
		GrantTTL:      time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := m.CreateGrant("subj", "rec")
	if err != nil {
		t.Fatalf("create grant: %v", err)
	}
	if _, err := m.ParseGrant(token); err != nil {
		t.Fatalf("parse grant: %v", err)
	}
}

func TestGrantExpiresOnManagerClock(t *testing.T) {
	_, priv := newEdKeys(t)
	now := time.Unix(1_700_000_000, 0)
	m := newEdManager(t, priv).WithClock(func() time.Time { return now })

	token, err := m.CreateGrant("subj", "rec-1")
	if err != nil {
		t.Fatalf("create grant: %v", err)
	}

	now = now.Add(5*time.Minute + 10*time.Second)
	if _, err := m.ParseGrant(token); err != nil {
		t.Fatalf("expected grant inside leeway, got %v", err)
	}

	now = now.Add(time.Minute)
	if _, err := m.ParseGrant(token); !errors.Is(err, gjwt.ErrTokenExpired) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestParseGrantRejectsFutureIssuedAt(t *testing.T) {
	_, priv := newEdKeys(t)
	m := newEdManager(t, priv)

	claims := validClaims()
	claims.IssuedAt = gjwt.NewNumericDate(time.Now().Add(time.Hour))
	if _, err := m.ParseGrant(signedGrant(t, priv, claims)); err == nil {
		t.Fatal("expected future iat to fail")
	}
}

func TestVerifyOnlyManagerCannotSign(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{GrantTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.CreateGrant("subj", "rec-1"); err == nil {
		t.Fatal("expected signing to fail without a private key")
	}
}
