package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	goReset "github.com/MrEthical07/goReset"
	"github.com/MrEthical07/goReset/jwt"
)

type parserFunc func(string) (*jwt.GrantClaims, error)

func (f parserFunc) ParseGrant(token string) (*jwt.GrantClaims, error) { return f(token) }

func TestRequireGrant(t *testing.T) {
	parser := parserFunc(func(token string) (*jwt.GrantClaims, error) {
		if token != "good" {
			return nil, errors.New("bad grant")
		}
		return &jwt.GrantClaims{RecordID: "rec-1"}, nil
	})

	var seen string
	h := RequireGrant(parser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, ok := GrantFromContext(r.Context())
		if !ok {
			t.Fatal("expected grant in context")
		}
		seen = token + "/" + claims.RecordID
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := map[string]int{
		"":             http.StatusUnauthorized,
		"Bearer ":      http.StatusUnauthorized,
		"Basic good":   http.StatusUnauthorized,
		"Bearer wrong": http.StatusUnauthorized,
		"Bearer good":  http.StatusNoContent,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("header %q: expected %d, got %d", header, want, rec.Code)
		}
	}
	if seen != "good/rec-1" {
		t.Fatalf("unexpected grant passed through: %q", seen)
	}
}

func TestRequireGrantNilParser(t *testing.T) {
	h := RequireGrant(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer x")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = goReset.ClientIPFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.4:5123"
	req.Header.Set("X-Forwarded-For", "203.0.113.8, 10.0.0.1")

	ClientIP(false)(next).ServeHTTP(httptest.NewRecorder(), req)
	if got != "198.51.100.4" {
		t.Fatalf("expected remote address, got %q", got)
	}

	ClientIP(true)(next).ServeHTTP(httptest.NewRecorder(), req)
	if got != "203.0.113.8" {
		t.Fatalf("expected forwarded address, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "not-an-ip")
	ClientIP(true)(next).ServeHTTP(httptest.NewRecorder(), req)
	if got != "198.51.100.4" {
		t.Fatalf("expected fallback to remote address, got %q", got)
	}
}
