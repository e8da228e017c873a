package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	goReset "github.com/MrEthical07/goReset"
	"github.com/MrEthical07/goReset/jwt"
)

type grantContextKey struct{}

type grantValue struct {
	token  string
	claims *jwt.GrantClaims
}

// GrantParser validates a reset grant. *jwt.Manager satisfies it.
type GrantParser interface {
	ParseGrant(token string) (*jwt.GrantClaims, error)
}

// GrantFromContext returns the grant accepted by RequireGrant.
func GrantFromContext(ctx context.Context) (string, *jwt.GrantClaims, bool) {
	v, ok := ctx.Value(grantContextKey{}).(grantValue)
	if !ok {
		return "", nil, false
	}
	return v.token, v.claims, true
}

// RequireGrant rejects requests without a valid bearer reset grant.
func RequireGrant(parser GrantParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if parser == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := parser.ParseGrant(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), grantContextKey{}, grantValue{token: token, claims: claims})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP attaches the caller address with goReset.WithClientIP. With
// trustForwarded set the first X-Forwarded-For entry wins; only enable it
// behind a proxy that overwrites the header.
func ClientIP(trustForwarded bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := remoteIP(r.RemoteAddr)
			if trustForwarded {
				if fwd := forwardedIP(r.Header.Get("X-Forwarded-For")); fwd != "" {
					ip = fwd
				}
			}
			next.ServeHTTP(w, r.WithContext(goReset.WithClientIP(r.Context(), ip)))
		})
	}
}

func remoteIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func forwardedIP(header string) string {
	first, _, _ := strings.Cut(header, ",")
	first = strings.TrimSpace(first)
	if net.ParseIP(first) == nil {
		return ""
	}
	return first
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
