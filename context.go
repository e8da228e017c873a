package goReset

import "context"

type clientIPContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. Flows copy it into
// audit events; the HTTP backend also uses it for per-IP request throttling.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// ClientIPFromContext returns the IP attached by [WithClientIP], or "".
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
