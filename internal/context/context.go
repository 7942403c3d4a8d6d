package context

import (
	"context"
	"net/http"
	"strings"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ClientIPKey is the context key for the resolved client IP
	ClientIPKey ContextKey = "client_ip"
)

// UnknownIP is used when no proxy header names the client
const UnknownIP = "unknown"

// WithClientIP stores the client IP in ctx
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ClientIPKey, ip)
}

// ExtractClientIP extracts the client IP from the request context
func ExtractClientIP(ctx context.Context) (string, bool) {
	ip, ok := ctx.Value(ClientIPKey).(string)
	return ip, ok
}

// ClientIP resolves the caller from the trusted proxy headers: the first
// X-Forwarded-For entry, then X-Real-IP, then UnknownIP. RemoteAddr is never
// used because the service only runs behind a proxy.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return UnknownIP
}
