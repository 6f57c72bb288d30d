package service

import "context"

type contextKey string

const (
	clientIPContextKey  contextKey = "client_ip"
	userAgentContextKey contextKey = "user_agent"
)

// WithRequestMetadata attaches caller network metadata so the token flow can
// stamp it onto the session row without widening every service signature.
func WithRequestMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPContextKey, clientIP)
	return context.WithValue(ctx, userAgentContextKey, userAgent)
}

func clientIPFromContext(ctx context.Context) string {
	v, _ := ctx.Value(clientIPContextKey).(string)
	return v
}

func userAgentFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userAgentContextKey).(string)
	return v
}
