package backend

import "context"

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID tags outbound requests made with ctx with an X-Request-ID header.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}
