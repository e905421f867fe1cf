package groceryapi

import "context"

type requestIDKey struct{}

// WithRequestID makes requests issued with ctx carry id as X-Request-ID, so a
// view intent and the backend calls it causes share one id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
