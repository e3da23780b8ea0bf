package actorctx

import (
	"context"

	"github.com/geocoder89/eventloop/internal/access"
)

type ctxKey struct{}

// WithIdentity makes the authenticated caller visible to code that only
// sees a context.Context (loggers, repos, job producers).
func WithIdentity(ctx context.Context, id access.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFrom(ctx context.Context) (access.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(access.Identity)
	return id, ok && id.ID != ""
}

func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := IdentityFrom(ctx)
	return id.ID, ok
}

type requestIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFrom(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey{}).(string)
	return s
}
