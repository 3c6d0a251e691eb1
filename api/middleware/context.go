package middleware

import (
	"context"

	"github.com/angelmondragon/adspace-backend/internal/access"
)

type contextKey string

const (
	ctxActor    contextKey = "actor"
	ctxAccessID contextKey = "access_id"
)

// ActorFromContext returns the caller resolved by Auth; the zero Actor is
// anonymous.
func ActorFromContext(ctx context.Context) access.Actor {
	if ctx == nil {
		return access.Actor{}
	}
	if v, ok := ctx.Value(ctxActor).(access.Actor); ok {
		return v
	}
	return access.Actor{}
}

// AccessIDFromContext returns the session id (JWT jti) of the caller.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// WithActor injects the caller into the context.
func WithActor(ctx context.Context, actor access.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}
