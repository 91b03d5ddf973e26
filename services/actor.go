package services

import (
	"context"
	"log/slog"
)

type actorKey struct{}

// WithActor records the id of the user a write is performed for. Services add it to
// the log records of state changes.
func WithActor(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// actorAttr is the user_id attribute of ctx, or an empty attr that slog drops.
func actorAttr(ctx context.Context) slog.Attr {
	if id, ok := ctx.Value(actorKey{}).(int); ok {
		return slog.Int("user_id", id)
	}
	return slog.Attr{}
}
