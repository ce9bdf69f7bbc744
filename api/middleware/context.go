package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/smartcanteen/canteen-backend/pkg/enums"
	pkgerrors "github.com/smartcanteen/canteen-backend/pkg/errors"
)

type (
	userIDKey struct{}
	roleKey   struct{}
)

func fromContext[T any](ctx context.Context, key any) T {
	var zero T
	if ctx == nil {
		return zero
	}
	v, _ := ctx.Value(key).(T)
	return v
}

// UserIDFromContext returns the authenticated user id as set by Auth, or "".
func UserIDFromContext(ctx context.Context) string {
	return fromContext[string](ctx, userIDKey{})
}

func RoleFromContext(ctx context.Context) enums.Role {
	return fromContext[enums.Role](ctx, roleKey{})
}

// ActorID returns the authenticated user id or an Unauthorized error.
func ActorID(ctx context.Context) (uuid.UUID, error) {
	raw := UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(orBackground(ctx), userIDKey{}, userID)
}

func WithRole(ctx context.Context, role enums.Role) context.Context {
	return context.WithValue(orBackground(ctx), roleKey{}, role)
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
