package utils

import "context"

type identityKey struct{}

const RoleAdmin = "ADMIN"

// Identity is the authenticated caller, set by the auth middleware.
type Identity struct {
	UserID uint
	Email  string
	Role   string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != 0
}

func GetUserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := IdentityFrom(ctx)
	return id.UserID, ok
}

func IsAdmin(ctx context.Context) bool {
	id, ok := IdentityFrom(ctx)
	return ok && id.Role == RoleAdmin
}
