package utils

import "context"

type ctxKey string

const (
	UserIDKey     ctxKey = "user_id"
	UserEmailKey  ctxKey = "email"
	UserRoleKey   ctxKey = "role"
	GuestTokenKey ctxKey = "guest_token"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

func SetUserContext(ctx context.Context, userID uint, email, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, UserEmailKey, email)
	ctx = context.WithValue(ctx, UserRoleKey, role)
	return ctx
}

func GetUserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(UserIDKey).(uint)
	return id, ok
}

func GetUserEmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(UserEmailKey).(string)
	return email
}

func GetUserRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}

func IsAdmin(ctx context.Context) bool {
	return GetUserRoleFromContext(ctx) == RoleAdmin
}

// Guest identity is an opaque token issued by the frontend, used to key the
// session-held cart for callers without an account.
func SetGuestToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, GuestTokenKey, token)
}

func GetGuestTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(GuestTokenKey).(string)
	return token, ok && token != ""
}
