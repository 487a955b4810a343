package interceptors

import "context"

type contextKey struct{ name string }

var (
	principalIDKey = contextKey{"principal_id"}
	sessionIDKey   = contextKey{"session_id"}
	rolesKey       = contextKey{"roles"}
)

// WithIdentity returns a context carrying the verified bearer identity.
// Handlers read it back via GetPrincipalID, GetSessionID and GetRoles.
func WithIdentity(ctx context.Context, principalID, sessionID string, roles []string) context.Context {
	ctx = context.WithValue(ctx, principalIDKey, principalID)
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	ctx = context.WithValue(ctx, rolesKey, roles)
	return ctx
}

// GetPrincipalID returns the principal_id from context and true if set; otherwise "", false.
func GetPrincipalID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(principalIDKey).(string)
	return v, ok
}

// GetSessionID returns the session_id from context and true if set; otherwise "", false.
func GetSessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	return v, ok
}

// GetRoles returns the role names from the bearer token, or nil.
func GetRoles(ctx context.Context) []string {
	v, _ := ctx.Value(rolesKey).([]string)
	return v
}
