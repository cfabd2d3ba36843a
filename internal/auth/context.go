package auth

import "context"

type contextKey int

const identityKey contextKey = iota

// Identity is the authenticated caller: the store tenant it belongs to,
// its back-office role and the user subject from the token.
type Identity struct {
	TenantID string
	Role     Role
	Subject  string
}

// WithIdentity stores the authenticated identity in the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the authenticated identity. Requests that
// skipped auth carry the zero identity.
func IdentityFromContext(ctx context.Context) Identity {
	if ctx == nil {
		return Identity{}
	}
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}

// TenantIDFromContext extracts the caller's tenant.
func TenantIDFromContext(ctx context.Context) string {
	return IdentityFromContext(ctx).TenantID
}

// RoleFromContext extracts the caller's role.
func RoleFromContext(ctx context.Context) Role {
	return IdentityFromContext(ctx).Role
}

// SubjectFromContext extracts the caller's user subject.
func SubjectFromContext(ctx context.Context) string {
	return IdentityFromContext(ctx).Subject
}
