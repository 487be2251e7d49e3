package middleware

import (
	"context"

	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
)

type contextKey string

const ctxIdentity contextKey = "identity"

// Identity is the authenticated caller decoded from the access token.
type Identity struct {
	UserID   string
	Role     enums.Role
	HostelID string
	Email    string
	Name     string
}

// WithIdentity injects the caller into the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, id)
}

// IdentityFromContext returns the caller, or the zero Identity for anonymous requests.
func IdentityFromContext(ctx context.Context) Identity {
	if ctx == nil {
		return Identity{}
	}
	if v, ok := ctx.Value(ctxIdentity).(Identity); ok {
		return v
	}
	return Identity{}
}

func UserIDFromContext(ctx context.Context) string {
	return IdentityFromContext(ctx).UserID
}

func RoleFromContext(ctx context.Context) enums.Role {
	return IdentityFromContext(ctx).Role
}

func HostelIDFromContext(ctx context.Context) string {
	return IdentityFromContext(ctx).HostelID
}
