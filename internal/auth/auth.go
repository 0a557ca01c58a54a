// Package auth identifies callers. It decides who the caller is; the service
// layer decides what they may do.
package auth

import "context"

const RoleAdmin = "admin"

type Identity struct {
	Subject string
	Email   string
	Role    string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type Authorizer interface {
	IsAdmin(ctx context.Context) bool
	CurrentUser(ctx context.Context) (Identity, bool)
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// ContextAuthorizer answers from the identity the HTTP middleware stored in
// the request context.
type ContextAuthorizer struct{}

func (ContextAuthorizer) IsAdmin(ctx context.Context) bool {
	id, ok := IdentityFromContext(ctx)
	return ok && id.IsAdmin()
}

func (ContextAuthorizer) CurrentUser(ctx context.Context) (Identity, bool) {
	return IdentityFromContext(ctx)
}
