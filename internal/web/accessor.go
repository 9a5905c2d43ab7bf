package web

import (
	"context"
	"net/http"

	"github.com/omarluq/storefront/internal/identity"
)

type requestKey struct{}

// ContextAccessor lets long-lived services reach the request behind a
// context.
type ContextAccessor struct{}

func NewContextAccessor() *ContextAccessor { return &ContextAccessor{} }

// Middleware records each request in its own context.
func (a *ContextAccessor) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestKey{}, r)))
		})
	}
}

// Request returns the request ctx belongs to.
func (a *ContextAccessor) Request(ctx context.Context) (*http.Request, bool) {
	r, ok := ctx.Value(requestKey{}).(*http.Request)
	return r, ok
}

// User returns the signed-in principal, or the anonymous zero value.
func (a *ContextAccessor) User(ctx context.Context) identity.Principal {
	return identity.PrincipalFrom(ctx)
}

func (a *ContextAccessor) RequestID(ctx context.Context) string {
	return GetRequestID(ctx)
}
