package di

import "context"

type scopeKey struct{}

// WithScope stores the request scope in ctx.
func WithScope(ctx context.Context, s *RequestScope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom returns the request scope stored by WithScope.
func ScopeFrom(ctx context.Context) (*RequestScope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*RequestScope)
	return s, ok && s != nil
}

// ResolveCtx resolves T from the request scope in ctx.
func ResolveCtx[T any](ctx context.Context) (T, error) {
	s, ok := ScopeFrom(ctx)
	if !ok {
		var zero T
		return zero, ErrNoScope
	}
	return Resolve[T](s.Injector())
}
