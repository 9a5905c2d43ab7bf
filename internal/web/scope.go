package web

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/omarluq/storefront/internal/di"
)

// RequestScope opens a service scope per request, stores it in the request
// context and closes it when the request ends.
func RequestScope(c *di.Container) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := c.NewScope()
			defer func() {
				if err := scope.Close(); err != nil {
					zerolog.Ctx(r.Context()).Warn().Err(err).Str("scope", scope.ID()).Msg("request scope shutdown failed")
				}
			}()
			next.ServeHTTP(w, r.WithContext(di.WithScope(r.Context(), scope)))
		})
	}
}
