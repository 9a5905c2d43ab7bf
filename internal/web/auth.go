package web

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/omarluq/storefront/internal/identity"
)

// Authentication resolves the principal with chain and stores it in the
// request context. Cookies past half their lifetime are reissued.
func Authentication(chain identity.Authenticator, cookies *identity.CookieManager) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := chain.Validate(r)
			if !res.Valid {
				next.ServeHTTP(w, r)
				return
			}
			p := res.Principal
			if res.Renew && cookies != nil {
				renewed, err := cookies.SignIn(w, r, identity.Principal{
					UserName: p.UserName, Email: p.Email, Roles: p.Roles,
				})
				if err == nil {
					p = renewed
				} else {
					zerolog.Ctx(r.Context()).Warn().Err(err).Msg("cookie renewal failed")
				}
			}
			ctx := identity.WithPrincipal(r.Context(), p)
			logger := zerolog.Ctx(ctx).With().Str("user", p.UserName).Str("auth", string(res.Type)).Logger()
			next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx)))
		})
	}
}

// RequireUser redirects anonymous browser requests to loginPath with a
// ReturnUrl, and answers API requests with 401.
func RequireUser(loginPath string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity.PrincipalFrom(r.Context()).IsAuthenticated() {
				next.ServeHTTP(w, r)
				return
			}
			if wantsJSON(r) {
				w.Header().Set("WWW-Authenticate", "Bearer")
				WriteJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			target := loginPath + "?ReturnUrl=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusFound)
		})
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json") ||
		r.Header.Get("Authorization") != ""
}

// LocalRedirect returns target when it is a local path, else fallback.
func LocalRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") ||
		strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}
