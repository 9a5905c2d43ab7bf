package ratelimit

import (
	"net"
	"net/http"
	"strconv"
)

// ClientIP keys requests by remote address, ignoring the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware answers 429 with Retry-After once a key is out of tokens.
// A nil key func uses ClientIP.
func Middleware(l Limiter, key func(*http.Request) string) func(http.Handler) http.Handler {
	if key == nil {
		key = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(r.Context(), key(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(60))
				http.Error(w, "Too many sign-in attempts. Try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
