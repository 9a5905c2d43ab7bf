package web

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/omarluq/storefront/internal/identity"
)

var hstsExcludedHosts = []string{"localhost", "127.0.0.1", "[::1]"}

func requestHost(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(host)
}

func isExcludedHost(host string) bool {
	for _, h := range hstsExcludedHosts {
		if host == strings.Trim(h, "[]") || host == h {
			return true
		}
	}
	return false
}

// HSTS sets Strict-Transport-Security on HTTPS responses, except for
// loopback hosts.
func HSTS(maxAge time.Duration) Middleware {
	value := fmt.Sprintf("max-age=%d", int64(maxAge.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity.IsHTTPS(r) && !isExcludedHost(requestHost(r)) {
				w.Header().Set("Strict-Transport-Security", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HTTPSRedirection answers plain-http requests with 307 to the same URL on
// httpsPort. A zero port disables the redirect.
func HTTPSRedirection(httpsPort int) Middleware {
	return func(next http.Handler) http.Handler {
		if httpsPort <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity.IsHTTPS(r) {
				next.ServeHTTP(w, r)
				return
			}
			host := requestHost(r)
			if strings.Contains(host, ":") {
				host = "[" + host + "]"
			}
			if httpsPort != 443 {
				host += ":" + strconv.Itoa(httpsPort)
			}
			target := "https://" + host + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)
		})
	}
}
