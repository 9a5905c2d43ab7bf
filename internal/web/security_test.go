package web_test

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/storefront/internal/identity"
	"github.com/omarluq/storefront/internal/web"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

func TestHSTS(t *testing.T) {
	t.Parallel()

	h := web.HSTS(30 * 24 * time.Hour)(ok)

	req := httptest.NewRequest(http.MethodGet, "https://shop.example.com/", http.NoBody)
	req.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "max-age=2592000", rec.Header().Get("Strict-Transport-Security"))

	req = httptest.NewRequest(http.MethodGet, "https://localhost:5443/", http.NoBody)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://shop.example.com/", http.NoBody))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestHTTPSRedirection(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	web.HTTPSRedirection(5443)(ok).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "http://shop.example.com:5106/Catalog?page=2", http.NoBody))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "https://shop.example.com:5443/Catalog?page=2", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://shop.example.com/", http.NoBody)
	req.Header.Set("X-Forwarded-Proto", "https")
	web.HTTPSRedirection(5443)(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	web.HTTPSRedirection(0)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://shop.example.com/", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStaticFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "css", "site.css"), []byte("body{}"), 0o600))

	h := web.StaticFiles(dir)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := serve(h, "/css/site.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body{}", rec.Body.String())

	assert.Equal(t, http.StatusTeapot, serve(h, "/css/missing.css").Code)
	assert.Equal(t, http.StatusTeapot, serve(h, "/css").Code)
	assert.Equal(t, http.StatusTeapot, serve(h, "/../etc/passwd").Code)
}

func testCookies() *identity.CookieManager {
	return identity.NewCookieManager(identity.DefaultCookieOptions(), []byte("0123456789abcdef0123456789abcdef"))
}

func TestAuthentication_CookiePrincipal(t *testing.T) {
	t.Parallel()

	cookies := testCookies()
	signin := httptest.NewRecorder()
	_, err := cookies.SignIn(signin, httptest.NewRequest(http.MethodPost, "/Account/Signin", http.NoBody),
		identity.Principal{UserName: "demouser@microsoft.com"})
	require.NoError(t, err)

	chain := identity.NewChainAuthenticator(
		identity.NewBearerAuthenticator(cookies.Tickets()),
		identity.NewCookieAuthenticator(cookies),
	)
	var (
		user          string
		authenticated bool
	)
	h := web.Authentication(chain, cookies)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		p := identity.PrincipalFrom(r.Context())
		user, authenticated = p.UserName, p.IsAuthenticated()
	}))

	req := httptest.NewRequest(http.MethodGet, "/Basket", http.NoBody)
	for _, c := range signin.Result().Cookies() {
		req.AddCookie(c)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "demouser@microsoft.com", user)
	assert.True(t, authenticated)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/Basket", http.NoBody))
	assert.False(t, authenticated, "anonymous requests pass through without a principal")
	assert.Empty(t, user)
}

func TestRequireUser(t *testing.T) {
	t.Parallel()

	h := web.RequireUser(identity.LoginPath)(ok)

	rec := serve(h, "/Order/MyOrders")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/Account/Signin?ReturnUrl=%2FOrder%2FMyOrders", rec.Header().Get("Location"))

	rec = serve(h, "/api/orders")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/Order/MyOrders", http.NoBody)
	req = req.WithContext(identity.WithPrincipal(req.Context(), identity.Principal{UserName: "bob"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLocalRedirect(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/Basket", web.LocalRedirect("/Basket", "/"))
	assert.Equal(t, "/", web.LocalRedirect("https://evil.example.com", "/"))
	assert.Equal(t, "/", web.LocalRedirect("//evil.example.com", "/"))
	assert.Equal(t, "/", web.LocalRedirect("", "/"))
}
