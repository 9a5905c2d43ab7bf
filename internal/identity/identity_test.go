package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/omarluq/storefront/internal/store"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newCookies(c *clock) *CookieManager {
	m := NewCookieManager(DefaultCookieOptions(), testKey)
	m.tickets.now = c.now
	return m
}

func newUsers(t *testing.T) *UserManager {
	t.Helper()
	db, err := store.Open(context.Background(), "identity", "", zerolog.Nop())
	require.NoError(t, err)
	return NewUserManager(NewSQLUserStore(store.NewRepository[User](db, UsersTable)), bcrypt.MinCost, zerolog.Nop())
}

func TestTicketRoundTrip(t *testing.T) {
	t.Parallel()
	c := &clock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	f := NewTicketFormat(testKey, time.Hour)
	f.now = c.now

	token, issued, err := f.Protect(Principal{UserName: "alice", Email: "a@example.com", Roles: []string{"Admin"}})
	require.NoError(t, err)
	assert.Equal(t, c.t.Add(time.Hour), issued.ExpiresAt)

	p, err := f.Unprotect(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.UserName)
	assert.True(t, p.IsInRole("Admin"))
	assert.Equal(t, token, p.Token)
	assert.True(t, p.IssuedAt.Equal(c.t))
}

func TestTicketRejectsExpiredAndForeign(t *testing.T) {
	t.Parallel()
	c := &clock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	f := NewTicketFormat(testKey, time.Hour)
	f.now = c.now

	token, _, err := f.Protect(Principal{UserName: "alice"})
	require.NoError(t, err)

	c.t = c.t.Add(61 * time.Minute)
	_, err = f.Unprotect(token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	other := NewTicketFormat([]byte("another-key-another-key-another!"), time.Hour)
	foreign, _, err := other.Protect(Principal{UserName: "mallory"})
	require.NoError(t, err)
	_, err = NewTicketFormat(testKey, time.Hour).Unprotect(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.Unprotect("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignInCookieAttributes(t *testing.T) {
	t.Parallel()
	m := newCookies(&clock{t: time.Now()})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "https://shop.local/Account/Signin", nil)

	_, err := m.SignIn(rec, req, Principal{UserName: "alice"})
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, ".storefront.auth", c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 3600, c.MaxAge)
	assert.Equal(t, "/", c.Path)
}

func TestSignOutExpiresCookie(t *testing.T) {
	t.Parallel()
	m := newCookies(&clock{t: time.Now()})
	rec := httptest.NewRecorder()
	m.SignOut(rec, httptest.NewRequest(http.MethodPost, "/Account/Signout", nil))

	c := rec.Result().Cookies()[0]
	assert.Equal(t, -1, c.MaxAge)
	assert.Empty(t, c.Value)
	assert.False(t, c.Secure)
}

func TestCookieSlidingExpiration(t *testing.T) {
	t.Parallel()
	c := &clock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	m := newCookies(c)
	auth := NewCookieAuthenticator(m)

	token, _, err := m.tickets.Protect(Principal{UserName: "alice"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/Basket", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})

	c.t = c.t.Add(10 * time.Minute)
	res := auth.Validate(req)
	require.True(t, res.Valid)
	assert.False(t, res.Renew)

	c.t = c.t.Add(25 * time.Minute)
	res = auth.Validate(req)
	require.True(t, res.Valid)
	assert.True(t, res.Renew)

	c.t = c.t.Add(30 * time.Minute)
	res = auth.Validate(req)
	assert.False(t, res.Valid)
}

func TestChainPrefersFirstValid(t *testing.T) {
	t.Parallel()
	m := newCookies(&clock{t: time.Now()})
	chain := NewChainAuthenticator(NewBearerAuthenticator(m.Tickets()), NewCookieAuthenticator(m))

	bearer, _, err := m.tickets.Protect(Principal{UserName: "api"})
	require.NoError(t, err)
	cookie, _, err := m.tickets.Protect(Principal{UserName: "web"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: cookie})
	res := chain.Validate(req)
	require.True(t, res.Valid)
	assert.Equal(t, TypeBearer, res.Type)
	assert.Equal(t, "api", res.Principal.UserName)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: cookie})
	res = chain.Validate(req)
	require.True(t, res.Valid)
	assert.Equal(t, TypeCookie, res.Type)

	anon := chain.ValidateResult(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, anon.IsError())

	empty := NewChainAuthenticator().Validate(req)
	assert.False(t, empty.Valid)
	assert.Equal(t, TypeNone, empty.Type)
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidatePassword("Pass@word1"))
	for _, pw := range []string{"", "short", "password1!", "PASSWORD1!", "Password!", "Password1"} {
		assert.ErrorIs(t, ValidatePassword(pw), ErrWeakPassword, pw)
	}
}

func TestUserManagerCreateAndFind(t *testing.T) {
	t.Parallel()
	users := newUsers(t)
	ctx := context.Background()

	u, err := users.Create(ctx, "alice", "alice@example.com", "Pass@word1")
	require.NoError(t, err)
	assert.NotEqual(t, "Pass@word1", u.PasswordHash)
	assert.True(t, users.CheckPassword(u, "Pass@word1"))
	assert.False(t, users.CheckPassword(u, "nope"))

	byEmail, err := users.Find(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = users.Create(ctx, "Alice", "other@example.com", "Pass@word1")
	assert.ErrorIs(t, err, ErrDuplicateUser)
	_, err = users.Create(ctx, "bob", "alice@example.com", "Pass@word1")
	assert.ErrorIs(t, err, ErrDuplicateUser)
	_, err = users.Create(ctx, "carol", "carol@example.com", "weak")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestSeedDemoUserIsIdempotent(t *testing.T) {
	t.Parallel()
	users := newUsers(t)
	ctx := context.Background()

	require.NoError(t, SeedDemoUser(ctx, users, "Pass@word1"))
	require.NoError(t, SeedDemoUser(ctx, users, "Pass@word1"))

	_, err := users.Find(ctx, "demouser@microsoft.com")
	assert.NoError(t, err)
}

func TestPasswordSignIn(t *testing.T) {
	t.Parallel()
	users := newUsers(t)
	ctx := context.Background()
	_, err := users.Create(ctx, "alice", "alice@example.com", "Pass@word1", "Admin")
	require.NoError(t, err)

	signIn := NewSignInManager(users, newCookies(&clock{t: time.Now()}), zerolog.Nop())

	p, err := signIn.PasswordSignIn(ctx, "alice@example.com", "Pass@word1")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.UserName)
	assert.True(t, p.IsInRole("Admin"))

	_, err = signIn.PasswordSignIn(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = signIn.PasswordSignIn(ctx, "nobody", "Pass@word1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	rec := httptest.NewRecorder()
	p, err = signIn.SignIn(rec, httptest.NewRequest(http.MethodPost, "/Account/Signin", nil), p)
	require.NoError(t, err)
	assert.NotEmpty(t, p.Token)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestPrincipalContext(t *testing.T) {
	t.Parallel()
	assert.False(t, PrincipalFrom(context.Background()).IsAuthenticated())
	ctx := WithPrincipal(context.Background(), Principal{UserName: "alice"})
	assert.True(t, PrincipalFrom(ctx).IsAuthenticated())
}
