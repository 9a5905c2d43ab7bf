package identity

import (
	"net/http"
	"time"
)

// Cookie defaults.
const (
	DefaultCookieName = ".storefront.auth"
	DefaultExpiry     = time.Hour
	LoginPath         = "/Account/Signin"
	LogoutPath        = "/Account/Signout"
)

// CookieOptions configures cookie authentication.
type CookieOptions struct {
	Name              string
	LoginPath         string
	LogoutPath        string
	ExpireTimeSpan    time.Duration
	SameSite          http.SameSite
	SlidingExpiration bool
	HTTPOnly          bool
	// Essential cookies are written even without tracking consent.
	Essential bool
}

// DefaultCookieOptions returns a one hour sliding HttpOnly cookie.
func DefaultCookieOptions() CookieOptions {
	return CookieOptions{
		Name:              DefaultCookieName,
		LoginPath:         LoginPath,
		LogoutPath:        LogoutPath,
		ExpireTimeSpan:    DefaultExpiry,
		SlidingExpiration: true,
		HTTPOnly:          true,
		Essential:         true,
		SameSite:          http.SameSiteLaxMode,
	}
}

// CookieManager writes and reads the authentication cookie.
type CookieManager struct {
	tickets *TicketFormat
	opts    CookieOptions
}

// NewCookieManager signs tickets with key; their lifetime is the cookie
// expire time span.
func NewCookieManager(opts CookieOptions, key []byte) *CookieManager {
	if opts.Name == "" {
		opts.Name = DefaultCookieName
	}
	if opts.ExpireTimeSpan <= 0 {
		opts.ExpireTimeSpan = DefaultExpiry
	}
	return &CookieManager{opts: opts, tickets: NewTicketFormat(key, opts.ExpireTimeSpan)}
}

func (m *CookieManager) Options() CookieOptions { return m.opts }

// Tickets returns the ticket format shared with bearer authentication.
func (m *CookieManager) Tickets() *TicketFormat { return m.tickets }

// SignIn writes a fresh ticket for p.
func (m *CookieManager) SignIn(w http.ResponseWriter, r *http.Request, p Principal) (Principal, error) {
	token, p, err := m.tickets.Protect(p)
	if err != nil {
		return Principal{}, err
	}
	http.SetCookie(w, m.cookie(r, token, p.ExpiresAt, int(m.opts.ExpireTimeSpan.Seconds())))
	return p, nil
}

// SignOut expires the cookie.
func (m *CookieManager) SignOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, m.cookie(r, "", time.Unix(0, 0), -1))
}

// ShouldRenew reports whether a sliding ticket has passed half its
// lifetime at now.
func (m *CookieManager) ShouldRenew(p Principal, now time.Time) bool {
	if !m.opts.SlidingExpiration {
		return false
	}
	return now.Sub(p.IssuedAt) > m.opts.ExpireTimeSpan/2
}

func (m *CookieManager) cookie(r *http.Request, value string, expires time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.opts.Name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: m.opts.HTTPOnly,
		Secure:   IsHTTPS(r),
		SameSite: m.opts.SameSite,
	}
}

// IsHTTPS reports whether r arrived over TLS, directly or via a proxy.
func IsHTTPS(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
