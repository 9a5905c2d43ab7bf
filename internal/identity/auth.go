package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Type names an authentication scheme.
type Type string

const (
	TypeCookie Type = "cookie"
	TypeBearer Type = "bearer"
	TypeNone   Type = "none"
)

// Result is the outcome of one authentication attempt.
type Result struct {
	Principal Principal
	Type      Type
	Error     string
	Valid     bool
	// Renew asks the host to reissue the cookie (sliding expiration).
	Renew bool
}

// Authenticator extracts a principal from a request.
type Authenticator interface {
	Validate(r *http.Request) Result
	Type() Type
}

// CookieAuthenticator reads the authentication cookie.
type CookieAuthenticator struct {
	cookies *CookieManager
}

func NewCookieAuthenticator(m *CookieManager) *CookieAuthenticator {
	return &CookieAuthenticator{cookies: m}
}

func (a *CookieAuthenticator) Type() Type { return TypeCookie }

func (a *CookieAuthenticator) Validate(r *http.Request) Result {
	c, err := r.Cookie(a.cookies.opts.Name)
	if err != nil || c.Value == "" {
		return Result{Type: TypeCookie, Error: "no authentication cookie"}
	}
	p, err := a.cookies.tickets.Unprotect(c.Value)
	if err != nil {
		return Result{Type: TypeCookie, Error: err.Error()}
	}
	return Result{
		Type:      TypeCookie,
		Valid:     true,
		Principal: p,
		Renew:     a.cookies.ShouldRenew(p, a.cookies.tickets.now()),
	}
}

// BearerAuthenticator reads an Authorization: Bearer ticket.
type BearerAuthenticator struct {
	tickets *TicketFormat
}

func NewBearerAuthenticator(t *TicketFormat) *BearerAuthenticator {
	return &BearerAuthenticator{tickets: t}
}

func (a *BearerAuthenticator) Type() Type { return TypeBearer }

func (a *BearerAuthenticator) Validate(r *http.Request) Result {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return Result{Type: TypeBearer, Error: "missing bearer token"}
	}
	p, err := a.tickets.Unprotect(strings.TrimSpace(token))
	if err != nil {
		return Result{Type: TypeBearer, Error: err.Error()}
	}
	return Result{Type: TypeBearer, Valid: true, Principal: p}
}

// ChainAuthenticator tries authenticators in order; the first success wins.
type ChainAuthenticator struct {
	authenticators []Authenticator
}

func NewChainAuthenticator(authenticators ...Authenticator) *ChainAuthenticator {
	return &ChainAuthenticator{authenticators: authenticators}
}

// Validate returns the first valid result, or the last failure.
func (c *ChainAuthenticator) Validate(r *http.Request) Result {
	if len(c.authenticators) == 0 {
		return Result{Type: TypeNone, Error: "no authentication configured"}
	}

	result := lo.Reduce(c.authenticators, func(acc Result, a Authenticator, _ int) Result {
		if acc.Valid {
			return acc
		}
		return a.Validate(r)
	}, Result{Type: TypeNone})

	if !result.Valid {
		return Result{Type: TypeNone, Error: result.Error}
	}
	return result
}

func (c *ChainAuthenticator) Type() Type { return TypeNone }

// ValidateResult is Validate as a mo.Result.
func (c *ChainAuthenticator) ValidateResult(r *http.Request) mo.Result[Principal] {
	res := c.Validate(r)
	if res.Valid {
		return mo.Ok(res.Principal)
	}
	return mo.Err[Principal](&AuthError{Type: res.Type, Message: res.Error})
}

// AuthError describes a failed authentication.
type AuthError struct {
	Type    Type
	Message string
}

func (e *AuthError) Error() string { return e.Message }

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the request's principal; the zero Principal when
// anonymous.
func PrincipalFrom(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}
