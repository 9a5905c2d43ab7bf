package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const ticketIssuer = "storefront"

// Principal is the authenticated user carried by a ticket.
type Principal struct {
	IssuedAt  time.Time
	ExpiresAt time.Time
	UserName  string
	Email     string
	// Token is the signed ticket the principal was read from.
	Token string
	Roles []string
}

// IsAuthenticated reports whether p names a user.
func (p Principal) IsAuthenticated() bool { return p.UserName != "" }

// IsInRole reports whether p has role.
func (p Principal) IsInRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type claims struct {
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TicketFormat protects principals as HS256 JWTs.
type TicketFormat struct {
	now      func() time.Time
	key      []byte
	lifetime time.Duration
}

func NewTicketFormat(key []byte, lifetime time.Duration) *TicketFormat {
	return &TicketFormat{key: key, lifetime: lifetime, now: time.Now}
}

// Protect signs p, valid from now for the ticket lifetime.
func (t *TicketFormat) Protect(p Principal) (string, Principal, error) {
	now := t.now().Truncate(time.Second)
	p.IssuedAt = now
	p.ExpiresAt = now.Add(t.lifetime)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: p.Email,
		Roles: p.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ticketIssuer,
			Subject:   p.UserName,
			IssuedAt:  jwt.NewNumericDate(p.IssuedAt),
			NotBefore: jwt.NewNumericDate(p.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
		},
	})
	signed, err := tok.SignedString(t.key)
	if err != nil {
		return "", Principal{}, fmt.Errorf("sign ticket: %w", err)
	}
	p.Token = signed
	return signed, p, nil
}

// Unprotect verifies token and returns its principal.
func (t *TicketFormat) Unprotect(token string) (Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) { return t.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ticketIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Principal{}, ErrTokenExpired
	case err != nil:
		return Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	case c.Subject == "":
		return Principal{}, ErrInvalidToken
	}

	p := Principal{UserName: c.Subject, Email: c.Email, Roles: c.Roles, Token: token}
	if c.IssuedAt != nil {
		p.IssuedAt = c.IssuedAt.Time
	}
	p.ExpiresAt = c.ExpiresAt.Time
	return p, nil
}
