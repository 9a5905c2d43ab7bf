package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/omarluq/storefront/internal/store"
)

const minPasswordLen = 6

// ValidatePassword requires at least six characters with an upper and a
// lower case letter, a digit and a symbol.
func ValidatePassword(pw string) error {
	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	var missing []string
	if len(pw) < minPasswordLen {
		missing = append(missing, fmt.Sprintf("at least %d characters", minPasswordLen))
	}
	if !upper {
		missing = append(missing, "an upper case letter")
	}
	if !lower {
		missing = append(missing, "a lower case letter")
	}
	if !digit {
		missing = append(missing, "a digit")
	}
	if !symbol {
		missing = append(missing, "a symbol")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: needs %s", ErrWeakPassword, strings.Join(missing, ", "))
	}
	return nil
}

// UserManager creates users and checks passwords.
type UserManager struct {
	store UserStore
	log   zerolog.Logger
	cost  int
}

// NewUserManager hashes with bcrypt at cost; a non-positive cost uses the
// bcrypt default.
func NewUserManager(s UserStore, cost int, log zerolog.Logger) *UserManager {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &UserManager{store: s, cost: cost, log: log}
}

// Create registers a user with password.
func (m *UserManager) Create(ctx context.Context, userName, email, password string, roles ...string) (User, error) {
	if strings.TrimSpace(userName) == "" {
		return User{}, fmt.Errorf("%w: user name is required", ErrInvalidCredentials)
	}
	if err := ValidatePassword(password); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return User{}, err
	}
	u, err := m.store.Create(ctx, User{UserName: userName, Email: email, PasswordHash: string(hash), Roles: roles})
	if err != nil {
		return User{}, err
	}
	m.log.Info().Str("user", userName).Msg("user created")
	return u, nil
}

// Find looks a user up by user name, then by email.
func (m *UserManager) Find(ctx context.Context, nameOrEmail string) (User, error) {
	u, err := m.store.FindByName(ctx, nameOrEmail)
	if errors.Is(err, store.ErrNotFound) {
		return m.store.FindByEmail(ctx, nameOrEmail)
	}
	return u, err
}

// CheckPassword reports whether password matches u.
func (m *UserManager) CheckPassword(u User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// SeedDemoUser creates the demo account when it does not exist.
func SeedDemoUser(ctx context.Context, m *UserManager, password string) error {
	const demo = "demouser@microsoft.com"
	if _, err := m.Find(ctx, demo); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	_, err := m.Create(ctx, demo, demo, password)
	return err
}

// SignInManager signs users in and out.
type SignInManager struct {
	users   *UserManager
	cookies *CookieManager
	log     zerolog.Logger
}

func NewSignInManager(users *UserManager, cookies *CookieManager, log zerolog.Logger) *SignInManager {
	return &SignInManager{users: users, cookies: cookies, log: log}
}

// PasswordSignIn checks the credentials and returns the principal. Unknown
// users and wrong passwords are indistinguishable to the caller.
func (s *SignInManager) PasswordSignIn(ctx context.Context, nameOrEmail, password string) (Principal, error) {
	u, err := s.users.Find(ctx, nameOrEmail)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Info().Str("user", nameOrEmail).Msg("sign-in failed: unknown user")
		return Principal{}, ErrInvalidCredentials
	}
	if err != nil {
		return Principal{}, err
	}
	if !s.users.CheckPassword(u, password) {
		s.log.Info().Str("user", nameOrEmail).Msg("sign-in failed: bad password")
		return Principal{}, ErrInvalidCredentials
	}
	return Principal{UserName: u.UserName, Email: u.Email, Roles: u.Roles}, nil
}

// SignIn issues the authentication cookie for p and returns p with its
// ticket times set.
func (s *SignInManager) SignIn(w http.ResponseWriter, r *http.Request, p Principal) (Principal, error) {
	p, err := s.cookies.SignIn(w, r, p)
	if err != nil {
		return Principal{}, err
	}
	s.log.Info().Str("user", p.UserName).Msg("user signed in")
	return p, nil
}

// SignOut clears the authentication cookie.
func (s *SignInManager) SignOut(w http.ResponseWriter, r *http.Request) {
	s.cookies.SignOut(w, r)
}

// Options returns the cookie settings.
func (s *SignInManager) Options() CookieOptions {
	return s.cookies.Options()
}
