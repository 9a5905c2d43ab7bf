// Package identity provides users, password sign-in and cookie or bearer
// authentication for the storefront.
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/omarluq/storefront/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("identity: invalid user name or password")
	ErrDuplicateUser      = errors.New("identity: user name or email already taken")
	ErrWeakPassword       = errors.New("identity: password does not meet requirements")
	ErrInvalidToken       = errors.New("identity: invalid authentication ticket")
	ErrTokenExpired       = errors.New("identity: authentication ticket expired")
)

// UsersTable is the user table name.
const UsersTable = "users"

// User is a registered account.
type User struct {
	UserName     string   `json:"userName"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"passwordHash"`
	Roles        []string `json:"roles,omitempty"`
	ID           int      `json:"id"`
}

func (u User) GetID() int { return u.ID }

func (u User) WithID(id int) User {
	u.ID = id
	return u
}

// UserStore persists users.
type UserStore interface {
	FindByName(ctx context.Context, userName string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, u User) (User, error)
	Update(ctx context.Context, u User) error
}

// SQLUserStore keeps users in the identity database.
type SQLUserStore struct {
	users store.Repository[User]
}

var _ UserStore = (*SQLUserStore)(nil)

func NewSQLUserStore(users store.Repository[User]) *SQLUserStore {
	return &SQLUserStore{users: users}
}

func byField(jsonKey, value string, get func(User) string) store.Specification[User] {
	return store.Specification[User]{
		Match: func(u User) bool { return strings.EqualFold(get(u), value) },
		Where: "lower(data->>'" + jsonKey + "') = lower($1)",
		Args:  []any{value},
	}
}

func (s *SQLUserStore) FindByName(ctx context.Context, userName string) (User, error) {
	return s.users.First(ctx, byField("userName", userName, func(u User) string { return u.UserName }))
}

func (s *SQLUserStore) FindByEmail(ctx context.Context, email string) (User, error) {
	return s.users.First(ctx, byField("email", email, func(u User) string { return u.Email }))
}

// Create adds u. User names and emails are unique, case-insensitively.
func (s *SQLUserStore) Create(ctx context.Context, u User) (User, error) {
	if _, err := s.FindByName(ctx, u.UserName); err == nil {
		return User{}, ErrDuplicateUser
	} else if !errors.Is(err, store.ErrNotFound) {
		return User{}, err
	}
	if _, err := s.FindByEmail(ctx, u.Email); err == nil {
		return User{}, ErrDuplicateUser
	} else if !errors.Is(err, store.ErrNotFound) {
		return User{}, err
	}
	return s.users.Add(ctx, u)
}

func (s *SQLUserStore) Update(ctx context.Context, u User) error {
	return s.users.Update(ctx, u)
}
