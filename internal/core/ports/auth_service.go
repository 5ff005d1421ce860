package ports

import (
	"context"
	"time"

	"github.com/workdesk/request-tracker/internal/core/domain"
)

// RegisterInput carries the fields for a new account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// UpdateUserInput replaces the profile fields of an account.
type UpdateUserInput struct {
	Username string
	Email    string
	Role     string
}

type AuthService interface {
	Register(ctx context.Context, caller domain.Claims, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	// EnsureAdmin creates the bootstrap admin when no account has its email.
	EnsureAdmin(ctx context.Context, in RegisterInput) error
}

// UserService exposes account administration to admins.
type UserService interface {
	List(ctx context.Context, caller domain.Claims) ([]*domain.User, error)
	Get(ctx context.Context, caller domain.Claims, id int64) (*domain.User, error)
	Update(ctx context.Context, caller domain.Claims, id int64, in UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, caller domain.Claims, id int64) error
}

// TokenService issues and verifies signed session tokens.
type TokenService interface {
	Issue(user *domain.User) (string, error)
	// Verify takes the raw Authorization header value ("Bearer <token>").
	Verify(authorization string) (domain.Claims, error)
	TTL() time.Duration
}

// PasswordHasher wraps the one-way hash primitive.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Compare(plaintext, hash string) bool
}

// LoginLimiter throttles repeated failed logins per key.
type LoginLimiter interface {
	Locked(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}
