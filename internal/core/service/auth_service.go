package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/workdesk/request-tracker/internal/core/domain"
	"github.com/workdesk/request-tracker/internal/core/ports"
)

// AuthService implements registration, login and admin bootstrap.
type AuthService struct {
	repo    ports.UserRepository
	hasher  ports.PasswordHasher
	tokens  ports.TokenService
	limiter ports.LoginLimiter // optional
	logger  zerolog.Logger
	now     func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// AuthOption customizes AuthService construction.
type AuthOption func(*AuthService)

// WithLoginLimiter enables lockout after repeated failed logins.
func WithLoginLimiter(l ports.LoginLimiter) AuthOption {
	return func(s *AuthService) { s.limiter = l }
}

// WithAuthClock injects a custom clock.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewAuthService(repo ports.UserRepository, hasher ports.PasswordHasher, tokens ports.TokenService, logger zerolog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account. Only admins may register users.
func (s *AuthService) Register(ctx context.Context, caller domain.Claims, in ports.RegisterInput) (*domain.User, error) {
	if !caller.Role.IsAdmin() {
		return nil, domain.ErrForbiddenRole
	}
	user, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Int64("user_id", user.ID).
		Str("role", user.Role.String()).
		Int64("registered_by", caller.UserID).
		Msg("user registered")
	return user, nil
}

// EnsureAdmin creates the bootstrap admin account unless its email is already taken.
func (s *AuthService) EnsureAdmin(ctx context.Context, in ports.RegisterInput) error {
	_, err := s.repo.FindByEmail(ctx, domain.NormalizeEmail(in.Email))
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("ensure admin: %w", err)
	}

	in.Role = domain.RoleAdmin.String()
	user, err := s.create(ctx, in)
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	s.logger.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("bootstrap admin created")
	return nil
}

func (s *AuthService) create(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	email := domain.NormalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" || in.Role == "" {
		return nil, fmt.Errorf("%w: username, email, password and role are required", domain.ErrValidation)
	}
	role, ok := domain.ParseRole(in.Role)
	if !ok {
		return nil, fmt.Errorf("%w: role must be admin or agent", domain.ErrValidation)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	return s.repo.Create(ctx, &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// Login authenticates by email and password and returns a signed token.
// Unknown email and wrong password both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}

	if s.limiter != nil {
		locked, err := s.limiter.Locked(ctx, email)
		if err != nil {
			s.logger.Warn().Err(err).Msg("login lockout check failed, continuing")
		} else if locked {
			return "", nil, domain.ErrTooManyAttempts
		}
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Spend the same hashing work as a real account.
			s.hasher.Compare(password, s.unknownUserHash())
			s.recordFailure(ctx, email)
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !s.hasher.Compare(password, user.PasswordHash) {
		s.recordFailure(ctx, email)
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.logger.Warn().Err(err).Msg("failed to reset login lockout")
		}
	}

	s.logger.Info().Int64("user_id", user.ID).Str("role", user.Role.String()).Msg("login succeeded")
	return token, user, nil
}

// unknownUserHash hashes a fixed placeholder with the configured hasher so
// its cost matches stored hashes.
func (s *AuthService) unknownUserHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("request-tracker-unknown-user")
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to prepare unknown-user hash")
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func (s *AuthService) recordFailure(ctx context.Context, email string) {
	s.logger.Info().Msg("login failed")
	if s.limiter == nil {
		return
	}
	if err := s.limiter.RecordFailure(ctx, email); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record login failure")
	}
}
