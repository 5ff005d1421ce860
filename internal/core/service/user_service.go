package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/workdesk/request-tracker/internal/core/domain"
	"github.com/workdesk/request-tracker/internal/core/ports"
)

// UserService implements account administration. Every operation is admin-only.
type UserService struct {
	repo   ports.UserRepository
	orders ports.WorkOrderRepository
	logger zerolog.Logger
	now    func() time.Time
}

func NewUserService(repo ports.UserRepository, orders ports.WorkOrderRepository, logger zerolog.Logger) *UserService {
	return &UserService{repo: repo, orders: orders, logger: logger, now: time.Now}
}

func (s *UserService) List(ctx context.Context, caller domain.Claims) ([]*domain.User, error) {
	if !caller.Role.IsAdmin() {
		return nil, domain.ErrForbiddenRole
	}
	return s.repo.List(ctx)
}

func (s *UserService) Get(ctx context.Context, caller domain.Claims, id int64) (*domain.User, error) {
	if !caller.Role.IsAdmin() {
		return nil, domain.ErrForbiddenRole
	}
	return s.repo.FindByID(ctx, id)
}

// Update replaces username, email and role. Uniqueness is enforced by the store.
func (s *UserService) Update(ctx context.Context, caller domain.Claims, id int64, in ports.UpdateUserInput) (*domain.User, error) {
	if !caller.Role.IsAdmin() {
		return nil, domain.ErrForbiddenRole
	}

	username := strings.TrimSpace(in.Username)
	email := domain.NormalizeEmail(in.Email)
	if username == "" || email == "" || in.Role == "" {
		return nil, fmt.Errorf("%w: username, email and role are required", domain.ErrValidation)
	}
	role, ok := domain.ParseRole(in.Role)
	if !ok {
		return nil, fmt.Errorf("%w: role must be admin or agent", domain.ErrValidation)
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Username = username
	user.Email = email
	user.Role = role
	user.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("user_id", id).Int64("updated_by", caller.UserID).Msg("user updated")
	return user, nil
}

// Delete removes the account after clearing it from every order it was
// assigned to, so no order references a missing user.
func (s *UserService) Delete(ctx context.Context, caller domain.Claims, id int64) error {
	if !caller.Role.IsAdmin() {
		return domain.ErrForbiddenRole
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}

	released, err := s.orders.UnassignUser(ctx, id, s.now().UTC().Truncate(time.Millisecond))
	if err != nil {
		return fmt.Errorf("unassign user %d: %w", id, err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().
		Int64("user_id", id).
		Int64("deleted_by", caller.UserID).
		Int64("tasks_unassigned", released).
		Msg("user deleted")
	return nil
}
