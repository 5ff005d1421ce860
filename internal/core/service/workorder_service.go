package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/workdesk/request-tracker/internal/core/domain"
	"github.com/workdesk/request-tracker/internal/core/ports"
)

// WorkOrderService is the lifecycle engine. It holds no order state between
// calls; every operation reads the current row from the repository.
type WorkOrderService struct {
	repo   ports.WorkOrderRepository
	users  ports.UserRepository
	idem   ports.IdempotencyStore // optional
	logger zerolog.Logger
	now    func() time.Time
}

// WorkOrderOption customizes WorkOrderService construction.
type WorkOrderOption func(*WorkOrderService)

// WithIdempotencyStore enables Idempotency-Key replay on Create.
func WithIdempotencyStore(store ports.IdempotencyStore) WorkOrderOption {
	return func(s *WorkOrderService) { s.idem = store }
}

// WithClock injects a custom clock (useful for tests).
func WithClock(now func() time.Time) WorkOrderOption {
	return func(s *WorkOrderService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewWorkOrderService(repo ports.WorkOrderRepository, users ports.UserRepository, logger zerolog.Logger, opts ...WorkOrderOption) *WorkOrderService {
	s := &WorkOrderService{
		repo:   repo,
		users:  users,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WorkOrderService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// Create opens a new work order. With an idempotency key, the key is claimed
// before the insert so concurrent duplicates cannot both create; a key that
// already completed returns the earlier order without side effects.
func (s *WorkOrderService) Create(ctx context.Context, caller domain.Claims, in ports.CreateWorkOrderInput) (*ports.CreateWorkOrderResult, error) {
	if !caller.Role.IsAdmin() {
		return nil, domain.ErrForbiddenRole
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}

	var claimed bool
	if in.IdempotencyKey != "" && s.idem != nil {
		existing, ok, err := s.reserve(ctx, in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &ports.CreateWorkOrderResult{Order: existing, AlreadyExisted: true}, nil
		}
		claimed = ok
	}

	now := s.timestamp()
	order := &domain.WorkOrder{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Priority:    domain.PriorityOrDefault(in.Priority),
		Status:      domain.StatusOpen,
		CreatedBy:   caller.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		s.logger.Error().Err(err).Msg("failed to create work order")
		if claimed {
			if rerr := s.idem.Release(ctx, in.IdempotencyKey); rerr != nil {
				s.logger.Warn().Err(rerr).Str("idempotency_key", in.IdempotencyKey).Msg("failed to release idempotency key")
			}
		}
		return nil, err
	}

	if claimed {
		if err := s.idem.Complete(ctx, in.IdempotencyKey, order.ID); err != nil {
			s.logger.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("failed to store idempotency key")
		}
	}

	s.logger.Info().
		Int64("task_id", order.ID).
		Str("priority", string(order.Priority)).
		Int64("created_by", caller.UserID).
		Msg("task created")

	return &ports.CreateWorkOrderResult{Order: order}, nil
}

// reserve returns the earlier order for a completed key, or claimed=true when
// this call now owns key. Store failures degrade to a plain create.
func (s *WorkOrderService) reserve(ctx context.Context, key string) (*domain.WorkOrder, bool, error) {
	id, done, err := s.idem.Reserve(ctx, key)
	if errors.Is(err, domain.ErrIdempotencyInProgress) {
		return nil, false, err
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency reserve failed, creating anyway")
		return nil, false, nil
	}
	if !done {
		return nil, true, nil
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		// The recorded task is gone; create a new one and rebind the key.
		s.logger.Warn().Err(err).Int64("task_id", id).Msg("idempotency key points at missing task")
		return nil, true, nil
	}
	s.logger.Info().Str("idempotency_key", key).Int64("task_id", id).Msg("idempotent replay")
	return existing, false, nil
}

// Get returns a single order. Agents only see orders assigned to them; any
// other id answers domain.ErrWorkOrderNotFound.
func (s *WorkOrderService) Get(ctx context.Context, caller domain.Claims, id int64) (*domain.WorkOrder, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(caller, order) {
		return nil, domain.ErrWorkOrderNotFound
	}
	return order, nil
}

func canView(caller domain.Claims, order *domain.WorkOrder) bool {
	switch caller.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleAgent:
		return caller.IsAssignee(order.AssignedTo)
	default:
		return false
	}
}

// List returns orders visible to caller narrowed by the optional filters.
func (s *WorkOrderService) List(ctx context.Context, caller domain.Claims, in ports.ListWorkOrdersInput) ([]*domain.WorkOrder, error) {
	filter, err := buildFilter(in)
	if err != nil {
		return nil, err
	}

	switch caller.Role {
	case domain.RoleAdmin:
	case domain.RoleAgent:
		id := caller.UserID
		filter.AssignedTo = &id
	default:
		return nil, domain.ErrForbiddenRole
	}

	return s.repo.List(ctx, filter)
}

func buildFilter(in ports.ListWorkOrdersInput) (ports.WorkOrderFilter, error) {
	var f ports.WorkOrderFilter

	if in.Status != "" {
		st, ok := domain.ParseStatus(in.Status)
		if !ok {
			return f, fmt.Errorf("%w: invalid status filter %q", domain.ErrValidation, in.Status)
		}
		f.Status = st
	}
	if in.Priority != "" {
		p, ok := domain.ParsePriority(in.Priority)
		if !ok {
			return f, fmt.Errorf("%w: invalid priority filter %q", domain.ErrValidation, in.Priority)
		}
		f.Priority = p
	}
	sort, ok := domain.ParseSortMode(in.Sort)
	if !ok {
		return f, fmt.Errorf("%w: invalid sort field %q", domain.ErrValidation, in.Sort)
	}
	f.Sort = sort
	f.Search = strings.TrimSpace(in.Search)

	return f, nil
}

// Assign sets or clears the assignee. A non-nil assignee must be an existing user;
// its role is not checked.
func (s *WorkOrderService) Assign(ctx context.Context, caller domain.Claims, id int64, assignee *int64) (*domain.WorkOrder, error) {
	if !caller.Role.IsAdmin() {
		return nil, domain.ErrForbiddenRole
	}
	if assignee != nil && *assignee == 0 {
		assignee = nil
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if assignee != nil {
		if _, err := s.users.FindByID(ctx, *assignee); err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return nil, fmt.Errorf("%w: user %d", domain.ErrUnknownAssignee, *assignee)
			}
			return nil, err
		}
	}

	now := s.timestamp()
	if err := s.repo.UpdateAssignee(ctx, id, assignee, now); err != nil {
		return nil, err
	}
	order.AssignedTo = assignee
	order.UpdatedAt = now

	ev := s.logger.Info().Int64("task_id", id).Int64("assigned_by", caller.UserID)
	if assignee != nil {
		ev = ev.Int64("assigned_to", *assignee)
	}
	ev.Msg("task assignment updated")

	return order, nil
}

// Transition moves an order forward along the status graph. Only the assigned
// user may do so; admins get no bypass.
func (s *WorkOrderService) Transition(ctx context.Context, caller domain.Claims, id int64, target string) (*domain.WorkOrder, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := checkTransition(caller, order, target)
	if err != nil {
		s.logRejected(id, caller, target, err)
		return nil, err
	}

	from := order.Status
	now := s.timestamp()
	applied, err := s.repo.UpdateStatus(ctx, ports.StatusUpdate{
		ID:       id,
		From:     from,
		To:       next,
		Assignee: caller.UserID,
		At:       now,
	})
	if err != nil {
		return nil, fmt.Errorf("transition task %d: %w", id, err)
	}

	if !applied {
		// Lost a race: the row changed between read and write.
		fresh, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if _, err := checkTransition(caller, fresh, target); err != nil {
			s.logRejected(id, caller, target, err)
			return nil, err
		}
		return nil, domain.ErrConcurrentUpdate
	}

	order.Status = next
	order.UpdatedAt = now

	s.logger.Info().
		Int64("task_id", id).
		Str("from", string(from)).
		Str("to", string(next)).
		Int64("user_id", caller.UserID).
		Msg("task status updated")

	return order, nil
}

// checkTransition applies the ownership rule first, then the status graph.
func checkTransition(caller domain.Claims, order *domain.WorkOrder, target string) (domain.Status, error) {
	if !caller.IsAssignee(order.AssignedTo) {
		return "", domain.ErrNotAllowed
	}
	return order.Status.CheckTransition(target)
}

func (s *WorkOrderService) logRejected(id int64, caller domain.Claims, target string, err error) {
	s.logger.Debug().
		Err(err).
		Int64("task_id", id).
		Int64("user_id", caller.UserID).
		Str("target", target).
		Msg("transition rejected")
}
