package ports

import (
	"context"

	"github.com/workdesk/request-tracker/internal/core/domain"
)

// CreateWorkOrderInput carries the data needed to open a new work order.
type CreateWorkOrderInput struct {
	Title          string
	Description    string
	Priority       string
	IdempotencyKey string
}

// CreateWorkOrderResult is returned by Create.
type CreateWorkOrderResult struct {
	Order *domain.WorkOrder
	// AlreadyExisted is true when the Idempotency-Key matched an earlier create.
	AlreadyExisted bool
}

// ListWorkOrdersInput carries the raw query parameters of the list endpoints.
type ListWorkOrdersInput struct {
	Status   string
	Priority string
	Search   string
	Sort     string
}

// WorkOrderService is the lifecycle engine.
type WorkOrderService interface {
	Create(ctx context.Context, caller domain.Claims, in CreateWorkOrderInput) (*CreateWorkOrderResult, error)
	Get(ctx context.Context, caller domain.Claims, id int64) (*domain.WorkOrder, error)
	List(ctx context.Context, caller domain.Claims, in ListWorkOrdersInput) ([]*domain.WorkOrder, error)
	Assign(ctx context.Context, caller domain.Claims, id int64, assignee *int64) (*domain.WorkOrder, error)
	Transition(ctx context.Context, caller domain.Claims, id int64, target string) (*domain.WorkOrder, error)
}

// IdempotencyStore remembers which work order a create key produced.
//
// Reserve claims key atomically before the order is written. It reports
// done=true with the recorded id when an earlier create already finished,
// and domain.ErrIdempotencyInProgress while another request holds the claim.
// Complete binds a claimed key to the new order; Release drops a claim whose
// create failed.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (orderID int64, done bool, err error)
	Complete(ctx context.Context, key string, orderID int64) error
	Release(ctx context.Context, key string) error
}
