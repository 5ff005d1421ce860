package ports

import (
	"context"
	"time"

	"github.com/workdesk/request-tracker/internal/core/domain"
)

// WorkOrderFilter carries the predicate for listing work orders.
// AssignedTo is always set by the service layer for agents (row-level RBAC).
type WorkOrderFilter struct {
	AssignedTo *int64          // nil = no filter (admin)
	Status     domain.Status   // optional
	Priority   domain.Priority // optional
	Search     string          // optional: case-insensitive substring of title or description
	Sort       domain.SortMode
}

// StatusUpdate is a conditional status write. It only applies when the stored
// order still has status From and is assigned to Assignee.
type StatusUpdate struct {
	ID       int64
	From     domain.Status
	To       domain.Status
	Assignee int64
	At       time.Time
}

// WorkOrderRepository defines persistence operations for work orders.
type WorkOrderRepository interface {
	// Create assigns the order its ID.
	Create(ctx context.Context, order *domain.WorkOrder) error
	FindByID(ctx context.Context, id int64) (*domain.WorkOrder, error)
	List(ctx context.Context, filter WorkOrderFilter) ([]*domain.WorkOrder, error)
	// UpdateStatus applies u atomically and reports whether a row matched.
	UpdateStatus(ctx context.Context, u StatusUpdate) (bool, error)
	// UpdateAssignee sets or clears assigned_to. Returns domain.ErrWorkOrderNotFound
	// when no order has the id.
	UpdateAssignee(ctx context.Context, id int64, assignee *int64, at time.Time) error
	// UnassignUser clears assigned_to on every order held by userID and
	// returns how many orders changed.
	UnassignUser(ctx context.Context, userID int64, at time.Time) (int64, error)
}
