package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/workdesk/request-tracker/internal/core/domain"
	"github.com/workdesk/request-tracker/internal/core/ports"
)

const priorityRankExpr = "CASE priority WHEN 'high' THEN 1 WHEN 'mid' THEN 2 ELSE 3 END"

// WorkOrderRepository implements ports.WorkOrderRepository on Postgres.
type WorkOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

func (r *WorkOrderRepository) Create(ctx context.Context, o *domain.WorkOrder) error {
	rec := taskModel{
		Title:       o.Title,
		Description: o.Description,
		Priority:    string(o.Priority),
		Status:      string(o.Status),
		CreatedBy:   o.CreatedBy,
		AssignedTo:  o.AssignedTo,
		CreatedAt:   o.CreatedAt.UTC(),
		UpdatedAt:   o.UpdatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	o.ID = rec.ID
	return nil
}

func (r *WorkOrderRepository) FindByID(ctx context.Context, id int64) (*domain.WorkOrder, error) {
	var rec taskModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.ErrWorkOrderNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return toDomainWorkOrder(rec), nil
}

func (r *WorkOrderRepository) List(ctx context.Context, f ports.WorkOrderFilter) ([]*domain.WorkOrder, error) {
	q := r.db.WithContext(ctx).Model(&taskModel{})
	if f.AssignedTo != nil {
		q = q.Where("assigned_to = ?", *f.AssignedTo)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", string(f.Priority))
	}
	if f.Search != "" {
		like := "%" + escapeLike(f.Search) + "%"
		q = q.Where("(title ILIKE ? OR description ILIKE ?)", like, like)
	}
	q = q.Order(orderFor(f.Sort))

	var recs []taskModel
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	out := make([]*domain.WorkOrder, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainWorkOrder(rec))
	}
	return out, nil
}

func orderFor(mode domain.SortMode) string {
	switch mode {
	case domain.SortPriority:
		return priorityRankExpr + " ASC, updated_at DESC, id DESC"
	case domain.SortCreatedAt:
		return "created_at DESC, id DESC"
	default:
		return "updated_at DESC, id DESC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// UpdateStatus is a compare-and-set on (status, assigned_to).
func (r *WorkOrderRepository) UpdateStatus(ctx context.Context, u ports.StatusUpdate) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&taskModel{}).
		Where("id = ? AND status = ? AND assigned_to = ?", u.ID, string(u.From), u.Assignee).
		Updates(map[string]any{
			"status":     string(u.To),
			"updated_at": u.At.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *WorkOrderRepository) UpdateAssignee(ctx context.Context, id int64, assignee *int64, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&taskModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"assigned_to": assignee,
			"updated_at":  at.UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("assign task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrWorkOrderNotFound
	}
	return nil
}

// UnassignUser runs before the user row is removed. The assigned_to foreign
// key also nulls stale references, but this path stamps updated_at.
func (r *WorkOrderRepository) UnassignUser(ctx context.Context, userID int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&taskModel{}).
		Where("assigned_to = ?", userID).
		Updates(map[string]any{
			"assigned_to": nil,
			"updated_at":  at.UTC(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("unassign tasks of user %d: %w", userID, res.Error)
	}
	return res.RowsAffected, nil
}
