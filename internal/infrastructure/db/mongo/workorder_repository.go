package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/workdesk/request-tracker/internal/core/domain"
	"github.com/workdesk/request-tracker/internal/core/ports"
)

const collectionTasks = "tasks"

// WorkOrderRepository implements ports.WorkOrderRepository using MongoDB.
type WorkOrderRepository struct {
	col *mongo.Collection
	ids *sequence
}

func NewWorkOrderRepository(db *mongo.Database) *WorkOrderRepository {
	return &WorkOrderRepository{
		col: db.Collection(collectionTasks),
		ids: newSequence(db, collectionTasks),
	}
}

// taskDoc stores priority_rank next to priority so the priority sort can use an index.
type taskDoc struct {
	ID           int64     `bson:"_id"`
	Title        string    `bson:"title"`
	Description  string    `bson:"description"`
	Priority     string    `bson:"priority"`
	PriorityRank int       `bson:"priority_rank"`
	Status       string    `bson:"status"`
	CreatedBy    int64     `bson:"created_by"`
	AssignedTo   *int64    `bson:"assigned_to"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (d taskDoc) toDomain() *domain.WorkOrder {
	return &domain.WorkOrder{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Priority:    domain.Priority(d.Priority),
		Status:      domain.Status(d.Status),
		CreatedBy:   d.CreatedBy,
		AssignedTo:  d.AssignedTo,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// Create inserts a new task document and sets o.ID.
func (r *WorkOrderRepository) Create(ctx context.Context, o *domain.WorkOrder) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.ids.next(ctx)
	if err != nil {
		return err
	}
	doc := taskDoc{
		ID:           id,
		Title:        o.Title,
		Description:  o.Description,
		Priority:     string(o.Priority),
		PriorityRank: o.Priority.Rank(),
		Status:       string(o.Status),
		CreatedBy:    o.CreatedBy,
		AssignedTo:   o.AssignedTo,
		CreatedAt:    o.CreatedAt.UTC(),
		UpdatedAt:    o.UpdatedAt.UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	o.ID = id
	return nil
}

func (r *WorkOrderRepository) FindByID(ctx context.Context, id int64) (*domain.WorkOrder, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc taskDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrWorkOrderNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *WorkOrderRepository) List(ctx context.Context, f ports.WorkOrderFilter) ([]*domain.WorkOrder, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, buildListFilter(f), options.Find().SetSort(sortFor(f.Sort)))
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	var docs []taskDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}

	out := make([]*domain.WorkOrder, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func buildListFilter(f ports.WorkOrderFilter) bson.M {
	filter := bson.M{}
	if f.AssignedTo != nil {
		filter["assigned_to"] = *f.AssignedTo
	}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	if f.Priority != "" {
		filter["priority"] = string(f.Priority)
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}
	return filter
}

func sortFor(mode domain.SortMode) bson.D {
	switch mode {
	case domain.SortPriority:
		return bson.D{{Key: "priority_rank", Value: 1}, {Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}}
	case domain.SortCreatedAt:
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	default:
		return bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}}
	}
}

// UpdateStatus writes the new status only while the row still has the expected
// status and assignee. It reports whether a document matched.
func (r *WorkOrderRepository) UpdateStatus(ctx context.Context, u ports.StatusUpdate) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"_id":         u.ID,
		"status":      string(u.From),
		"assigned_to": u.Assignee,
	}
	update := bson.M{"$set": bson.M{
		"status":     string(u.To),
		"updated_at": u.At.UTC(),
	}}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *WorkOrderRepository) UpdateAssignee(ctx context.Context, id int64, assignee *int64, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"assigned_to": assignee,
		"updated_at":  at.UTC(),
	}})
	if err != nil {
		return fmt.Errorf("assign task: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrWorkOrderNotFound
	}
	return nil
}

func (r *WorkOrderRepository) UnassignUser(ctx context.Context, userID int64, at time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateMany(ctx, bson.M{"assigned_to": userID}, bson.M{"$set": bson.M{
		"assigned_to": nil,
		"updated_at":  at.UTC(),
	}})
	if err != nil {
		return 0, fmt.Errorf("unassign tasks of user %d: %w", userID, err)
	}
	return res.ModifiedCount, nil
}
