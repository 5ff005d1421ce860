package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/workdesk/request-tracker/internal/core/domain"
	"github.com/workdesk/request-tracker/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

type stubWorkOrderRepo struct {
	orders    map[int64]*domain.WorkOrder
	nextID    int64
	createErr error
	updateErr error
	// beforeCreate runs at the start of Create.
	beforeCreate func()
	// beforeUpdate runs inside UpdateStatus before the conditional check,
	// letting a test mutate the row to simulate a concurrent writer.
	beforeUpdate func()
	lastFilter   ports.WorkOrderFilter
}

func newStubWorkOrderRepo() *stubWorkOrderRepo {
	return &stubWorkOrderRepo{orders: make(map[int64]*domain.WorkOrder)}
}

func cloneOrder(o *domain.WorkOrder) *domain.WorkOrder {
	clone := *o
	if o.AssignedTo != nil {
		id := *o.AssignedTo
		clone.AssignedTo = &id
	}
	return &clone
}

func (r *stubWorkOrderRepo) Create(_ context.Context, o *domain.WorkOrder) error {
	if hook := r.beforeCreate; hook != nil {
		r.beforeCreate = nil
		hook()
	}
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	o.ID = r.nextID
	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *stubWorkOrderRepo) FindByID(_ context.Context, id int64) (*domain.WorkOrder, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrWorkOrderNotFound
	}
	return cloneOrder(o), nil
}

// List applies the same filters and ordering the real repositories use.
func (r *stubWorkOrderRepo) List(_ context.Context, f ports.WorkOrderFilter) ([]*domain.WorkOrder, error) {
	r.lastFilter = f
	var matched []*domain.WorkOrder
	for _, o := range r.orders {
		if f.AssignedTo != nil && (o.AssignedTo == nil || *o.AssignedTo != *f.AssignedTo) {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.Priority != "" && o.Priority != f.Priority {
			continue
		}
		if f.Search != "" {
			q := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(o.Title), q) && !strings.Contains(strings.ToLower(o.Description), q) {
				continue
			}
		}
		matched = append(matched, cloneOrder(o))
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch f.Sort {
		case domain.SortPriority:
			if a.Priority.Rank() != b.Priority.Rank() {
				return a.Priority.Rank() < b.Priority.Rank()
			}
			return a.UpdatedAt.After(b.UpdatedAt)
		case domain.SortCreatedAt:
			return a.CreatedAt.After(b.CreatedAt)
		default:
			return a.UpdatedAt.After(b.UpdatedAt)
		}
	})
	return matched, nil
}

func (r *stubWorkOrderRepo) UpdateStatus(_ context.Context, u ports.StatusUpdate) (bool, error) {
	if r.updateErr != nil {
		return false, r.updateErr
	}
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	o, ok := r.orders[u.ID]
	if !ok || o.Status != u.From || o.AssignedTo == nil || *o.AssignedTo != u.Assignee {
		return false, nil
	}
	o.Status = u.To
	o.UpdatedAt = u.At
	return true, nil
}

func (r *stubWorkOrderRepo) UpdateAssignee(_ context.Context, id int64, assignee *int64, at time.Time) error {
	o, ok := r.orders[id]
	if !ok {
		return domain.ErrWorkOrderNotFound
	}
	if assignee == nil {
		o.AssignedTo = nil
	} else {
		v := *assignee
		o.AssignedTo = &v
	}
	o.UpdatedAt = at
	return nil
}

func (r *stubWorkOrderRepo) UnassignUser(_ context.Context, userID int64, at time.Time) (int64, error) {
	var n int64
	for _, o := range r.orders {
		if o.AssignedTo != nil && *o.AssignedTo == userID {
			o.AssignedTo = nil
			o.UpdatedAt = at
			n++
		}
	}
	return n, nil
}

// stubIdempotency keeps claims in a map; a value of 0 marks a pending claim.
type stubIdempotency struct {
	keys       map[string]int64
	reserveErr error
	released   []string
}

func newStubIdempotency() *stubIdempotency {
	return &stubIdempotency{keys: map[string]int64{}}
}

func (s *stubIdempotency) Reserve(_ context.Context, key string) (int64, bool, error) {
	if s.reserveErr != nil {
		return 0, false, s.reserveErr
	}
	id, ok := s.keys[key]
	if !ok {
		s.keys[key] = 0
		return 0, false, nil
	}
	if id == 0 {
		return 0, false, domain.ErrIdempotencyInProgress
	}
	return id, true, nil
}

func (s *stubIdempotency) Complete(_ context.Context, key string, id int64) error {
	s.keys[key] = id
	return nil
}

func (s *stubIdempotency) Release(_ context.Context, key string) error {
	delete(s.keys, key)
	s.released = append(s.released, key)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type fixture struct {
	orders *stubWorkOrderRepo
	users  *stubUserRepo
	svc    *WorkOrderService
	clock  time.Time
}

func newFixture(opts ...WorkOrderOption) *fixture {
	f := &fixture{
		orders: newStubWorkOrderRepo(),
		users:  newStubUserRepo(),
		clock:  time.Date(2026, 3, 2, 9, 0, 0, 123456789, time.UTC),
	}
	f.users.seed(&domain.User{ID: 1, Username: "root", Email: "root@example.com", Role: domain.RoleAdmin})
	f.users.seed(&domain.User{ID: 3, Username: "agent3", Email: "agent3@example.com", Role: domain.RoleAgent})
	f.users.seed(&domain.User{ID: 7, Username: "agent7", Email: "agent7@example.com", Role: domain.RoleAgent})

	opts = append(opts, WithClock(func() time.Time { return f.clock }))
	f.svc = NewWorkOrderService(f.orders, f.users, zerolog.Nop(), opts...)
	return f
}

func (f *fixture) tick() { f.clock = f.clock.Add(time.Minute) }

func agent(id int64) domain.Claims {
	return domain.Claims{UserID: id, Username: "agent", Role: domain.RoleAgent}
}

func ptr(v int64) *int64 { return &v }

func (f *fixture) create(t *testing.T, title, priority string) *domain.WorkOrder {
	t.Helper()
	res, err := f.svc.Create(context.Background(), adminCaller, ports.CreateWorkOrderInput{Title: title, Priority: priority})
	if err != nil {
		t.Fatalf("create %q: %v", title, err)
	}
	f.tick()
	return res.Order
}

func (f *fixture) assign(t *testing.T, id int64, agentID *int64) {
	t.Helper()
	if _, err := f.svc.Assign(context.Background(), adminCaller, id, agentID); err != nil {
		t.Fatalf("assign %d: %v", id, err)
	}
	f.tick()
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestWorkOrderService_Create_RoundTrip(t *testing.T) {
	f := newFixture()

	created := f.create(t, "Fix login", "high")
	got, err := f.svc.Get(context.Background(), adminCaller, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Status != domain.StatusOpen {
		t.Errorf("expected status open, got %s", got.Status)
	}
	if got.AssignedTo != nil {
		t.Errorf("expected no assignee, got %d", *got.AssignedTo)
	}
	if got.Priority != domain.PriorityHigh {
		t.Errorf("expected priority high, got %s", got.Priority)
	}
	if !got.CreatedAt.Equal(got.UpdatedAt) {
		t.Errorf("expected createdAt == updatedAt, got %s vs %s", got.CreatedAt, got.UpdatedAt)
	}
	if got.CreatedBy != adminCaller.UserID {
		t.Errorf("expected created_by %d, got %d", adminCaller.UserID, got.CreatedBy)
	}
}

func TestWorkOrderService_Create_DefaultsPriority(t *testing.T) {
	f := newFixture()

	for _, p := range []string{"", "urgent", "Medium"} {
		o := f.create(t, "task "+p, p)
		if o.Priority != domain.PriorityMid {
			t.Errorf("priority %q: expected mid, got %s", p, o.Priority)
		}
	}
	if o := f.create(t, "low one", "LOW"); o.Priority != domain.PriorityLow {
		t.Errorf("expected low, got %s", o.Priority)
	}
}

func TestWorkOrderService_Create_RequiresTitle(t *testing.T) {
	f := newFixture()

	for _, title := range []string{"", "   "} {
		_, err := f.svc.Create(context.Background(), adminCaller, ports.CreateWorkOrderInput{Title: title})
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("title %q: expected ErrValidation, got %v", title, err)
		}
	}
	if len(f.orders.orders) != 0 {
		t.Fatalf("no order must be stored")
	}
}

func TestWorkOrderService_Create_RequiresAdmin(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), agent(7), ports.CreateWorkOrderInput{Title: "x"})
	if !errors.Is(err, domain.ErrForbiddenRole) {
		t.Fatalf("expected ErrForbiddenRole, got %v", err)
	}
}

func TestWorkOrderService_Create_RepoError(t *testing.T) {
	f := newFixture()
	f.orders.createErr = errors.New("db unavailable")

	if _, err := f.svc.Create(context.Background(), adminCaller, ports.CreateWorkOrderInput{Title: "x"}); err == nil {
		t.Fatal("expected error when repo fails, got nil")
	}
}

func TestWorkOrderService_Create_IdempotencyReplay(t *testing.T) {
	idem := newStubIdempotency()
	f := newFixture(WithIdempotencyStore(idem))

	in := ports.CreateWorkOrderInput{Title: "Fix login bug", IdempotencyKey: "key-abc-123"}
	first, err := f.svc.Create(context.Background(), adminCaller, in)
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := f.svc.Create(context.Background(), adminCaller, in)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	if second.Order.ID != first.Order.ID {
		t.Errorf("replay must return same id: got %d, want %d", second.Order.ID, first.Order.ID)
	}
	if first.AlreadyExisted || !second.AlreadyExisted {
		t.Errorf("unexpected AlreadyExisted flags: %v, %v", first.AlreadyExisted, second.AlreadyExisted)
	}
	if len(f.orders.orders) != 1 {
		t.Errorf("expected 1 stored order, got %d", len(f.orders.orders))
	}
}

func TestWorkOrderService_Create_KeyInProgress(t *testing.T) {
	idem := newStubIdempotency()
	idem.keys["dup"] = 0
	f := newFixture(WithIdempotencyStore(idem))

	_, err := f.svc.Create(context.Background(), adminCaller, ports.CreateWorkOrderInput{Title: "x", IdempotencyKey: "dup"})
	if !errors.Is(err, domain.ErrIdempotencyInProgress) {
		t.Fatalf("expected ErrIdempotencyInProgress, got %v", err)
	}
	if len(f.orders.orders) != 0 {
		t.Fatalf("a held key must not create, got %d orders", len(f.orders.orders))
	}
}

func TestWorkOrderService_Create_KeyClaimedBeforeInsert(t *testing.T) {
	idem := newStubIdempotency()
	f := newFixture(WithIdempotencyStore(idem))

	// A duplicate arriving while the first insert runs must see the claim.
	var during error
	f.orders.beforeCreate = func() {
		_, during = f.svc.Create(context.Background(), adminCaller, ports.CreateWorkOrderInput{Title: "dup", IdempotencyKey: "k"})
	}
	first, err := f.svc.Create(context.Background(), adminCaller, ports.CreateWorkOrderInput{Title: "dup", IdempotencyKey: "k"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !errors.Is(during, domain.ErrIdempotencyInProgress) {
		t.Fatalf("expected in-progress for the overlapping duplicate, got %v", during)
	}
	if len(f.orders.orders) != 1 {
		t.Fatalf("expected exactly 1 order, got %d", len(f.orders.orders))
	}
	if idem.keys["k"] != first.Order.ID {
		t.Fatalf("key must be bound to %d, got %d", first.Order.ID, idem.keys["k"])
	}
}

func TestWorkOrderService_Create_FailedInsertReleasesKey(t *testing.T) {
	idem := newStubIdempotency()
	f := newFixture(WithIdempotencyStore(idem))
	f.orders.createErr = errors.New("db unavailable")

	in := ports.CreateWorkOrderInput{Title: "x", IdempotencyKey: "retry-me"}
	if _, err := f.svc.Create(context.Background(), adminCaller, in); err == nil {
		t.Fatal("expected repo error")
	}
	if len(idem.released) != 1 || idem.released[0] != "retry-me" {
		t.Fatalf("expected key released, got %v", idem.released)
	}

	f.orders.createErr = nil
	res, err := f.svc.Create(context.Background(), adminCaller, in)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if res.AlreadyExisted {
		t.Fatal("retry after a failed insert must create")
	}
}

func TestWorkOrderService_Create_StoreErrorStillCreates(t *testing.T) {
	idem := newStubIdempotency()
	idem.reserveErr = errors.New("redis down")
	f := newFixture(WithIdempotencyStore(idem))

	res, err := f.svc.Create(context.Background(), adminCaller, ports.CreateWorkOrderInput{Title: "x", IdempotencyKey: "k"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Order.ID == 0 || len(idem.keys) != 0 {
		t.Fatalf("expected a plain create with no key stored, got id=%d keys=%v", res.Order.ID, idem.keys)
	}
}

// ---------------------------------------------------------------------------
// Transition
// ---------------------------------------------------------------------------

func TestWorkOrderService_Scenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o := f.create(t, "Fix login bug", "")
	f.assign(t, o.ID, ptr(7))

	got, err := f.svc.Transition(ctx, agent(7), o.ID, "in_progress")
	if err != nil {
		t.Fatalf("open -> in_progress: %v", err)
	}
	if got.Status != domain.StatusInProgress {
		t.Fatalf("expected in_progress, got %s", got.Status)
	}

	if _, err := f.svc.Transition(ctx, agent(3), o.ID, "done"); !errors.Is(err, domain.ErrNotAllowed) {
		t.Fatalf("user 3: expected ErrNotAllowed, got %v", err)
	}

	if _, err := f.svc.Transition(ctx, agent(7), o.ID, "done"); err != nil {
		t.Fatalf("in_progress -> done: %v", err)
	}

	if _, err := f.svc.Transition(ctx, agent(7), o.ID, "open"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("done -> open: expected ErrInvalidTransition, got %v", err)
	}

	stored := f.orders.orders[o.ID]
	if stored.Status != domain.StatusDone {
		t.Fatalf("expected stored status done, got %s", stored.Status)
	}
}

func TestWorkOrderService_Transition_RefreshesUpdatedAt(t *testing.T) {
	f := newFixture()
	o := f.create(t, "a", "")
	f.assign(t, o.ID, ptr(7))
	before := f.orders.orders[o.ID].UpdatedAt

	got, err := f.svc.Transition(context.Background(), agent(7), o.ID, "in_progress")
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if !got.UpdatedAt.After(before) || !f.orders.orders[o.ID].UpdatedAt.Equal(got.UpdatedAt) {
		t.Fatalf("updatedAt not refreshed: before %s, after %s", before, got.UpdatedAt)
	}
	if !got.CreatedAt.Equal(o.CreatedAt) {
		t.Fatalf("createdAt must not change")
	}
}

func TestWorkOrderService_Transition_IllegalMovesLeaveStatus(t *testing.T) {
	cases := []struct {
		name    string
		prepare []string
		target  string
		want    domain.Status
	}{
		{"open to done skips", nil, "done", domain.StatusOpen},
		{"open to open", nil, "open", domain.StatusOpen},
		{"unknown value", nil, "closed", domain.StatusOpen},
		{"empty value", nil, "", domain.StatusOpen},
		{"in_progress back to open", []string{"in_progress"}, "open", domain.StatusInProgress},
		{"done to open", []string{"in_progress", "done"}, "open", domain.StatusDone},
		{"done to in_progress", []string{"in_progress", "done"}, "in_progress", domain.StatusDone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			o := f.create(t, "a", "")
			f.assign(t, o.ID, ptr(7))
			for _, step := range tc.prepare {
				if _, err := f.svc.Transition(context.Background(), agent(7), o.ID, step); err != nil {
					t.Fatalf("prepare %s: %v", step, err)
				}
			}
			before := *f.orders.orders[o.ID]

			_, err := f.svc.Transition(context.Background(), agent(7), o.ID, tc.target)
			if !errors.Is(err, domain.ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
			after := f.orders.orders[o.ID]
			if after.Status != tc.want || !after.UpdatedAt.Equal(before.UpdatedAt) {
				t.Fatalf("stored order changed: %+v", after)
			}
		})
	}
}

func TestWorkOrderService_Transition_NonAssigneeAlwaysForbidden(t *testing.T) {
	f := newFixture()
	o := f.create(t, "a", "")
	f.assign(t, o.ID, ptr(7))

	callers := []domain.Claims{agent(3), adminCaller}
	for _, caller := range callers {
		for _, target := range []string{"open", "in_progress", "done", "bogus", ""} {
			_, err := f.svc.Transition(context.Background(), caller, o.ID, target)
			if !errors.Is(err, domain.ErrNotAllowed) {
				t.Fatalf("caller %d target %q: expected ErrNotAllowed, got %v", caller.UserID, target, err)
			}
		}
	}
	if f.orders.orders[o.ID].Status != domain.StatusOpen {
		t.Fatalf("status must be unchanged")
	}
}

func TestWorkOrderService_Transition_UnassignedIsForbidden(t *testing.T) {
	f := newFixture()
	o := f.create(t, "a", "")
	f.assign(t, o.ID, ptr(7))
	f.assign(t, o.ID, nil)

	for _, id := range []int64{7, 3} {
		if _, err := f.svc.Transition(context.Background(), agent(id), o.ID, "in_progress"); !errors.Is(err, domain.ErrNotAllowed) {
			t.Fatalf("agent %d: expected ErrNotAllowed, got %v", id, err)
		}
	}
}

func TestWorkOrderService_Transition_NotFound(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.Transition(context.Background(), agent(7), 99, "in_progress"); !errors.Is(err, domain.ErrWorkOrderNotFound) {
		t.Fatalf("expected ErrWorkOrderNotFound, got %v", err)
	}
}

func TestWorkOrderService_Transition_StoreError(t *testing.T) {
	f := newFixture()
	o := f.create(t, "a", "")
	f.assign(t, o.ID, ptr(7))
	f.orders.updateErr = errors.New("write failed")

	_, err := f.svc.Transition(context.Background(), agent(7), o.ID, "in_progress")
	if err == nil || errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected store error, got %v", err)
	}
	if f.orders.orders[o.ID].Status != domain.StatusOpen {
		t.Fatalf("failed write must not change status")
	}
}

func TestWorkOrderService_Transition_LostRaceIsReclassified(t *testing.T) {
	f := newFixture()
	o := f.create(t, "a", "")
	f.assign(t, o.ID, ptr(7))

	// A concurrent request moves the order first.
	f.orders.beforeUpdate = func() {
		f.orders.orders[o.ID].Status = domain.StatusInProgress
		f.orders.beforeUpdate = nil
	}
	_, err := f.svc.Transition(context.Background(), agent(7), o.ID, "in_progress")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after lost race, got %v", err)
	}

	// A concurrent reassignment.
	f.orders.beforeUpdate = func() {
		f.orders.orders[o.ID].AssignedTo = ptr(3)
		f.orders.beforeUpdate = nil
	}
	_, err = f.svc.Transition(context.Background(), agent(7), o.ID, "done")
	if !errors.Is(err, domain.ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed after reassignment race, got %v", err)
	}
}

func TestWorkOrderService_Transition_ConcurrentUpdate(t *testing.T) {
	f := newFixture()
	o := f.create(t, "a", "")
	f.assign(t, o.ID, ptr(7))

	// The row is reassigned under the write and reassigned back before the re-read.
	calls := 0
	f.orders.beforeUpdate = func() {
		calls++
		f.orders.orders[o.ID].AssignedTo = ptr(3)
	}
	repo := &restoringRepo{
		stubWorkOrderRepo: f.orders,
		restore:           func() { f.orders.orders[o.ID].AssignedTo = ptr(7) },
	}
	svc := NewWorkOrderService(repo, f.users, zerolog.Nop())

	_, err := svc.Transition(context.Background(), agent(7), o.ID, "in_progress")
	if !errors.Is(err, domain.ErrConcurrentUpdate) {
		t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one write attempt, got %d", calls)
	}
}

// restoringRepo undoes a concurrent change right after a failed conditional update.
type restoringRepo struct {
	*stubWorkOrderRepo
	restore func()
}

func (r *restoringRepo) UpdateStatus(ctx context.Context, u ports.StatusUpdate) (bool, error) {
	ok, err := r.stubWorkOrderRepo.UpdateStatus(ctx, u)
	if !ok {
		r.restore()
	}
	return ok, err
}

// ---------------------------------------------------------------------------
// Assign
// ---------------------------------------------------------------------------

func TestWorkOrderService_Assign(t *testing.T) {
	f := newFixture()
	o := f.create(t, "a", "")

	got, err := f.svc.Assign(context.Background(), adminCaller, o.ID, ptr(7))
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got.AssignedTo == nil || *got.AssignedTo != 7 {
		t.Fatalf("expected assignee 7, got %v", got.AssignedTo)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Fatalf("updatedAt must be refreshed")
	}

	got, err = f.svc.Assign(context.Background(), adminCaller, o.ID, ptr(0))
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got.AssignedTo != nil || f.orders.orders[o.ID].AssignedTo != nil {
		t.Fatalf("expected assignment cleared")
	}
}

func TestWorkOrderService_Assign_Errors(t *testing.T) {
	f := newFixture()
	o := f.create(t, "a", "")

	if _, err := f.svc.Assign(context.Background(), agent(7), o.ID, ptr(7)); !errors.Is(err, domain.ErrForbiddenRole) {
		t.Fatalf("expected ErrForbiddenRole, got %v", err)
	}
	if _, err := f.svc.Assign(context.Background(), adminCaller, 404, ptr(7)); !errors.Is(err, domain.ErrWorkOrderNotFound) {
		t.Fatalf("expected ErrWorkOrderNotFound, got %v", err)
	}
	if _, err := f.svc.Assign(context.Background(), adminCaller, o.ID, ptr(42)); !errors.Is(err, domain.ErrUnknownAssignee) {
		t.Fatalf("expected ErrUnknownAssignee, got %v", err)
	}
	if f.orders.orders[o.ID].AssignedTo != nil {
		t.Fatalf("failed assignment must not be stored")
	}
}

func TestWorkOrderService_Assign_DoesNotCheckRole(t *testing.T) {
	f := newFixture()
	o := f.create(t, "a", "")

	if _, err := f.svc.Assign(context.Background(), adminCaller, o.ID, ptr(1)); err != nil {
		t.Fatalf("assigning an admin account should succeed, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

func TestWorkOrderService_List_RoleFiltering(t *testing.T) {
	f := newFixture()
	a := f.create(t, "alpha", "")
	b := f.create(t, "beta", "")
	f.create(t, "gamma", "")
	f.assign(t, a.ID, ptr(7))
	f.assign(t, b.ID, ptr(3))

	all, err := f.svc.List(context.Background(), adminCaller, ports.ListWorkOrdersInput{})
	if err != nil || len(all) != 3 {
		t.Fatalf("admin: expected 3 orders, got %d (%v)", len(all), err)
	}
	if f.orders.lastFilter.AssignedTo != nil {
		t.Fatalf("admin list must not be narrowed")
	}

	mine, err := f.svc.List(context.Background(), agent(7), ports.ListWorkOrdersInput{})
	if err != nil {
		t.Fatalf("agent list: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != a.ID {
		t.Fatalf("agent 7 must only see order %d, got %+v", a.ID, mine)
	}
}

func TestWorkOrderService_List_FiltersAndSort(t *testing.T) {
	f := newFixture()
	low := f.create(t, "Printer jam", "low")
	high := f.create(t, "Login broken", "high")
	mid := f.create(t, "Update docs", "mid")
	f.create(t, "Another login issue", "low")

	byPriority, err := f.svc.List(context.Background(), adminCaller, ports.ListWorkOrdersInput{Sort: "priority"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if byPriority[0].ID != high.ID || byPriority[1].ID != mid.ID || byPriority[3].ID != low.ID {
		t.Fatalf("unexpected priority order: %d %d %d %d", byPriority[0].ID, byPriority[1].ID, byPriority[2].ID, byPriority[3].ID)
	}

	recent, _ := f.svc.List(context.Background(), adminCaller, ports.ListWorkOrdersInput{})
	if recent[0].Title != "Another login issue" || recent[3].ID != low.ID {
		t.Fatalf("default sort must be updated_at desc")
	}

	found, _ := f.svc.List(context.Background(), adminCaller, ports.ListWorkOrdersInput{Search: "LOGIN"})
	if len(found) != 2 {
		t.Fatalf("expected 2 search hits, got %d", len(found))
	}

	lows, _ := f.svc.List(context.Background(), adminCaller, ports.ListWorkOrdersInput{Priority: "low", Status: "open"})
	if len(lows) != 2 {
		t.Fatalf("expected 2 low open orders, got %d", len(lows))
	}
}

func TestWorkOrderService_List_InvalidParams(t *testing.T) {
	f := newFixture()

	bad := []ports.ListWorkOrdersInput{
		{Status: "closed"},
		{Priority: "urgent"},
		{Sort: "title"},
	}
	for _, in := range bad {
		if _, err := f.svc.List(context.Background(), adminCaller, in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%+v: expected ErrValidation, got %v", in, err)
		}
	}
}

func TestWorkOrderService_Get_AgentScope(t *testing.T) {
	f := newFixture()
	o := f.create(t, "a", "")
	f.assign(t, o.ID, ptr(7))

	if _, err := f.svc.Get(context.Background(), agent(7), o.ID); err != nil {
		t.Fatalf("assignee get: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), agent(3), o.ID); !errors.Is(err, domain.ErrWorkOrderNotFound) {
		t.Fatalf("other agent: expected ErrWorkOrderNotFound, got %v", err)
	}
	if _, err := f.svc.Get(context.Background(), adminCaller, 99); !errors.Is(err, domain.ErrWorkOrderNotFound) {
		t.Fatalf("missing id: expected ErrWorkOrderNotFound, got %v", err)
	}
}
