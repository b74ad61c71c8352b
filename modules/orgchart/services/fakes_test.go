package services

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/orgchart/modules/orgchart/domain/department"
	"github.com/iota-uz/orgchart/modules/orgchart/domain/person"
	"github.com/iota-uz/orgchart/pkg/authz"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// memStore backs both repositories. Every call counts as a store touch.
type memStore struct {
	mu      sync.Mutex
	depts   map[uuid.UUID]department.Department
	people  map[uuid.UUID]person.Person
	touches int
	// childLookups counts ListActiveChildren calls, one per breadth-first frontier.
	childLookups int
}

func newMemStore() *memStore {
	return &memStore{
		depts:  map[uuid.UUID]department.Department{},
		people: map[uuid.UUID]person.Person{},
	}
}

type memSnapshot struct {
	depts  map[uuid.UUID]department.Department
	people map[uuid.UUID]person.Person
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{depts: maps.Clone(s.depts), people: maps.Clone(s.people)}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.depts = snap.depts
	s.people = snap.people
}

func (s *memStore) touch() {
	s.touches++
}

func (s *memStore) addDept(orgID uuid.UUID, name string, parent *uuid.UUID) uuid.UUID {
	id := uuid.New()
	s.depts[id] = department.Hydrate(id, orgID, parent, name, nil, len(s.depts), nil, testNow, testNow)
	return id
}

func (s *memStore) addPerson(orgID, deptID uuid.UUID, name string) uuid.UUID {
	id := uuid.New()
	s.people[id] = person.Hydrate(id, deptID, orgID, name, nil, nil, nil, false, nil, testNow, testNow)
	return id
}

func (s *memStore) dept(id uuid.UUID) department.Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depts[id]
}

func (s *memStore) person(id uuid.UUID) person.Person {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.people[id]
}

type memDepartments struct{ *memStore }

func (r memDepartments) GetActive(_ context.Context, orgID, id uuid.UUID) (department.Department, error) {
	d, err := r.Get(context.Background(), orgID, id)
	if err != nil {
		return department.Department{}, err
	}
	if d.IsDeleted() {
		return department.Department{}, department.ErrNotFound
	}
	return d, nil
}

func (r memDepartments) Get(_ context.Context, orgID, id uuid.UUID) (department.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()
	d, ok := r.depts[id]
	if !ok || d.OrganizationID() != orgID {
		return department.Department{}, department.ErrNotFound
	}
	return d, nil
}

func (r memDepartments) ParentOf(_ context.Context, orgID, id uuid.UUID) (*uuid.UUID, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()
	d, ok := r.depts[id]
	if !ok || d.OrganizationID() != orgID {
		return nil, false, nil
	}
	return d.ParentID(), true, nil
}

func (r memDepartments) ListActiveChildren(_ context.Context, orgID uuid.UUID, parentIDs []uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()
	r.childLookups++
	parents := make(map[uuid.UUID]struct{}, len(parentIDs))
	for _, id := range parentIDs {
		parents[id] = struct{}{}
	}
	var out []uuid.UUID
	for id, d := range r.depts {
		if d.OrganizationID() != orgID || d.IsDeleted() || d.ParentID() == nil {
			continue
		}
		if _, ok := parents[*d.ParentID()]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r memDepartments) ListActive(_ context.Context, orgID uuid.UUID) ([]department.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()
	var out []department.Department
	for _, d := range r.depts {
		if d.OrganizationID() == orgID && !d.IsDeleted() {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder() < out[j].SortOrder() })
	return out, nil
}

func (r memDepartments) SoftDeleteMany(_ context.Context, orgID uuid.UUID, ids []uuid.UUID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()
	var n int64
	for _, id := range ids {
		d, ok := r.depts[id]
		if !ok || d.OrganizationID() != orgID || d.IsDeleted() {
			continue
		}
		r.depts[id] = d.SoftDeleted(at)
		n++
	}
	return n, nil
}

func (r memDepartments) UpdateParent(ctx context.Context, orgID, id uuid.UUID, parentID *uuid.UUID, at time.Time) (department.Department, error) {
	d, err := r.GetActive(ctx, orgID, id)
	if err != nil {
		return department.Department{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d = d.WithParent(parentID, at)
	r.depts[id] = d
	return d, nil
}

type memPeople struct{ *memStore }

func (r memPeople) GetActive(_ context.Context, orgID, id uuid.UUID) (person.Person, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()
	p, ok := r.people[id]
	if !ok || p.OrganizationID() != orgID || p.IsDeleted() {
		return person.Person{}, person.ErrNotFound
	}
	return p, nil
}

func (r memPeople) ListActiveByDepartment(_ context.Context, orgID, departmentID uuid.UUID) ([]person.Person, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()
	var out []person.Person
	for _, p := range r.people {
		if p.OrganizationID() == orgID && p.DepartmentID() == departmentID && !p.IsDeleted() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memPeople) SoftDelete(ctx context.Context, orgID, id uuid.UUID, at time.Time) (person.Person, error) {
	p, err := r.GetActive(ctx, orgID, id)
	if err != nil {
		return person.Person{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p = p.SoftDeleted(at)
	r.people[id] = p
	return p, nil
}

func (r memPeople) SoftDeleteByDepartments(_ context.Context, orgID uuid.UUID, deptIDs []uuid.UUID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()
	in := make(map[uuid.UUID]struct{}, len(deptIDs))
	for _, id := range deptIDs {
		in[id] = struct{}{}
	}
	var n int64
	for id, p := range r.people {
		if _, ok := in[p.DepartmentID()]; ok && p.OrganizationID() == orgID && !p.IsDeleted() {
			r.people[id] = p.SoftDeleted(at)
			n++
		}
	}
	return n, nil
}

func (r memPeople) Update(ctx context.Context, orgID, id uuid.UUID, patch person.Patch, at time.Time) (person.Person, error) {
	p, err := r.GetActive(ctx, orgID, id)
	if err != nil {
		return person.Person{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p = p.Apply(patch, at)
	r.people[id] = p
	return p, nil
}

// memTx restores the store snapshot taken at begin when fn fails.
type memTx struct {
	store      *memStore
	txs        int
	savepoints int
	rollbacks  int
}

func (t *memTx) InTx(ctx context.Context, fn func(context.Context) error) error {
	t.txs++
	return t.run(ctx, fn)
}

func (t *memTx) InSavepoint(ctx context.Context, fn func(context.Context) error) error {
	t.savepoints++
	return t.run(ctx, fn)
}

func (t *memTx) run(ctx context.Context, fn func(context.Context) error) error {
	snap := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.rollbacks++
		t.store.restore(snap)
		return err
	}
	return nil
}

type notification struct {
	change string
	entity Entity
	actor  uuid.UUID
}

type recordingNotifier struct {
	events []notification
	failOn map[uuid.UUID]error
}

func (n *recordingNotifier) NotifyDeleted(_ context.Context, _ uuid.UUID, entity Entity, actor uuid.UUID) error {
	return n.record("deleted", entity, actor)
}

func (n *recordingNotifier) NotifyUpdated(_ context.Context, _ uuid.UUID, entity Entity, actor uuid.UUID) error {
	return n.record("updated", entity, actor)
}

func (n *recordingNotifier) record(change string, entity Entity, actor uuid.UUID) error {
	if err, ok := n.failOn[entity.ID]; ok {
		return err
	}
	n.events = append(n.events, notification{change: change, entity: entity, actor: actor})
	return nil
}

type stubGate struct {
	deny  bool
	err   error
	calls []authz.Role
}

func (g *stubGate) RequireOrgPermission(_ context.Context, orgID, actorID uuid.UUID, min authz.Role) error {
	g.calls = append(g.calls, min)
	if g.err != nil {
		return g.err
	}
	if g.deny {
		return fmt.Errorf("org %s actor %s: %w", orgID, actorID, authz.ErrPermissionDenied)
	}
	return nil
}

type fixture struct {
	orgID    uuid.UUID
	actor    uuid.UUID
	store    *memStore
	tx       *memTx
	notifier *recordingNotifier
	gate     *stubGate
	svc      *BulkService
	tree     *TreeService
}

func newFixture() *fixture {
	store := newMemStore()
	f := &fixture{
		orgID:    uuid.New(),
		actor:    uuid.New(),
		store:    store,
		tx:       &memTx{store: store},
		notifier: &recordingNotifier{failOn: map[uuid.UUID]error{}},
		gate:     &stubGate{},
	}
	f.svc = NewBulkService(BulkServiceDeps{
		Departments: memDepartments{store},
		People:      memPeople{store},
		Gate:        f.gate,
		Notifier:    f.notifier,
		Tx:          f.tx,
		Clock:       func() time.Time { return testNow },
	})
	f.tree = NewTreeService(memDepartments{store}, memPeople{store}, f.gate)
	return f
}
