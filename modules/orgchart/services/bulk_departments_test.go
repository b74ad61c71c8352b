package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/orgchart/modules/orgchart/domain/department"
)

func TestEditDepartments_SelfParentTouchesNothing(t *testing.T) {
	f := newFixture()
	d := f.store.addDept(f.orgID, "Ops", nil)
	other := f.store.addDept(f.orgID, "Other", nil)

	_, err := f.svc.EditDepartments(context.Background(), f.orgID, []uuid.UUID{other, d}, department.Patch{
		Parent: department.SetParent(&d),
	}, f.actor)
	require.True(t, IsSelfParent(err))
	require.EqualError(t, err, MsgSelfParent)
	require.Zero(t, f.store.touches)
	require.Zero(t, f.tx.txs)
}

func TestEditDepartments_RejectsDescendantParentPerItem(t *testing.T) {
	f := newFixture()
	d1 := f.store.addDept(f.orgID, "D1", nil)
	d2 := f.store.addDept(f.orgID, "D2", &d1)
	d3 := f.store.addDept(f.orgID, "D3", &d2)

	res, err := f.svc.EditDepartments(context.Background(), f.orgID, []uuid.UUID{d1}, department.Patch{
		Parent: department.SetParent(&d3),
	}, f.actor)
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, []ItemFailure{{ID: d1, Error: MsgDescendantParent}}, res.Failed)
	require.Nil(t, f.store.dept(d1).ParentID())

	res, err = f.svc.EditDepartments(context.Background(), f.orgID, []uuid.UUID{d3}, department.Patch{
		Parent: department.SetParent(&d1),
	}, f.actor)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	require.Equal(t, d1, *f.store.dept(d3).ParentID())
}

func TestEditDepartments_CrossItemCycleSeesEarlierWrite(t *testing.T) {
	f := newFixture()
	target := f.store.addDept(f.orgID, "Target", nil)
	a := f.store.addDept(f.orgID, "A", nil)
	b := f.store.addDept(f.orgID, "B", &target)

	// Moving a under target succeeds; b is already under target, so it is re-written in place.
	res, err := f.svc.EditDepartments(context.Background(), f.orgID, []uuid.UUID{a, b}, department.Patch{
		Parent: department.SetParent(&target),
	}, f.actor)
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)

	// target cannot move under a now that a is its child.
	res, err = f.svc.EditDepartments(context.Background(), f.orgID, []uuid.UUID{target}, department.Patch{
		Parent: department.SetParent(&a),
	}, f.actor)
	require.NoError(t, err)
	require.Equal(t, MsgDescendantParent, res.Failed[0].Error)
}

func TestEditDepartments_NilParentMovesToRoot(t *testing.T) {
	f := newFixture()
	root := f.store.addDept(f.orgID, "Root", nil)
	child := f.store.addDept(f.orgID, "Child", &root)
	missing := uuid.New()

	res, err := f.svc.EditDepartments(context.Background(), f.orgID, []uuid.UUID{child, missing}, department.Patch{
		Parent: department.SetParent(nil),
	}, f.actor)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	require.True(t, f.store.dept(child).IsRoot())
	require.Equal(t, []ItemFailure{{ID: missing, Error: MsgDepartmentNotFound}}, res.Failed)
}

func TestEditDepartments_EmptyUpdatesAndMissingParent(t *testing.T) {
	f := newFixture()
	d := f.store.addDept(f.orgID, "Ops", nil)

	_, err := f.svc.EditDepartments(context.Background(), f.orgID, []uuid.UUID{d}, department.Patch{}, f.actor)
	require.True(t, IsBadBatch(err))

	missing := uuid.New()
	_, err = f.svc.EditDepartments(context.Background(), f.orgID, []uuid.UUID{d}, department.Patch{
		Parent: department.SetParent(&missing),
	}, f.actor)
	require.True(t, IsTargetNotFound(err))
}

func TestDeleteDepartments_CascadesWithWarnings(t *testing.T) {
	f := newFixture()
	root := f.store.addDept(f.orgID, "Engineering", nil)
	c1 := f.store.addDept(f.orgID, "Backend", &root)
	c2 := f.store.addDept(f.orgID, "Frontend", &root)
	var people []uuid.UUID
	for i, dept := range []uuid.UUID{root, c1, c1, c2, c2} {
		people = append(people, f.store.addPerson(f.orgID, dept, string(rune('A'+i))))
	}
	bystander := f.store.addPerson(f.orgID, f.store.addDept(f.orgID, "Sales", nil), "Z")

	res, err := f.svc.DeleteDepartments(context.Background(), f.orgID, []uuid.UUID{root}, f.actor)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 1, res.Count)
	require.Equal(t, []string{
		`Department "Engineering": also deleted 2 sub-department(s)`,
		`Department "Engineering": also deleted 5 person(s)`,
	}, res.Warnings)

	for _, id := range []uuid.UUID{root, c1, c2} {
		require.True(t, f.store.dept(id).IsDeleted())
	}
	for _, id := range people {
		require.True(t, f.store.person(id).IsDeleted())
	}
	require.False(t, f.store.person(bystander).IsDeleted())
	require.Len(t, f.notifier.events, 1)
	require.Equal(t, root, f.notifier.events[0].entity.ID)
}

func TestDeleteDepartments_WalksSubtreeOnce(t *testing.T) {
	f := newFixture()
	root := f.store.addDept(f.orgID, "Engineering", nil)
	mid := f.store.addDept(f.orgID, "Platform", &root)
	leaf := f.store.addDept(f.orgID, "Storage", &mid)
	f.store.addPerson(f.orgID, leaf, "A")
	f.store.addPerson(f.orgID, mid, "B")

	res, err := f.svc.DeleteDepartments(context.Background(), f.orgID, []uuid.UUID{root}, f.actor)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	require.Equal(t, []string{
		`Department "Engineering": also deleted 2 sub-department(s)`,
		`Department "Engineering": also deleted 2 person(s)`,
	}, res.Warnings)
	// one lookup per level: root, Platform, Storage
	require.Equal(t, 3, f.store.childLookups)
}

func TestDeleteDepartments_NoWarningsForLeaf(t *testing.T) {
	f := newFixture()
	leaf := f.store.addDept(f.orgID, "Leaf", nil)

	res, err := f.svc.DeleteDepartments(context.Background(), f.orgID, []uuid.UUID{leaf}, f.actor)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	require.Empty(t, res.Warnings)
}

func TestDeleteDepartments_Idempotent(t *testing.T) {
	f := newFixture()
	d := f.store.addDept(f.orgID, "Ops", nil)

	first, err := f.svc.DeleteDepartments(context.Background(), f.orgID, []uuid.UUID{d}, f.actor)
	require.NoError(t, err)
	require.Equal(t, 1, first.Count)

	second, err := f.svc.DeleteDepartments(context.Background(), f.orgID, []uuid.UUID{d}, f.actor)
	require.NoError(t, err)
	require.Zero(t, second.Count)
	require.Zero(t, second.FailedCount)
	require.Empty(t, second.Warnings)
	require.False(t, second.Success)
	require.Len(t, f.notifier.events, 1)
}

func TestDeleteDepartments_ChildInSameBatchIsSkippedAfterParent(t *testing.T) {
	f := newFixture()
	root := f.store.addDept(f.orgID, "Root", nil)
	child := f.store.addDept(f.orgID, "Child", &root)
	missing := uuid.New()

	res, err := f.svc.DeleteDepartments(context.Background(), f.orgID, []uuid.UUID{root, child, missing}, f.actor)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	require.Equal(t, []ItemFailure{{ID: missing, Error: MsgDepartmentNotFound}}, res.Failed)
	require.True(t, f.store.dept(child).IsDeleted())
}
