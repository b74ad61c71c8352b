package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/orgchart/modules/orgchart/domain/department"
	"github.com/iota-uz/orgchart/modules/orgchart/domain/person"
)

// CascadeResult counts the rows one cascade soft-deleted, the root included.
type CascadeResult struct {
	DepartmentsAffected int64
	PeopleAffected      int64
}

// SubDepartments is the number of descendants deleted along with the root.
func (r CascadeResult) SubDepartments() int {
	if r.DepartmentsAffected == 0 {
		return 0
	}
	return int(r.DepartmentsAffected - 1)
}

// collectSubtree returns rootID followed by every active descendant, one
// breadth-first frontier at a time.
func collectSubtree(ctx context.Context, repo department.Repository, orgID, rootID uuid.UUID) ([]uuid.UUID, error) {
	all := []uuid.UUID{rootID}
	seen := map[uuid.UUID]struct{}{rootID: {}}
	frontier := []uuid.UUID{rootID}

	for len(frontier) > 0 {
		children, err := repo.ListActiveChildren(ctx, orgID, frontier)
		if err != nil {
			return nil, err
		}
		next := make([]uuid.UUID, 0, len(children))
		for _, id := range children {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			next = append(next, id)
		}
		all = append(all, next...)
		frontier = next
	}
	return all, nil
}

// cascadeSoftDelete soft-deletes the subtree rooted at departmentID and every
// active person inside it, walking the tree once. Callers skip departments
// that are already deleted.
func cascadeSoftDelete(
	ctx context.Context,
	departments department.Repository,
	people person.Repository,
	orgID, departmentID uuid.UUID,
	at time.Time,
) (CascadeResult, error) {
	ids, err := collectSubtree(ctx, departments, orgID, departmentID)
	if err != nil {
		return CascadeResult{}, err
	}
	deptCount, err := departments.SoftDeleteMany(ctx, orgID, ids, at)
	if err != nil {
		return CascadeResult{}, err
	}
	peopleCount, err := people.SoftDeleteByDepartments(ctx, orgID, ids, at)
	if err != nil {
		return CascadeResult{}, err
	}
	return CascadeResult{
		DepartmentsAffected: deptCount,
		PeopleAffected:      peopleCount,
	}, nil
}
