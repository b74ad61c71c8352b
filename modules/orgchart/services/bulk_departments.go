package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/iota-uz/orgchart/modules/orgchart/domain/department"
)

func (s *BulkService) DeleteDepartments(ctx context.Context, orgID uuid.UUID, departmentIDs []uuid.UUID, actor uuid.UUID) (BulkResult[department.Department], error) {
	ctx, call, err := s.begin(ctx, opDeleteDepartments, orgID, actor, departmentIDs)
	if err != nil {
		return BulkResult[department.Department]{}, err
	}

	result := newBulkResult[department.Department]("deleted", "departments", true)
	return run(ctx, s, call, result, func(ctx context.Context, id uuid.UUID) (*applied[department.Department], error) {
		current, err := s.departments.Get(ctx, orgID, id)
		if errors.Is(err, department.ErrNotFound) {
			return nil, conflict(MsgDepartmentNotFound)
		}
		if err != nil {
			return nil, err
		}
		if current.IsDeleted() {
			return nil, nil
		}

		at := s.now()
		cascade, err := cascadeSoftDelete(ctx, s.departments, s.people, orgID, id, at)
		if err != nil {
			return nil, err
		}
		deleted := current.SoftDeleted(at)
		if err := s.notifier.NotifyDeleted(ctx, orgID, DepartmentEntity(deleted), actor); err != nil {
			return nil, err
		}
		return &applied[department.Department]{
			item:     deleted,
			warnings: cascadeWarnings(current.Name(), cascade.SubDepartments(), int(cascade.PeopleAffected)),
		}, nil
	})
}

func cascadeWarnings(name string, subDepartments, people int) []string {
	var out []string
	if subDepartments > 0 {
		out = append(out, fmt.Sprintf("Department %q: also deleted %d sub-department(s)", name, subDepartments))
	}
	if people > 0 {
		out = append(out, fmt.Sprintf("Department %q: also deleted %d person(s)", name, people))
	}
	return out
}

// EditDepartments re-parents every department under updates.Parent, or to the
// root when the parent is explicitly nil.
func (s *BulkService) EditDepartments(ctx context.Context, orgID uuid.UUID, departmentIDs []uuid.UUID, updates department.Patch, actor uuid.UUID) (BulkResult[department.Department], error) {
	ctx, call, err := s.begin(ctx, opEditDepartments, orgID, actor, departmentIDs)
	if err != nil {
		return BulkResult[department.Department]{}, err
	}
	if updates.IsEmpty() {
		return BulkResult[department.Department]{}, call.abort(badBatch("No updates provided"))
	}

	newParent := *updates.Parent
	if newParent != nil {
		for _, id := range departmentIDs {
			if id == *newParent {
				return BulkResult[department.Department]{}, call.abort(
					newServiceError(http.StatusBadRequest, CodeSelfParent, MsgSelfParent, nil))
			}
		}
		if err := s.resolveTarget(ctx, orgID, *newParent); err != nil {
			return BulkResult[department.Department]{}, call.abort(err)
		}
	}

	result := newBulkResult[department.Department]("updated", "departments", false)
	return run(ctx, s, call, result, func(ctx context.Context, id uuid.UUID) (*applied[department.Department], error) {
		if _, err := s.departments.GetActive(ctx, orgID, id); err != nil {
			if errors.Is(err, department.ErrNotFound) {
				return nil, conflict(MsgDepartmentNotFound)
			}
			return nil, err
		}
		if newParent != nil {
			if *newParent == id {
				return nil, conflict(MsgSelfParent)
			}
			cycle, err := IsDescendant(ctx, s.departments, orgID, id, *newParent)
			if err != nil {
				return nil, err
			}
			if cycle {
				return nil, conflict(MsgDescendantParent)
			}
		}

		updated, err := s.departments.UpdateParent(ctx, orgID, id, newParent, s.now())
		if err != nil {
			return nil, err
		}
		if err := s.notifier.NotifyUpdated(ctx, orgID, DepartmentEntity(updated), actor); err != nil {
			return nil, err
		}
		return &applied[department.Department]{item: updated}, nil
	})
}
