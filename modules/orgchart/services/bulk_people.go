package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/iota-uz/orgchart/modules/orgchart/domain/department"
	"github.com/iota-uz/orgchart/modules/orgchart/domain/person"
)

// PeopleUpdates is the shared edit applied by EditPeople. Title set to a
// pointer holding nil clears the title.
type PeopleUpdates struct {
	Title        **string
	DepartmentID *uuid.UUID
}

func (u PeopleUpdates) patch() person.Patch {
	return person.Patch{Title: u.Title, DepartmentID: u.DepartmentID}
}

func (s *BulkService) DeletePeople(ctx context.Context, orgID uuid.UUID, personIDs []uuid.UUID, actor uuid.UUID) (BulkResult[person.Person], error) {
	ctx, call, err := s.begin(ctx, opDeletePeople, orgID, actor, personIDs)
	if err != nil {
		return BulkResult[person.Person]{}, err
	}

	result := newBulkResult[person.Person]("deleted", "people", false)
	return run(ctx, s, call, result, func(ctx context.Context, id uuid.UUID) (*applied[person.Person], error) {
		if _, err := s.activePerson(ctx, orgID, id); err != nil {
			return nil, err
		}
		deleted, err := s.people.SoftDelete(ctx, orgID, id, s.now())
		if err != nil {
			return nil, err
		}
		if err := s.notifier.NotifyDeleted(ctx, orgID, PersonEntity(deleted), actor); err != nil {
			return nil, err
		}
		return &applied[person.Person]{item: deleted}, nil
	})
}

func (s *BulkService) MovePeople(ctx context.Context, orgID uuid.UUID, personIDs []uuid.UUID, targetDepartmentID uuid.UUID, actor uuid.UUID) (BulkResult[person.Person], error) {
	ctx, call, err := s.begin(ctx, opMovePeople, orgID, actor, personIDs)
	if err != nil {
		return BulkResult[person.Person]{}, err
	}
	if err := s.resolveTarget(ctx, orgID, targetDepartmentID); err != nil {
		return BulkResult[person.Person]{}, call.abort(err)
	}

	result := newBulkResult[person.Person]("moved", "people", false)
	return run(ctx, s, call, result, func(ctx context.Context, id uuid.UUID) (*applied[person.Person], error) {
		current, err := s.activePerson(ctx, orgID, id)
		if err != nil {
			return nil, err
		}
		if current.DepartmentID() == targetDepartmentID {
			return nil, conflict(MsgAlreadyInTarget)
		}
		moved, err := s.people.Update(ctx, orgID, id, person.Patch{DepartmentID: &targetDepartmentID}, s.now())
		if err != nil {
			return nil, err
		}
		if err := s.notifier.NotifyUpdated(ctx, orgID, PersonEntity(moved), actor); err != nil {
			return nil, err
		}
		return &applied[person.Person]{item: moved}, nil
	})
}

// EditPeople applies the same partial update to every person. A person that
// already sits in updates.DepartmentID is edited normally.
func (s *BulkService) EditPeople(ctx context.Context, orgID uuid.UUID, personIDs []uuid.UUID, updates PeopleUpdates, actor uuid.UUID) (BulkResult[person.Person], error) {
	ctx, call, err := s.begin(ctx, opEditPeople, orgID, actor, personIDs)
	if err != nil {
		return BulkResult[person.Person]{}, err
	}
	patch := updates.patch()
	if patch.IsEmpty() {
		return BulkResult[person.Person]{}, call.abort(badBatch("No updates provided"))
	}
	if patch.DepartmentID != nil {
		if err := s.resolveTarget(ctx, orgID, *patch.DepartmentID); err != nil {
			return BulkResult[person.Person]{}, call.abort(err)
		}
	}

	result := newBulkResult[person.Person]("updated", "people", false)
	return run(ctx, s, call, result, func(ctx context.Context, id uuid.UUID) (*applied[person.Person], error) {
		if _, err := s.activePerson(ctx, orgID, id); err != nil {
			return nil, err
		}
		updated, err := s.people.Update(ctx, orgID, id, patch, s.now())
		if err != nil {
			return nil, err
		}
		if err := s.notifier.NotifyUpdated(ctx, orgID, PersonEntity(updated), actor); err != nil {
			return nil, err
		}
		return &applied[person.Person]{item: updated}, nil
	})
}

func (s *BulkService) activePerson(ctx context.Context, orgID, id uuid.UUID) (person.Person, error) {
	p, err := s.people.GetActive(ctx, orgID, id)
	if errors.Is(err, person.ErrNotFound) {
		return person.Person{}, conflict(MsgPersonNotFound)
	}
	return p, err
}

// resolveTarget fails the whole call when the batch-level target department
// is not an active department of the organization.
func (s *BulkService) resolveTarget(ctx context.Context, orgID, departmentID uuid.UUID) error {
	_, err := s.departments.GetActive(ctx, orgID, departmentID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, department.ErrNotFound):
		return targetNotFound("Target department not found in this organization", err)
	default:
		return internalError(err)
	}
}
