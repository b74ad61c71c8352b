package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/iota-uz/orgchart/modules/orgchart/domain/department"
	"github.com/iota-uz/orgchart/modules/orgchart/domain/person"
	"github.com/iota-uz/orgchart/pkg/authz"
)

// TreeService serves the read side of the hierarchy.
type TreeService struct {
	departments department.Repository
	people      person.Repository
	gate        PermissionGate
}

func NewTreeService(departments department.Repository, people person.Repository, gate PermissionGate) *TreeService {
	return &TreeService{departments: departments, people: people, gate: gate}
}

func (s *TreeService) ListDepartments(ctx context.Context, orgID, actor uuid.UUID) ([]department.Department, error) {
	if err := s.authorize(ctx, orgID, actor); err != nil {
		return nil, err
	}
	out, err := s.departments.ListActive(ctx, orgID)
	if err != nil {
		return nil, internalError(err)
	}
	return out, nil
}

func (s *TreeService) ListPeople(ctx context.Context, orgID, departmentID, actor uuid.UUID) ([]person.Person, error) {
	if err := s.authorize(ctx, orgID, actor); err != nil {
		return nil, err
	}
	if err := s.requireActive(ctx, orgID, departmentID); err != nil {
		return nil, err
	}
	out, err := s.people.ListActiveByDepartment(ctx, orgID, departmentID)
	if err != nil {
		return nil, internalError(err)
	}
	return out, nil
}

// Descendants returns the active departments below departmentID in
// breadth-first order, the same set a cascade delete would reach.
func (s *TreeService) Descendants(ctx context.Context, orgID, departmentID uuid.UUID) ([]uuid.UUID, error) {
	if err := s.requireActive(ctx, orgID, departmentID); err != nil {
		return nil, err
	}
	subtree, err := collectSubtree(ctx, s.departments, orgID, departmentID)
	if err != nil {
		return nil, internalError(err)
	}
	return subtree[1:], nil
}

// VisibleDescendants is Descendants behind a viewer check.
func (s *TreeService) VisibleDescendants(ctx context.Context, orgID, departmentID, actor uuid.UUID) ([]uuid.UUID, error) {
	if err := s.authorize(ctx, orgID, actor); err != nil {
		return nil, err
	}
	return s.Descendants(ctx, orgID, departmentID)
}

func (s *TreeService) authorize(ctx context.Context, orgID, actor uuid.UUID) error {
	err := s.gate.RequireOrgPermission(ctx, orgID, actor, authz.RoleViewer)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, authz.ErrPermissionDenied):
		return permissionDenied(err)
	default:
		return internalError(err)
	}
}

func (s *TreeService) requireActive(ctx context.Context, orgID, departmentID uuid.UUID) error {
	_, err := s.departments.GetActive(ctx, orgID, departmentID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, department.ErrNotFound):
		return targetNotFound(MsgDepartmentNotFound, err)
	default:
		return internalError(err)
	}
}
