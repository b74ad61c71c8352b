package person

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("person not found")

type Repository interface {
	GetActive(ctx context.Context, orgID, id uuid.UUID) (Person, error)
	ListActiveByDepartment(ctx context.Context, orgID, departmentID uuid.UUID) ([]Person, error)
	SoftDelete(ctx context.Context, orgID, id uuid.UUID, at time.Time) (Person, error)
	SoftDeleteByDepartments(ctx context.Context, orgID uuid.UUID, deptIDs []uuid.UUID, at time.Time) (int64, error)
	Update(ctx context.Context, orgID, id uuid.UUID, patch Patch, at time.Time) (Person, error)
}
