package department

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("department not found")

// Repository reads are scoped to one organization. Methods named Active skip
// soft-deleted rows; Get and ParentOf do not.
type Repository interface {
	GetActive(ctx context.Context, orgID, id uuid.UUID) (Department, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (Department, error)
	// ParentOf returns the raw parent link. ok is false when the row does not exist.
	ParentOf(ctx context.Context, orgID, id uuid.UUID) (parentID *uuid.UUID, ok bool, err error)
	ListActiveChildren(ctx context.Context, orgID uuid.UUID, parentIDs []uuid.UUID) ([]uuid.UUID, error)
	ListActive(ctx context.Context, orgID uuid.UUID) ([]Department, error)
	SoftDeleteMany(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID, at time.Time) (int64, error)
	UpdateParent(ctx context.Context, orgID, id uuid.UUID, parentID *uuid.UUID, at time.Time) (Department, error)
}
