package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// maxAncestorWalk bounds the parent-chain walk. No real tree is this deep.
const maxAncestorWalk = 10_000

var ErrAncestorWalkExceeded = errors.New("orgchart: ancestor walk exceeded depth limit")

type ParentLookup interface {
	ParentOf(ctx context.Context, orgID, id uuid.UUID) (*uuid.UUID, bool, error)
}

// IsDescendant reports whether ancestorID lies on the parent chain of startID,
// startID itself included. The walk follows raw links, so soft-deleted
// departments are passed through. A repeated node or a missing row ends the
// walk with false.
func IsDescendant(ctx context.Context, lookup ParentLookup, orgID, ancestorID, startID uuid.UUID) (bool, error) {
	visited := make(map[uuid.UUID]struct{}, 16)
	current := startID
	for i := 0; i < maxAncestorWalk; i++ {
		if current == ancestorID {
			return true, nil
		}
		if _, seen := visited[current]; seen {
			return false, nil
		}
		visited[current] = struct{}{}

		parent, ok, err := lookup.ParentOf(ctx, orgID, current)
		if err != nil {
			return false, err
		}
		if !ok || parent == nil {
			return false, nil
		}
		current = *parent
	}
	return false, ErrAncestorWalkExceeded
}

// ParentMap is an in-memory adjacency view (child -> parent) usable as a
// ParentLookup for a single organization.
type ParentMap map[uuid.UUID]*uuid.UUID

func (m ParentMap) ParentOf(_ context.Context, _ uuid.UUID, id uuid.UUID) (*uuid.UUID, bool, error) {
	parent, ok := m[id]
	return parent, ok, nil
}
