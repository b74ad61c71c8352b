package department

import "github.com/google/uuid"

// Patch is a partial update. Parent set to a pointer holding nil moves the
// department to the root of the forest.
type Patch struct {
	Parent **uuid.UUID
}

func (p Patch) IsEmpty() bool {
	return p.Parent == nil
}

func SetParent(parentID *uuid.UUID) **uuid.UUID {
	return &parentID
}
