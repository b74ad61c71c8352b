package person

import "github.com/google/uuid"

// Patch is a partial update. A nil field is left unchanged; Title set to a
// pointer holding nil clears the stored title.
type Patch struct {
	Title        **string
	DepartmentID *uuid.UUID
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.DepartmentID == nil
}

// SetTitle builds the Title field of a Patch; nil clears the title.
func SetTitle(title *string) **string {
	return &title
}
