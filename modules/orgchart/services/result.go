package services

import (
	"encoding/json"

	"github.com/google/uuid"
)

type ItemFailure struct {
	ID    uuid.UUID `json:"id"`
	Error string    `json:"error"`
}

// BulkResult is the aggregate outcome of one bulk call. Its JSON field names
// follow the operation: deletedCount/movedCount/updatedCount and
// people/departments.
type BulkResult[T any] struct {
	Success     bool
	Count       int
	Items       []T
	Failed      []ItemFailure
	FailedCount int
	Warnings    []string

	verb string
	noun string
}

func newBulkResult[T any](verb, noun string, withWarnings bool) BulkResult[T] {
	r := BulkResult[T]{
		Items:  []T{},
		Failed: []ItemFailure{},
		verb:   verb,
		noun:   noun,
	}
	if withWarnings {
		r.Warnings = []string{}
	}
	return r
}

func (r *BulkResult[T]) succeed(item T, warnings ...string) {
	r.Items = append(r.Items, item)
	r.Count = len(r.Items)
	r.Success = true
	if len(warnings) > 0 {
		r.Warnings = append(r.Warnings, warnings...)
	}
}

func (r *BulkResult[T]) fail(id uuid.UUID, message string) {
	r.Failed = append(r.Failed, ItemFailure{ID: id, Error: message})
	r.FailedCount = len(r.Failed)
}

func (r BulkResult[T]) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"success":     r.Success,
		"failed":      r.Failed,
		"failedCount": r.FailedCount,
	}
	out[r.verb+"Count"] = r.Count
	out[r.noun] = r.Items
	if r.Warnings != nil {
		out["warnings"] = r.Warnings
	}
	return json.Marshal(out)
}
