package department

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Department struct {
	id             uuid.UUID
	organizationID uuid.UUID
	parentID       *uuid.UUID
	name           string
	description    *string
	sortOrder      int
	deletedAt      *time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

func Hydrate(
	id uuid.UUID,
	organizationID uuid.UUID,
	parentID *uuid.UUID,
	name string,
	description *string,
	sortOrder int,
	deletedAt *time.Time,
	createdAt time.Time,
	updatedAt time.Time,
) Department {
	return Department{
		id:             id,
		organizationID: organizationID,
		parentID:       parentID,
		name:           strings.TrimSpace(name),
		description:    description,
		sortOrder:      sortOrder,
		deletedAt:      deletedAt,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

func (d Department) ID() uuid.UUID             { return d.id }
func (d Department) OrganizationID() uuid.UUID { return d.organizationID }
func (d Department) ParentID() *uuid.UUID      { return d.parentID }
func (d Department) Name() string              { return d.name }
func (d Department) Description() *string      { return d.description }
func (d Department) SortOrder() int            { return d.sortOrder }
func (d Department) DeletedAt() *time.Time     { return d.deletedAt }
func (d Department) CreatedAt() time.Time      { return d.createdAt }
func (d Department) UpdatedAt() time.Time      { return d.updatedAt }
func (d Department) IsDeleted() bool           { return d.deletedAt != nil }
func (d Department) IsRoot() bool              { return d.parentID == nil }

// WithParent returns a copy re-parented under parentID (nil for root).
func (d Department) WithParent(parentID *uuid.UUID, at time.Time) Department {
	d.parentID = parentID
	d.updatedAt = at
	return d
}

// SoftDeleted returns a copy marked deleted at the given instant.
func (d Department) SoftDeleted(at time.Time) Department {
	d.deletedAt = &at
	d.updatedAt = at
	return d
}

type Snapshot struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	ParentID       *uuid.UUID `json:"parentId"`
	Name           string     `json:"name"`
	Description    *string    `json:"description"`
	SortOrder      int        `json:"sortOrder"`
	DeletedAt      *time.Time `json:"deletedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (d Department) Snapshot() Snapshot {
	return Snapshot{
		ID:             d.id,
		OrganizationID: d.organizationID,
		ParentID:       d.parentID,
		Name:           d.name,
		Description:    d.description,
		SortOrder:      d.sortOrder,
		DeletedAt:      d.deletedAt,
		CreatedAt:      d.createdAt,
		UpdatedAt:      d.updatedAt,
	}
}

func (d Department) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Snapshot())
}
