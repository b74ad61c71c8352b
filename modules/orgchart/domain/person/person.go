package person

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Person struct {
	id             uuid.UUID
	departmentID   uuid.UUID
	organizationID uuid.UUID
	name           string
	title          *string
	email          *string
	phone          *string
	isStarred      bool
	deletedAt      *time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

func Hydrate(
	id uuid.UUID,
	departmentID uuid.UUID,
	organizationID uuid.UUID,
	name string,
	title *string,
	email *string,
	phone *string,
	isStarred bool,
	deletedAt *time.Time,
	createdAt time.Time,
	updatedAt time.Time,
) Person {
	return Person{
		id:             id,
		departmentID:   departmentID,
		organizationID: organizationID,
		name:           strings.TrimSpace(name),
		title:          title,
		email:          email,
		phone:          phone,
		isStarred:      isStarred,
		deletedAt:      deletedAt,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

func (p Person) ID() uuid.UUID             { return p.id }
func (p Person) DepartmentID() uuid.UUID   { return p.departmentID }
func (p Person) OrganizationID() uuid.UUID { return p.organizationID }
func (p Person) Name() string              { return p.name }
func (p Person) Title() *string            { return p.title }
func (p Person) Email() *string            { return p.email }
func (p Person) Phone() *string            { return p.phone }
func (p Person) IsStarred() bool           { return p.isStarred }
func (p Person) DeletedAt() *time.Time     { return p.deletedAt }
func (p Person) CreatedAt() time.Time      { return p.createdAt }
func (p Person) UpdatedAt() time.Time      { return p.updatedAt }
func (p Person) IsDeleted() bool           { return p.deletedAt != nil }

// Apply returns a copy with the patch's present fields written.
func (p Person) Apply(patch Patch, at time.Time) Person {
	if patch.Title != nil {
		p.title = *patch.Title
	}
	if patch.DepartmentID != nil {
		p.departmentID = *patch.DepartmentID
	}
	p.updatedAt = at
	return p
}

func (p Person) SoftDeleted(at time.Time) Person {
	p.deletedAt = &at
	p.updatedAt = at
	return p
}

type Snapshot struct {
	ID             uuid.UUID  `json:"id"`
	DepartmentID   uuid.UUID  `json:"departmentId"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	Name           string     `json:"name"`
	Title          *string    `json:"title"`
	Email          *string    `json:"email"`
	Phone          *string    `json:"phone"`
	IsStarred      bool       `json:"isStarred"`
	DeletedAt      *time.Time `json:"deletedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (p Person) Snapshot() Snapshot {
	return Snapshot{
		ID:             p.id,
		DepartmentID:   p.departmentID,
		OrganizationID: p.organizationID,
		Name:           p.name,
		Title:          p.title,
		Email:          p.email,
		Phone:          p.phone,
		IsStarred:      p.isStarred,
		DeletedAt:      p.deletedAt,
		CreatedAt:      p.createdAt,
		UpdatedAt:      p.updatedAt,
	}
}

func (p Person) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Snapshot())
}
