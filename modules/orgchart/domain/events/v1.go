package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TopicOrgChartChangedV1 = "orgchart.changed.v1"
	EventVersionV1         = 1
)

const (
	EntityDepartment = "department"
	EntityPerson     = "person"
)

const (
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// ChangeEventV1 is the payload enqueued on the outbox for every mutated entity.
type ChangeEventV1 struct {
	EventID         uuid.UUID       `json:"event_id"`
	EventVersion    int             `json:"event_version"`
	RequestID       string          `json:"request_id,omitempty"`
	OrganizationID  uuid.UUID       `json:"organization_id"`
	TransactionTime time.Time       `json:"transaction_time"`
	InitiatorID     uuid.UUID       `json:"initiator_id"`
	ChangeType      string          `json:"change_type"`
	EntityType      string          `json:"entity_type"`
	EntityID        uuid.UUID       `json:"entity_id"`
	NewValues       json.RawMessage `json:"new_values"`
}
