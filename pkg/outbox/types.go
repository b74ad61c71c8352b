package outbox

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Message is the unit stored in an outbox table.
type Message struct {
	OrganizationID uuid.UUID
	Topic          string
	EventID        uuid.UUID
	Payload        json.RawMessage
}

// Meta is the stable dispatch metadata (idempotency + ops).
type Meta struct {
	Table          pgx.Identifier
	OrganizationID uuid.UUID
	Topic          string
	EventID        uuid.UUID
	Sequence       int64
	Attempts       int
}

// DispatchedMessage is the unit delivered by Relay to Dispatcher.
type DispatchedMessage struct {
	Meta    Meta
	Payload json.RawMessage
}

// Claimed is a row locked by the relay for one dispatch attempt.
// Attempts already counts the current attempt.
type Claimed struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Topic          string
	Payload        []byte
	EventID        uuid.UUID
	Sequence       int64
	Attempts       int
	ClaimedAt      time.Time
}

func TableLabel(table pgx.Identifier) string {
	return strings.Join(table, ".")
}
