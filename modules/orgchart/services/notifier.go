package services

import (
	"context"
	"encoding/json"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/iota-uz/orgchart/modules/orgchart/domain/department"
	"github.com/iota-uz/orgchart/modules/orgchart/domain/events"
	"github.com/iota-uz/orgchart/modules/orgchart/domain/person"
	"github.com/iota-uz/orgchart/pkg/composables"
	"github.com/iota-uz/orgchart/pkg/outbox"
)

// Entity is the mutated row handed to a ChangeNotifier.
type Entity struct {
	Type  string
	ID    uuid.UUID
	Value any
}

func DepartmentEntity(d department.Department) Entity {
	return Entity{Type: events.EntityDepartment, ID: d.ID(), Value: d}
}

func PersonEntity(p person.Person) Entity {
	return Entity{Type: events.EntityPerson, ID: p.ID(), Value: p}
}

// ChangeNotifier runs once per mutated item, inside that item's savepoint.
// A returned error fails the item and undoes its write.
type ChangeNotifier interface {
	NotifyDeleted(ctx context.Context, orgID uuid.UUID, entity Entity, actor uuid.UUID) error
	NotifyUpdated(ctx context.Context, orgID uuid.UUID, entity Entity, actor uuid.UUID) error
}

type AuditRecord struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	ActorID        uuid.UUID
	EntityType     string
	EntityID       uuid.UUID
	ChangeType     string
	Payload        json.RawMessage
	CreatedAt      time.Time
}

type AuditLogWriter interface {
	Append(ctx context.Context, rec AuditRecord) error
}

// AuditOutboxNotifier appends an audit row and enqueues a ChangeEventV1 in
// the transaction carried by ctx.
type AuditOutboxNotifier struct {
	audit     AuditLogWriter
	publisher outbox.Publisher
	now       func() time.Time
}

func NewAuditOutboxNotifier(audit AuditLogWriter, publisher outbox.Publisher) *AuditOutboxNotifier {
	return &AuditOutboxNotifier{
		audit:     audit,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (n *AuditOutboxNotifier) NotifyDeleted(ctx context.Context, orgID uuid.UUID, entity Entity, actor uuid.UUID) error {
	return n.notify(ctx, orgID, entity, actor, events.ChangeDeleted)
}

func (n *AuditOutboxNotifier) NotifyUpdated(ctx context.Context, orgID uuid.UUID, entity Entity, actor uuid.UUID) error {
	return n.notify(ctx, orgID, entity, actor, events.ChangeUpdated)
}

func (n *AuditOutboxNotifier) notify(ctx context.Context, orgID uuid.UUID, entity Entity, actor uuid.UUID, change string) error {
	snapshot, err := json.Marshal(entity.Value)
	if err != nil {
		return gerrors.Wrap(err, "marshal entity")
	}
	at := n.now()

	if err := n.audit.Append(ctx, AuditRecord{
		ID:             uuid.New(),
		OrganizationID: orgID,
		ActorID:        actor,
		EntityType:     entity.Type,
		EntityID:       entity.ID,
		ChangeType:     change,
		Payload:        snapshot,
		CreatedAt:      at,
	}); err != nil {
		return gerrors.Wrap(err, "append audit log")
	}

	requestID, _ := composables.UseRequestID(ctx)
	evt := events.ChangeEventV1{
		EventID:         uuid.New(),
		EventVersion:    events.EventVersionV1,
		RequestID:       requestID,
		OrganizationID:  orgID,
		TransactionTime: at,
		InitiatorID:     actor,
		ChangeType:      change,
		EntityType:      entity.Type,
		EntityID:        entity.ID,
		NewValues:       snapshot,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return gerrors.Wrap(err, "marshal change event")
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := n.publisher.Enqueue(ctx, tx, outbox.Message{
		OrganizationID: orgID,
		Topic:          events.TopicOrgChartChangedV1,
		EventID:        evt.EventID,
		Payload:        payload,
	}); err != nil {
		return gerrors.Wrap(err, "enqueue change event")
	}
	return nil
}
