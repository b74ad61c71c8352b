package persistence

import (
	"context"

	gerrors "github.com/go-faster/errors"

	"github.com/iota-uz/orgchart/modules/orgchart/services"
	"github.com/iota-uz/orgchart/pkg/composables"
)

const auditLogTable = "orgchart_audit_log"

type AuditLogRepository struct{}

func NewAuditLogRepository() *AuditLogRepository {
	return &AuditLogRepository{}
}

func (r *AuditLogRepository) Append(ctx context.Context, rec services.AuditRecord) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	q, args, err := psql.Insert(auditLogTable).
		Columns("id", "organization_id", "actor_id", "entity_type", "entity_id", "change_type", "payload", "created_at").
		Values(rec.ID, rec.OrganizationID, rec.ActorID, rec.EntityType, rec.EntityID, rec.ChangeType, []byte(rec.Payload), rec.CreatedAt).
		ToSql()
	if err != nil {
		return gerrors.Wrap(err, "build audit insert")
	}
	if _, err := tx.Exec(ctx, q, args...); err != nil {
		return gerrors.Wrap(err, "insert audit log")
	}
	return nil
}
