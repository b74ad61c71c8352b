package outbox

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/orgchart/pkg/repo"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Publisher interface {
	// Enqueue stores msg in the caller's transaction. Re-enqueueing the same
	// EventID returns the original sequence.
	Enqueue(ctx context.Context, tx repo.Tx, msg Message) (sequence int64, err error)
}

type publisher struct {
	table pgx.Identifier
	m     *metrics
}

func NewPublisher(table pgx.Identifier) (Publisher, error) {
	if len(table) == 0 {
		return nil, invalidConfig("table is required")
	}
	return &publisher{table: table, m: getMetrics()}, nil
}

func (p *publisher) Enqueue(ctx context.Context, tx repo.Tx, msg Message) (int64, error) {
	if msg.OrganizationID == uuid.Nil {
		return 0, invalidConfig("organization_id is required")
	}
	if msg.EventID == uuid.Nil {
		return 0, invalidConfig("event_id is required")
	}
	if msg.Topic == "" {
		return 0, invalidConfig("topic is required")
	}

	q, args, err := psql.Insert(p.table.Sanitize()).
		Columns("organization_id", "topic", "payload", "event_id", "available_at").
		Values(msg.OrganizationID, msg.Topic, []byte(msg.Payload), msg.EventID, sq.Expr("now()")).
		Suffix("ON CONFLICT (event_id) DO UPDATE SET event_id = EXCLUDED.event_id RETURNING sequence").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("outbox enqueue build: %w", err)
	}

	var sequence int64
	if err := tx.QueryRow(ctx, q, args...).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("outbox enqueue: %w", err)
	}

	p.m.enqueueTotal.WithLabelValues(TableLabel(p.table), msg.Topic).Inc()
	return sequence, nil
}
