package outbox

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DB is satisfied by *pgxpool.Pool.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore implements Store on a single postgres outbox table.
type PgStore struct {
	db    DB
	table string
}

func NewPgStore(db DB, table pgx.Identifier) (*PgStore, error) {
	if db == nil {
		return nil, invalidConfig("db is required")
	}
	if len(table) == 0 {
		return nil, invalidConfig("table is required")
	}
	return &PgStore{db: db, table: table.Sanitize()}, nil
}

func (s *PgStore) Claim(ctx context.Context, now, lockCutoff time.Time, maxAttempts, limit int) (_ []Claimed, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	q, args, err := psql.Select("id", "organization_id", "topic", "payload", "event_id", "sequence", "attempts").
		From(s.table).
		Where(sq.Eq{"published_at": nil}).
		Where(sq.LtOrEq{"available_at": now}).
		Where(sq.Lt{"attempts": maxAttempts}).
		Where(sq.Or{sq.Eq{"locked_at": nil}, sq.Lt{"locked_at": lockCutoff}}).
		OrderBy("available_at", "sequence").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("outbox claim build: %w", err)
	}
	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("outbox claim select: %w", err)
	}

	var items []Claimed
	var ids []uuid.UUID
	for rows.Next() {
		var c Claimed
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.Topic, &c.Payload, &c.EventID, &c.Sequence, &c.Attempts); err != nil {
			rows.Close()
			return nil, fmt.Errorf("outbox claim scan: %w", err)
		}
		c.Attempts++
		c.ClaimedAt = now
		items = append(items, c)
		ids = append(ids, c.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox claim rows: %w", err)
	}

	if len(ids) > 0 {
		uq, uargs, err := psql.Update(s.table).
			Set("locked_at", now).
			Set("attempts", sq.Expr("attempts + 1")).
			Where(sq.Expr("id = ANY(?)", pgtype.FlatArray[uuid.UUID](ids))).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("outbox claim build update: %w", err)
		}
		if _, err := tx.Exec(ctx, uq, uargs...); err != nil {
			return nil, fmt.Errorf("outbox claim update: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *PgStore) exec(ctx context.Context, op string, b sq.UpdateBuilder) error {
	q, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("outbox %s build: %w", op, err)
	}
	if _, err := s.db.Exec(ctx, q, args...); err != nil {
		return fmt.Errorf("outbox %s: %w", op, err)
	}
	return nil
}

func (s *PgStore) pending(id uuid.UUID) sq.UpdateBuilder {
	return psql.Update(s.table).Where(sq.Expr("id = ?", id)).Where(sq.Eq{"published_at": nil})
}

func (s *PgStore) Ack(ctx context.Context, id uuid.UUID) error {
	return s.exec(ctx, "ack", s.pending(id).
		Set("published_at", sq.Expr("now()")).
		Set("locked_at", nil).
		Set("last_error", nil))
}

func (s *PgStore) Nack(ctx context.Context, id uuid.UUID, lastError string, nextAvailable time.Time) error {
	return s.exec(ctx, "nack", s.pending(id).
		Set("locked_at", nil).
		Set("last_error", lastError).
		Set("available_at", nextAvailable))
}

// Dead leaves the row unpublished with attempts at the ceiling, so Claim
// never picks it up again.
func (s *PgStore) Dead(ctx context.Context, id uuid.UUID, lastError string) error {
	return s.exec(ctx, "dead", s.pending(id).
		Set("locked_at", nil).
		Set("last_error", lastError).
		Set("available_at", sq.Expr("now()")))
}

func (s *PgStore) Depth(ctx context.Context) (pending, locked int64, err error) {
	q, args, err := psql.Select(
		"count(*)",
		"count(*) FILTER (WHERE locked_at IS NOT NULL)",
	).From(s.table).Where(sq.Eq{"published_at": nil}).ToSql()
	if err != nil {
		return 0, 0, fmt.Errorf("outbox depth build: %w", err)
	}
	if err := s.db.QueryRow(ctx, q, args...).Scan(&pending, &locked); err != nil {
		return 0, 0, fmt.Errorf("outbox depth: %w", err)
	}
	return pending, locked, nil
}

func (s *PgStore) Purge(ctx context.Context, publishedBefore time.Time) (int64, error) {
	q, args, err := psql.Delete(s.table).
		Where(sq.NotEq{"published_at": nil}).
		Where(sq.Lt{"published_at": publishedBefore}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("outbox purge build: %w", err)
	}
	tag, err := s.db.Exec(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("outbox purge: %w", err)
	}
	return tag.RowsAffected(), nil
}
