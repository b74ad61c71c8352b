package persistence

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// activeOnly scopes a query to one organization and hides soft-deleted rows.
// Every non-raw read goes through it.
func activeOnly(orgID uuid.UUID) sq.Sqlizer {
	return sq.And{
		inOrg(orgID),
		sq.Eq{"deleted_at": nil},
	}
}

func inOrg(orgID uuid.UUID) sq.Sqlizer {
	return sq.Expr("organization_id = ?", orgID)
}

func byID(id uuid.UUID) sq.Sqlizer {
	return sq.Expr("id = ?", id)
}

func anyOf(column string, ids []uuid.UUID) sq.Sqlizer {
	return sq.Expr(column+" = ANY(?)", pgtype.FlatArray[uuid.UUID](ids))
}
