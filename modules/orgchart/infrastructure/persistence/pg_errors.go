package persistence

import (
	"errors"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrConflict             = errors.New("orgchart: unique constraint violated")
	ErrOrganizationNotFound = errors.New("orgchart: organization not found")
)

// mapError turns driver errors into the given not-found sentinel or
// ErrConflict and wraps everything else with op.
func mapError(err error, notFound error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign_key_violation
			return gerrors.Wrap(notFound, pgErr.ConstraintName)
		case "23505": // unique_violation
			return gerrors.Wrap(ErrConflict, pgErr.ConstraintName)
		}
	}
	return gerrors.Wrap(err, op)
}
