package persistence

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/orgchart/modules/orgchart/domain/person"
	"github.com/iota-uz/orgchart/pkg/composables"
)

const peopleTable = "people"

var personColumns = []string{
	"id",
	"department_id",
	"organization_id",
	"name",
	"title",
	"email",
	"phone",
	"is_starred",
	"deleted_at",
	"created_at",
	"updated_at",
}

type PersonRepository struct{}

func NewPersonRepository() person.Repository {
	return &PersonRepository{}
}

func (r *PersonRepository) GetActive(ctx context.Context, orgID, id uuid.UUID) (person.Person, error) {
	return r.getOne(ctx, psql.Select(personColumns...).
		From(peopleTable).
		Where(byID(id)).
		Where(activeOnly(orgID)))
}

func (r *PersonRepository) ListActiveByDepartment(ctx context.Context, orgID, departmentID uuid.UUID) ([]person.Person, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	q, args, err := psql.Select(personColumns...).
		From(peopleTable).
		Where(activeOnly(orgID)).
		Where(sq.Expr("department_id = ?", departmentID)).
		OrderBy("is_starred DESC", "name ASC").
		ToSql()
	if err != nil {
		return nil, gerrors.Wrap(err, "build list query")
	}

	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, gerrors.Wrap(err, "list people")
	}
	defer rows.Close()

	out := make([]person.Person, 0, 16)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(err, "list people")
	}
	return out, nil
}

func (r *PersonRepository) SoftDelete(ctx context.Context, orgID, id uuid.UUID, at time.Time) (person.Person, error) {
	return r.getOne(ctx, psql.Update(peopleTable).
		Set("deleted_at", at).
		Set("updated_at", at).
		Where(byID(id)).
		Where(activeOnly(orgID)).
		Suffix("RETURNING "+joinColumns(personColumns)))
}

func (r *PersonRepository) SoftDeleteByDepartments(ctx context.Context, orgID uuid.UUID, deptIDs []uuid.UUID, at time.Time) (int64, error) {
	if len(deptIDs) == 0 {
		return 0, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	q, args, err := psql.Update(peopleTable).
		Set("deleted_at", at).
		Set("updated_at", at).
		Where(activeOnly(orgID)).
		Where(anyOf("department_id", deptIDs)).
		ToSql()
	if err != nil {
		return 0, gerrors.Wrap(err, "build soft delete")
	}

	tag, err := tx.Exec(ctx, q, args...)
	if err != nil {
		return 0, mapError(err, person.ErrNotFound, "soft delete people")
	}
	return tag.RowsAffected(), nil
}

// Update writes only the fields present in patch. An empty patch reads the
// current row back unchanged.
func (r *PersonRepository) Update(ctx context.Context, orgID, id uuid.UUID, patch person.Patch, at time.Time) (person.Person, error) {
	if patch.IsEmpty() {
		return r.GetActive(ctx, orgID, id)
	}

	b := psql.Update(peopleTable).Set("updated_at", at)
	if patch.Title != nil {
		b = b.Set("title", *patch.Title)
	}
	if patch.DepartmentID != nil {
		b = b.Set("department_id", *patch.DepartmentID)
	}
	return r.getOne(ctx, b.
		Where(byID(id)).
		Where(activeOnly(orgID)).
		Suffix("RETURNING "+joinColumns(personColumns)))
}

func (r *PersonRepository) getOne(ctx context.Context, b sq.Sqlizer) (person.Person, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return person.Person{}, err
	}
	q, args, err := b.ToSql()
	if err != nil {
		return person.Person{}, gerrors.Wrap(err, "build person query")
	}
	p, err := scanPerson(tx.QueryRow(ctx, q, args...))
	if err != nil {
		return person.Person{}, mapError(err, person.ErrNotFound, "read person")
	}
	return p, nil
}

func scanPerson(row pgx.Row) (person.Person, error) {
	var (
		id, deptID, orgID    uuid.UUID
		name                 string
		title, email, phone  *string
		isStarred            bool
		deletedAt            *time.Time
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &deptID, &orgID, &name, &title, &email, &phone, &isStarred, &deletedAt, &createdAt, &updatedAt); err != nil {
		return person.Person{}, err
	}
	return person.Hydrate(id, deptID, orgID, name, title, email, phone, isStarred, deletedAt, createdAt, updatedAt), nil
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
