package persistence

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/orgchart/modules/orgchart/domain/department"
	"github.com/iota-uz/orgchart/pkg/composables"
)

const departmentsTable = "departments"

var departmentColumns = []string{
	"id",
	"organization_id",
	"parent_id",
	"name",
	"description",
	"sort_order",
	"deleted_at",
	"created_at",
	"updated_at",
}

type DepartmentRepository struct{}

func NewDepartmentRepository() department.Repository {
	return &DepartmentRepository{}
}

func (r *DepartmentRepository) GetActive(ctx context.Context, orgID, id uuid.UUID) (department.Department, error) {
	return r.getOne(ctx, psql.Select(departmentColumns...).
		From(departmentsTable).
		Where(byID(id)).
		Where(activeOnly(orgID)))
}

func (r *DepartmentRepository) Get(ctx context.Context, orgID, id uuid.UUID) (department.Department, error) {
	return r.getOne(ctx, psql.Select(departmentColumns...).
		From(departmentsTable).
		Where(byID(id)).
		Where(inOrg(orgID)))
}

func (r *DepartmentRepository) ParentOf(ctx context.Context, orgID, id uuid.UUID) (*uuid.UUID, bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, false, err
	}
	q, args, err := psql.Select("parent_id").
		From(departmentsTable).
		Where(byID(id)).
		Where(inOrg(orgID)).
		ToSql()
	if err != nil {
		return nil, false, gerrors.Wrap(err, "build parent query")
	}

	var parentID *uuid.UUID
	if err := tx.QueryRow(ctx, q, args...).Scan(&parentID); err != nil {
		if gerrors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, gerrors.Wrap(err, "read parent")
	}
	return parentID, true, nil
}

func (r *DepartmentRepository) ListActiveChildren(ctx context.Context, orgID uuid.UUID, parentIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	q, args, err := psql.Select("id").
		From(departmentsTable).
		Where(activeOnly(orgID)).
		Where(anyOf("parent_id", parentIDs)).
		ToSql()
	if err != nil {
		return nil, gerrors.Wrap(err, "build children query")
	}

	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, gerrors.Wrap(err, "list children")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, gerrors.Wrap(err, "scan children")
	}
	return ids, nil
}

func (r *DepartmentRepository) ListActive(ctx context.Context, orgID uuid.UUID) ([]department.Department, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	q, args, err := psql.Select(departmentColumns...).
		From(departmentsTable).
		Where(activeOnly(orgID)).
		OrderBy("sort_order ASC", "name ASC").
		ToSql()
	if err != nil {
		return nil, gerrors.Wrap(err, "build list query")
	}

	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, gerrors.Wrap(err, "list departments")
	}
	defer rows.Close()

	out := make([]department.Department, 0, 32)
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(err, "list departments")
	}
	return out, nil
}

func (r *DepartmentRepository) SoftDeleteMany(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	q, args, err := psql.Update(departmentsTable).
		Set("deleted_at", at).
		Set("updated_at", at).
		Where(activeOnly(orgID)).
		Where(anyOf("id", ids)).
		ToSql()
	if err != nil {
		return 0, gerrors.Wrap(err, "build soft delete")
	}

	tag, err := tx.Exec(ctx, q, args...)
	if err != nil {
		return 0, mapError(err, department.ErrNotFound, "soft delete departments")
	}
	return tag.RowsAffected(), nil
}

func (r *DepartmentRepository) UpdateParent(ctx context.Context, orgID, id uuid.UUID, parentID *uuid.UUID, at time.Time) (department.Department, error) {
	return r.getOne(ctx, psql.Update(departmentsTable).
		Set("parent_id", parentID).
		Set("updated_at", at).
		Where(byID(id)).
		Where(activeOnly(orgID)).
		Suffix("RETURNING "+joinColumns(departmentColumns)))
}

func (r *DepartmentRepository) getOne(ctx context.Context, b sq.Sqlizer) (department.Department, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return department.Department{}, err
	}
	q, args, err := b.ToSql()
	if err != nil {
		return department.Department{}, gerrors.Wrap(err, "build department query")
	}
	d, err := scanDepartment(tx.QueryRow(ctx, q, args...))
	if err != nil {
		return department.Department{}, mapError(err, department.ErrNotFound, "read department")
	}
	return d, nil
}

func scanDepartment(row pgx.Row) (department.Department, error) {
	var (
		id, orgID            uuid.UUID
		parentID             *uuid.UUID
		name                 string
		description          *string
		sortOrder            int
		deletedAt            *time.Time
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &orgID, &parentID, &name, &description, &sortOrder, &deletedAt, &createdAt, &updatedAt); err != nil {
		return department.Department{}, err
	}
	return department.Hydrate(id, orgID, parentID, name, description, sortOrder, deletedAt, createdAt, updatedAt), nil
}
