package persistence

import (
	"context"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/orgchart/pkg/authz"
	"github.com/iota-uz/orgchart/pkg/composables"
)

const membershipsTable = "orgchart_memberships"

// MembershipRepository resolves stored roles for the permission gate.
type MembershipRepository struct{}

func NewMembershipRepository() *MembershipRepository {
	return &MembershipRepository{}
}

func (r *MembershipRepository) RoleOf(ctx context.Context, orgID, userID uuid.UUID) (authz.Role, bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return "", false, err
	}
	q, args, err := psql.Select("role").
		From(membershipsTable).
		Where(inOrg(orgID)).
		Where("user_id = ?", userID).
		ToSql()
	if err != nil {
		return "", false, gerrors.Wrap(err, "build membership query")
	}

	var raw string
	if err := tx.QueryRow(ctx, q, args...).Scan(&raw); err != nil {
		if gerrors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, gerrors.Wrap(err, "read membership")
	}
	role, ok := authz.ParseRole(raw)
	if !ok {
		return "", false, gerrors.Errorf("unknown role %q for user %s", raw, userID)
	}
	return role, true, nil
}

// Upsert stores the role of userID in orgID.
func (r *MembershipRepository) Upsert(ctx context.Context, orgID, userID uuid.UUID, role authz.Role) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	q, args, err := psql.Insert(membershipsTable).
		Columns("organization_id", "user_id", "role").
		Values(orgID, userID, string(role)).
		Suffix("ON CONFLICT (organization_id, user_id) DO UPDATE SET role = EXCLUDED.role").
		ToSql()
	if err != nil {
		return gerrors.Wrap(err, "build membership upsert")
	}
	if _, err := tx.Exec(ctx, q, args...); err != nil {
		return mapError(err, ErrOrganizationNotFound, "upsert membership")
	}
	return nil
}
