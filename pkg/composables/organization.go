package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/iota-uz/orgchart/pkg/constants"
)

var ErrNoOrganization = errors.New("organization not found in context")

func WithOrganizationID(ctx context.Context, orgID uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.OrganizationIDKey, orgID)
}

func UseOrganizationID(ctx context.Context) (uuid.UUID, error) {
	orgID, ok := ctx.Value(constants.OrganizationIDKey).(uuid.UUID)
	if !ok || orgID == uuid.Nil {
		return uuid.Nil, ErrNoOrganization
	}
	return orgID, nil
}
