package authz

import (
	"strings"

	"github.com/google/uuid"
)

const (
	subjectUserPrefix = "user"
	rolePrefix        = "role"
	domainOrgPrefix   = "org"
	separator         = ":"

	// ObjectOrgChart is the only object the org chart policies are written against.
	ObjectOrgChart = "orgchart"
)

// Role is an organization membership level.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
}

// ParseRole normalizes a stored role name. Unknown names are rejected.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := roleRank[r]
	return r, ok
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && roleRank[min] > 0
}

// Action returns the policy action a role level unlocks.
func (r Role) Action() string {
	switch r {
	case RoleAdmin:
		return "administer"
	case RoleEditor:
		return "edit"
	default:
		return "view"
	}
}

// Request encapsulates all parameters required to evaluate a Casbin rule.
type Request struct {
	Subject string
	Domain  string
	Object  string
	Action  string
}

// SubjectForUser builds a subject identifier in the form user:{userID}.
func SubjectForUser(userID uuid.UUID) string {
	userPart := "anonymous"
	if userID != uuid.Nil {
		userPart = userID.String()
	}
	return subjectUserPrefix + separator + userPart
}

// SubjectForRole returns the canonical identifier for a role-based subject.
func SubjectForRole(role Role) string {
	return rolePrefix + separator + string(role)
}

// DomainForOrg returns the casbin domain of an organization.
func DomainForOrg(orgID uuid.UUID) string {
	return domainOrgPrefix + separator + orgID.String()
}
