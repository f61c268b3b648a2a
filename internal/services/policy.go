package services

import (
	"github.com/ortelius/tenancy-backend/model"
)

// Route role sets. There is no implicit hierarchy: each operation names every role it accepts.
var (
	AnyMemberRoles    = []model.Role{model.RoleOwner, model.RoleAdmin, model.RoleMember}
	ManageMemberRoles = []model.Role{model.RoleOwner, model.RoleAdmin}
	UpdateOrgRoles    = []model.Role{model.RoleOwner, model.RoleAdmin}
	DeleteOrgRoles    = []model.Role{model.RoleOwner}
	ChangeRoleRoles   = []model.Role{model.RoleOwner, model.RoleAdmin}
	ViewOrgRoles      = AnyMemberRoles
	ListMembersRoles  = AnyMemberRoles
)

// Authorize decides from the caller's own membership projection whether it holds one of the
// allowed roles in organizationID. It never touches the store.
func Authorize(user *model.User, organizationID string, allowed ...model.Role) error {
	if user == nil {
		return failf(ErrUnauthenticated, "authentication required")
	}
	m, ok := user.MembershipFor(organizationID)
	if !ok {
		return failf(ErrForbidden, "not a member of this organization")
	}
	// Stored roles are normalized on decode; parse again for documents built in memory.
	role, err := model.ParseRole(string(m.Role))
	if err != nil || !model.RoleIn(role, allowed...) {
		return failf(ErrForbidden, "insufficient role for this operation")
	}
	return nil
}
