package services

import (
	"testing"

	"github.com/ortelius/tenancy-backend/model"
	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	user := &model.User{
		Key: "u1",
		Organizations: []model.UserMembership{
			{OrganizationID: "o1", Role: model.RoleAdmin},
			{OrganizationID: "o2", Role: model.Role("Member")},
		},
	}

	tests := []struct {
		name    string
		user    *model.User
		org     string
		allowed []model.Role
		wantErr error
	}{
		{name: "admin allowed", user: user, org: "o1", allowed: ManageMemberRoles},
		{name: "admin not owner", user: user, org: "o1", allowed: DeleteOrgRoles, wantErr: ErrForbidden},
		{name: "mixed case stored role", user: user, org: "o2", allowed: AnyMemberRoles},
		{name: "member cannot update", user: user, org: "o2", allowed: UpdateOrgRoles, wantErr: ErrForbidden},
		{name: "no entry", user: user, org: "o3", allowed: AnyMemberRoles, wantErr: ErrForbidden},
		{name: "empty allowed set", user: user, org: "o1", wantErr: ErrForbidden},
		{name: "no user", org: "o1", allowed: AnyMemberRoles, wantErr: ErrUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.user, tt.org, tt.allowed...)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, ErrForbidden, Kind(failf(ErrForbidden, "x")))
	assert.Equal(t, ErrInternal, Kind(assert.AnError))
	assert.Nil(t, storeErr(nil, "x"))
}
