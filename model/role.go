package model

import (
	"errors"
	"strings"
)

// ErrInvalidRole is returned when a role string is not one of owner, admin or member.
var ErrInvalidRole = errors.New("invalid role")

// Role is a membership role inside an organization. The zero value is not a valid role.
type Role string

// Supported roles. The string values are the canonical stored and serialized form.
const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// AllRoles lists every supported role.
var AllRoles = []Role{RoleOwner, RoleAdmin, RoleMember}

// ParseRole converts s to a Role. Input is trimmed and matched case-insensitively,
// so "Owner" and " ADMIN " are accepted.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleOwner:
		return RoleOwner, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleMember:
		return RoleMember, nil
	}
	return "", ErrInvalidRole
}

// Valid reports whether r is one of the supported roles in canonical form.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleMember
}

func (r Role) String() string {
	return string(r)
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, ErrInvalidRole
	}
	return []byte(r), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Stored documents written with
// mixed case ("Owner") are normalized on read.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RoleIn reports whether r is one of allowed.
func RoleIn(r Role, allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}
