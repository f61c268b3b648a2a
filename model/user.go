// Package model provides the data models for users, organizations and memberships.
package model

import (
	"time"
)

// UserMembership is one entry of the user-side membership projection.
type UserMembership struct {
	OrganizationID string `json:"organization_id"`
	Role           Role   `json:"role"`
}

// User represents a user document in the users collection
type User struct {
	Key            string           `json:"_key,omitempty"`
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	PasswordHash   string           `json:"password_hash,omitempty"`
	Description    string           `json:"description,omitempty"`
	ProfilePicture string           `json:"profile_picture,omitempty"`
	Organizations  []UserMembership `json:"organizations"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// NewUser creates a new user with no memberships
func NewUser(key, name, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		Key:           key,
		Name:          name,
		Email:         email,
		PasswordHash:  passwordHash,
		Organizations: []UserMembership{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MembershipFor returns the user's entry for orgID, if any.
func (u *User) MembershipFor(orgID string) (UserMembership, bool) {
	for _, m := range u.Organizations {
		if m.OrganizationID == orgID {
			return m, true
		}
	}
	return UserMembership{}, false
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Organizations = append([]UserMembership{}, u.Organizations...)
	return &c
}

// View returns the credential-free representation of the user.
func (u *User) View() UserView {
	orgs := append([]UserMembership{}, u.Organizations...)
	return UserView{
		ID:             u.Key,
		Name:           u.Name,
		Email:          u.Email,
		Description:    u.Description,
		ProfilePicture: u.ProfilePicture,
		Organizations:  orgs,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

// UserView is the user as exposed by the API. It never carries the password hash.
type UserView struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	Description    string           `json:"description,omitempty"`
	ProfilePicture string           `json:"profilePicture,omitempty"`
	Organizations  []UserMembership `json:"organizations"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// ProfileUpdate carries the optional fields of a profile edit. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name           *string `json:"name,omitempty"`
	Email          *string `json:"email,omitempty"`
	Description    *string `json:"description,omitempty"`
	ProfilePicture *string `json:"profilePicture,omitempty"`
}
