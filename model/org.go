package model

import "time"

// Member is one entry of the organization-side membership projection.
type Member struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// Organization represents an organization document in the orgs collection
type Organization struct {
	Key         string    `json:"_key,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Logo        string    `json:"logo,omitempty"`
	Owner       string    `json:"owner"`
	Members     []Member  `json:"members"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Member returns the entry for userID, if any.
func (o *Organization) Member(userID string) (Member, bool) {
	for _, m := range o.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

// MemberIDs returns the user ids of all members in list order.
func (o *Organization) MemberIDs() []string {
	ids := make([]string, 0, len(o.Members))
	for _, m := range o.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// Clone returns a deep copy of o.
func (o *Organization) Clone() *Organization {
	if o == nil {
		return nil
	}
	c := *o
	c.Members = append([]Member{}, o.Members...)
	return &c
}

// View returns the API representation of the organization.
func (o *Organization) View() OrganizationView {
	members := make([]MemberView, 0, len(o.Members))
	for _, m := range o.Members {
		members = append(members, MemberView{UserID: m.UserID, Role: m.Role})
	}
	return OrganizationView{
		ID:          o.Key,
		Name:        o.Name,
		Description: o.Description,
		Logo:        o.Logo,
		Owner:       o.Owner,
		Members:     members,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

// OrganizationView is the organization as exposed by the API
type OrganizationView struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Logo        string       `json:"logo,omitempty"`
	Owner       string       `json:"owner"`
	Members     []MemberView `json:"members"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// MemberView is a member entry as exposed by the API
type MemberView struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// MemberProfile is a member entry joined with the member's public profile.
type MemberProfile struct {
	UserID         string `json:"userId"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Role           Role   `json:"role"`
}

// OrganizationAttributes carries the fields supplied when an organization is created.
type OrganizationAttributes struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Logo        string `json:"logo,omitempty"`
}

// OrganizationUpdate carries the optional fields of an organization edit.
type OrganizationUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Logo        *string `json:"logo,omitempty"`
}
