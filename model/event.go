package model

import "time"

// Membership event types published after a committed membership change.
const (
	EventOrganizationCreated = "organization.created"
	EventOrganizationUpdated = "organization.updated"
	EventOrganizationDeleted = "organization.deleted"
	EventMembershipAdded     = "membership.added"
	EventMembershipRemoved   = "membership.removed"
	EventMembershipRole      = "membership.role_changed"
)

// MembershipEvent describes a committed change to an organization or its members.
type MembershipEvent struct {
	EventType      string    `json:"event_type"`
	EventID        string    `json:"event_id"`
	EventTime      time.Time `json:"event_time"`
	SchemaVersion  string    `json:"schema_version"`
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id,omitempty"`
	Role           Role      `json:"role,omitempty"`
	ActorID        string    `json:"actor_id,omitempty"`
}
