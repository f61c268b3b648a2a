package organizations

// CreateRequest defines the body for creating an organization
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Logo        string `json:"logo"`
}

// RoleRequest defines the body for a role change
type RoleRequest struct {
	Role string `json:"role"`
}

// MemberActionRequest defines the body of the combined add/remove member endpoint
type MemberActionRequest struct {
	Action string `json:"action"`
	Role   string `json:"role"`
}

// Member actions accepted by MemberAction.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
)
