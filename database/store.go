package database

import (
	"context"
	"errors"

	"github.com/ortelius/tenancy-backend/model"
)

var (
	// ErrNotFound is returned when the addressed document (or membership entry) does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when a write would violate a unique index (user email).
	ErrConflict = errors.New("unique constraint violated")
	// ErrAlreadyMember is returned when a member entry for the user already exists.
	ErrAlreadyMember = errors.New("user is already a member")
)

// UserStore persists user documents and the user-side membership projection.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, key string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdateUserProfile writes name, email, description, profile picture and updated_at.
	UpdateUserProfile(ctx context.Context, user *model.User) error
	ListUsers(ctx context.Context) ([]*model.User, error)
	ListUsersByKeys(ctx context.Context, keys []string) ([]*model.User, error)
	ListUsersExcluding(ctx context.Context, keys []string) ([]*model.User, error)
	// ListUsersWithMembership returns users whose projection has an entry for orgID.
	ListUsersWithMembership(ctx context.Context, orgID string) ([]*model.User, error)
	// SetUserMembership replaces the user's entry for m.OrganizationID, or appends it.
	SetUserMembership(ctx context.Context, userKey string, m model.UserMembership) error
	// RemoveUserMembership drops the user's entry for orgID; absent entries are ignored.
	RemoveUserMembership(ctx context.Context, userKey, orgID string) error
	// RemoveMembershipFromAllUsers drops orgID from every user and returns how many changed.
	RemoveMembershipFromAllUsers(ctx context.Context, orgID string) (int, error)
}

// OrganizationStore persists organization documents and the organization-side membership projection.
type OrganizationStore interface {
	CreateOrganization(ctx context.Context, org *model.Organization) error
	GetOrganization(ctx context.Context, key string) (*model.Organization, error)
	// UpdateOrganization writes name, description, logo and updated_at.
	UpdateOrganization(ctx context.Context, org *model.Organization) error
	DeleteOrganization(ctx context.Context, key string) error
	ListOrganizationsForMember(ctx context.Context, userKey string) ([]*model.Organization, error)
	AddOrganizationMember(ctx context.Context, orgKey string, m model.Member) (*model.Organization, error)
	// RemoveOrganizationMember drops userKey from the member list; non-members are ignored.
	RemoveOrganizationMember(ctx context.Context, orgKey, userKey string) (*model.Organization, error)
	// SetOrganizationMemberRole fails with ErrNotFound if the org or the member entry is absent.
	SetOrganizationMemberRole(ctx context.Context, orgKey, userKey string, role model.Role) (*model.Organization, error)
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	UserStore
	OrganizationStore
}

// Store is the persistence surface used by the services.
type Store interface {
	Tx
	// RunInTransaction runs fn against a view spanning users and orgs. Every write made
	// through tx is committed when fn returns nil and discarded otherwise.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

var (
	_ Store = (*ArangoStore)(nil)
	_ Store = (*MemoryStore)(nil)
	_ Tx    = memTx{}
)
