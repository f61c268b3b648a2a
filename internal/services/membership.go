package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ortelius/tenancy-backend/database"
	"github.com/ortelius/tenancy-backend/model"
	"go.uber.org/zap"
)

// Coordinator is the only writer of memberships. Each mutation changes Organization.members
// and User.organizations inside one store transaction.
type Coordinator struct {
	store             database.Store
	events            EventPublisher
	logger            *zap.Logger
	allowOwnerRemoval bool
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithEventPublisher sets where committed changes are reported.
func WithEventPublisher(p EventPublisher) CoordinatorOption {
	return func(c *Coordinator) {
		if p != nil {
			c.events = p
		}
	}
}

// WithOwnerRemoval allows RemoveMember to drop the organization owner.
func WithOwnerRemoval(allow bool) CoordinatorOption {
	return func(c *Coordinator) { c.allowOwnerRemoval = allow }
}

// NewCoordinator wires the membership coordinator.
func NewCoordinator(store database.Store, logger *zap.Logger, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{store: store, events: NopPublisher{}, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateOrganization creates an organization owned by ownerID and records the owner membership
// on both sides.
func (c *Coordinator) CreateOrganization(ctx context.Context, ownerID string, attrs model.OrganizationAttributes) (*model.Organization, error) {
	name := strings.TrimSpace(attrs.Name)
	description := strings.TrimSpace(attrs.Description)
	if name == "" || description == "" {
		return nil, failf(ErrValidation, "name and description are required")
	}

	now := time.Now().UTC()
	org := &model.Organization{
		Key:         uuid.New().String(),
		Name:        name,
		Description: description,
		Logo:        strings.TrimSpace(attrs.Logo),
		Owner:       ownerID,
		Members:     []model.Member{{UserID: ownerID, Role: model.RoleOwner}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := c.store.RunInTransaction(ctx, func(ctx context.Context, tx database.Tx) error {
		if _, err := tx.GetUser(ctx, ownerID); err != nil {
			return storeErr(err, "user")
		}
		if err := tx.CreateOrganization(ctx, org); err != nil {
			return storeErr(err, "organization")
		}
		return storeErr(tx.SetUserMembership(ctx, ownerID, model.UserMembership{
			OrganizationID: org.Key,
			Role:           model.RoleOwner,
		}), "user")
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Organization created", zap.String("organization_id", org.Key), zap.String("owner", ownerID))
	c.publish(ctx, newEvent(ctx, model.EventOrganizationCreated, org.Key, ownerID, model.RoleOwner))
	return org, nil
}

// GetOrganization returns the organization with orgID.
func (c *Coordinator) GetOrganization(ctx context.Context, orgID string) (*model.Organization, error) {
	org, err := c.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, storeErr(err, "organization")
	}
	return org, nil
}

// UpdateOrganization applies the provided fields. Membership is never touched.
func (c *Coordinator) UpdateOrganization(ctx context.Context, orgID string, patch model.OrganizationUpdate) (*model.Organization, error) {
	var org *model.Organization
	err := c.store.RunInTransaction(ctx, func(ctx context.Context, tx database.Tx) error {
		var err error
		if org, err = tx.GetOrganization(ctx, orgID); err != nil {
			return storeErr(err, "organization")
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return failf(ErrValidation, "name must not be empty")
			}
			org.Name = name
		}
		if patch.Description != nil {
			description := strings.TrimSpace(*patch.Description)
			if description == "" {
				return failf(ErrValidation, "description must not be empty")
			}
			org.Description = description
		}
		if patch.Logo != nil {
			org.Logo = strings.TrimSpace(*patch.Logo)
		}
		org.UpdatedAt = time.Now().UTC()
		return storeErr(tx.UpdateOrganization(ctx, org), "organization")
	})
	if err != nil {
		return nil, err
	}

	c.publish(ctx, newEvent(ctx, model.EventOrganizationUpdated, orgID, "", ""))
	return org, nil
}

// DeleteOrganization removes the organization and its entry from every user.
func (c *Coordinator) DeleteOrganization(ctx context.Context, orgID string) error {
	var pulled int
	err := c.store.RunInTransaction(ctx, func(ctx context.Context, tx database.Tx) error {
		if err := tx.DeleteOrganization(ctx, orgID); err != nil {
			return storeErr(err, "organization")
		}
		var err error
		pulled, err = tx.RemoveMembershipFromAllUsers(ctx, orgID)
		return storeErr(err, "users")
	})
	if err != nil {
		return err
	}

	c.logger.Info("Organization deleted", zap.String("organization_id", orgID), zap.Int("memberships_removed", pulled))
	c.publish(ctx, newEvent(ctx, model.EventOrganizationDeleted, orgID, "", ""))
	return nil
}

// AddMember adds userID to the organization with the given role.
func (c *Coordinator) AddMember(ctx context.Context, orgID, userID, role string) (*model.Organization, error) {
	r, err := model.ParseRole(role)
	if err != nil {
		return nil, failf(ErrInvalidRole, "role must be one of owner, admin, member")
	}
	if r == model.RoleOwner {
		return nil, failf(ErrForbidden, "ownership cannot be granted by adding a member")
	}

	var org *model.Organization
	err = c.store.RunInTransaction(ctx, func(ctx context.Context, tx database.Tx) error {
		current, err := tx.GetOrganization(ctx, orgID)
		if err != nil {
			return storeErr(err, "organization")
		}
		if _, exists := current.Member(userID); exists {
			return failf(ErrAlreadyMember, "user is already a member of this organization")
		}
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return storeErr(err, "user")
		}
		if org, err = tx.AddOrganizationMember(ctx, orgID, model.Member{UserID: userID, Role: r}); err != nil {
			return storeErr(err, "organization")
		}
		return storeErr(tx.SetUserMembership(ctx, userID, model.UserMembership{OrganizationID: orgID, Role: r}), "user")
	})
	if err != nil {
		return nil, err
	}

	c.publish(ctx, newEvent(ctx, model.EventMembershipAdded, orgID, userID, r))
	return org, nil
}

// RemoveMember drops userID from the organization. Removing a non-member is a no-op.
func (c *Coordinator) RemoveMember(ctx context.Context, orgID, userID string) (*model.Organization, error) {
	var org *model.Organization
	err := c.store.RunInTransaction(ctx, func(ctx context.Context, tx database.Tx) error {
		current, err := tx.GetOrganization(ctx, orgID)
		if err != nil {
			return storeErr(err, "organization")
		}
		if userID == current.Owner && !c.allowOwnerRemoval {
			return failf(ErrForbidden, "the organization owner cannot be removed")
		}
		if org, err = tx.RemoveOrganizationMember(ctx, orgID, userID); err != nil {
			return storeErr(err, "organization")
		}
		return storeErr(tx.RemoveUserMembership(ctx, userID, orgID), "user")
	})
	if err != nil {
		return nil, err
	}

	c.publish(ctx, newEvent(ctx, model.EventMembershipRemoved, orgID, userID, ""))
	return org, nil
}

// ChangeRole sets the role of an existing member on both sides.
func (c *Coordinator) ChangeRole(ctx context.Context, orgID, userID, role string) (*model.Organization, error) {
	r, err := model.ParseRole(role)
	if err != nil {
		return nil, failf(ErrInvalidRole, "role must be one of owner, admin, member")
	}

	var org *model.Organization
	err = c.store.RunInTransaction(ctx, func(ctx context.Context, tx database.Tx) error {
		current, err := tx.GetOrganization(ctx, orgID)
		if err != nil {
			return storeErr(err, "organization")
		}
		if _, ok := current.Member(userID); !ok {
			return failf(ErrNotFound, "user is not a member of this organization")
		}
		switch {
		case userID == current.Owner && r != model.RoleOwner:
			return failf(ErrForbidden, "the organization owner cannot be demoted")
		case userID != current.Owner && r == model.RoleOwner:
			return failf(ErrForbidden, "ownership cannot be transferred by a role change")
		}
		if org, err = tx.SetOrganizationMemberRole(ctx, orgID, userID, r); err != nil {
			return storeErr(err, "membership")
		}
		err = tx.SetUserMembership(ctx, userID, model.UserMembership{OrganizationID: orgID, Role: r})
		if errors.Is(err, database.ErrNotFound) {
			// The member entry points at a deleted user; the organization side is still authoritative.
			c.logger.Warn("Member has no user document", zap.String("organization_id", orgID), zap.String("user_id", userID))
			return nil
		}
		return storeErr(err, "user")
	})
	if err != nil {
		return nil, err
	}

	c.publish(ctx, newEvent(ctx, model.EventMembershipRole, orgID, userID, r))
	return org, nil
}

// ListUserOrganizations returns the organizations whose member list contains userID.
func (c *Coordinator) ListUserOrganizations(ctx context.Context, userID string) ([]*model.Organization, error) {
	orgs, err := c.store.ListOrganizationsForMember(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "organizations")
	}
	return orgs, nil
}

// ListMembers joins the organization's member list with each member's profile.
func (c *Coordinator) ListMembers(ctx context.Context, orgID string) ([]model.MemberProfile, error) {
	org, err := c.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, storeErr(err, "organization")
	}
	users, err := c.store.ListUsersByKeys(ctx, org.MemberIDs())
	if err != nil {
		return nil, storeErr(err, "users")
	}

	byKey := make(map[string]*model.User, len(users))
	for _, u := range users {
		byKey[u.Key] = u
	}

	profiles := make([]model.MemberProfile, 0, len(org.Members))
	for _, m := range org.Members {
		u, ok := byKey[m.UserID]
		if !ok {
			c.logger.Warn("Member has no user document", zap.String("organization_id", orgID), zap.String("user_id", m.UserID))
			continue
		}
		profiles = append(profiles, model.MemberProfile{
			UserID:         u.Key,
			Name:           u.Name,
			Email:          u.Email,
			ProfilePicture: u.ProfilePicture,
			Role:           m.Role,
		})
	}
	return profiles, nil
}

// ReconcileOrganization rewrites every user projection for orgID from the organization's member
// list and returns how many user documents were repaired. A missing organization is pulled from
// every user.
func (c *Coordinator) ReconcileOrganization(ctx context.Context, orgID string) (int, error) {
	repaired := 0
	err := c.store.RunInTransaction(ctx, func(ctx context.Context, tx database.Tx) error {
		org, err := tx.GetOrganization(ctx, orgID)
		if errors.Is(err, database.ErrNotFound) {
			repaired, err = tx.RemoveMembershipFromAllUsers(ctx, orgID)
			return storeErr(err, "users")
		}
		if err != nil {
			return storeErr(err, "organization")
		}

		holders, err := tx.ListUsersWithMembership(ctx, orgID)
		if err != nil {
			return storeErr(err, "users")
		}

		seen := make(map[string]bool, len(holders))
		for _, u := range holders {
			seen[u.Key] = true
			member, isMember := org.Member(u.Key)
			if !isMember {
				if err := tx.RemoveUserMembership(ctx, u.Key, orgID); err != nil {
					return storeErr(err, "user")
				}
				repaired++
				continue
			}
			if countEntries(u, orgID) == 1 {
				if entry, _ := u.MembershipFor(orgID); entry.Role == member.Role {
					continue
				}
			}
			if err := tx.RemoveUserMembership(ctx, u.Key, orgID); err != nil {
				return storeErr(err, "user")
			}
			if err := tx.SetUserMembership(ctx, u.Key, model.UserMembership{OrganizationID: orgID, Role: member.Role}); err != nil {
				return storeErr(err, "user")
			}
			repaired++
		}

		for _, m := range org.Members {
			if seen[m.UserID] {
				continue
			}
			err := tx.SetUserMembership(ctx, m.UserID, model.UserMembership{OrganizationID: orgID, Role: m.Role})
			if errors.Is(err, database.ErrNotFound) {
				c.logger.Warn("Member has no user document", zap.String("organization_id", orgID), zap.String("user_id", m.UserID))
				continue
			}
			if err != nil {
				return storeErr(err, "user")
			}
			repaired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if repaired > 0 {
		c.logger.Info("Repaired membership projection", zap.String("organization_id", orgID), zap.Int("users", repaired))
	}
	return repaired, nil
}

func countEntries(u *model.User, orgID string) int {
	n := 0
	for _, m := range u.Organizations {
		if m.OrganizationID == orgID {
			n++
		}
	}
	return n
}
