// Package organizations provides the organization and membership handlers.
package organizations

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/ortelius/tenancy-backend/internal/services"
	"github.com/ortelius/tenancy-backend/model"
	"github.com/ortelius/tenancy-backend/restapi/modules/auth"
	"github.com/ortelius/tenancy-backend/restapi/response"
	"go.uber.org/zap"
)

// Create creates an organization owned by the caller
func Create(coord *services.Coordinator, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)

		var req CreateRequest
		if err := c.BodyParser(&req); err != nil {
			return response.InvalidBody(c)
		}

		org, err := coord.CreateOrganization(c.UserContext(), user.Key, model.OrganizationAttributes{
			Name:        req.Name,
			Description: req.Description,
			Logo:        req.Logo,
		})
		if err != nil {
			return response.Error(c, logger, "Failed to create organization", err)
		}
		return response.Success(c, fiber.StatusCreated, "Organization created successfully", org.View())
	}
}

// ListMine returns the organizations the caller belongs to
func ListMine(coord *services.Coordinator, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)

		orgs, err := coord.ListUserOrganizations(c.UserContext(), user.Key)
		if err != nil {
			return response.Error(c, logger, "Failed to list organizations", err)
		}

		views := make([]model.OrganizationView, 0, len(orgs))
		for _, o := range orgs {
			views = append(views, o.View())
		}
		return response.OK(c, "Organizations retrieved successfully", views)
	}
}

// Get returns one organization
func Get(coord *services.Coordinator, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		org, err := coord.GetOrganization(c.UserContext(), c.Params("orgId"))
		if err != nil {
			return response.Error(c, logger, "Failed to get organization", err)
		}
		return response.OK(c, "Organization retrieved successfully", org.View())
	}
}

// Update applies the provided organization fields
func Update(coord *services.Coordinator, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req model.OrganizationUpdate
		if err := c.BodyParser(&req); err != nil {
			return response.InvalidBody(c)
		}

		org, err := coord.UpdateOrganization(c.UserContext(), c.Params("orgId"), req)
		if err != nil {
			return response.Error(c, logger, "Failed to update organization", err)
		}
		return response.OK(c, "Organization updated successfully", org.View())
	}
}

// Delete removes the organization and every membership in it
func Delete(coord *services.Coordinator, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := coord.DeleteOrganization(c.UserContext(), c.Params("orgId")); err != nil {
			return response.Error(c, logger, "Failed to delete organization", err)
		}
		return response.OK(c, "Organization deleted successfully", nil)
	}
}

// Members lists the members of an organization with their profiles
func Members(coord *services.Coordinator, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		members, err := coord.ListMembers(c.UserContext(), c.Params("orgId"))
		if err != nil {
			return response.Error(c, logger, "Failed to list members", err)
		}
		return response.OK(c, "Members retrieved successfully", members)
	}
}

// ChangeRole sets a member's role
func ChangeRole(coord *services.Coordinator, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req RoleRequest
		if err := c.BodyParser(&req); err != nil {
			return response.InvalidBody(c)
		}

		org, err := coord.ChangeRole(c.UserContext(), c.Params("orgId"), c.Params("userId"), req.Role)
		if err != nil {
			return response.Error(c, logger, "Failed to change role", err)
		}
		return response.OK(c, "Role updated successfully", org.View())
	}
}

// MemberAction adds or removes a member depending on the body's action
func MemberAction(coord *services.Coordinator, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req MemberActionRequest
		if err := c.BodyParser(&req); err != nil {
			return response.InvalidBody(c)
		}

		switch strings.ToLower(strings.TrimSpace(req.Action)) {
		case ActionAdd:
			return addMember(c, coord, logger, req.Role)
		case ActionRemove:
			return removeMember(c, coord, logger)
		default:
			return response.Fail(c, fiber.StatusBadRequest, "Invalid action",
				services.ErrValidation.Error()+": action must be add or remove")
		}
	}
}

// RemoveMember removes a member from the organization
func RemoveMember(coord *services.Coordinator, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return removeMember(c, coord, logger)
	}
}

func addMember(c *fiber.Ctx, coord *services.Coordinator, logger *zap.Logger, role string) error {
	org, err := coord.AddMember(c.UserContext(), c.Params("orgId"), c.Params("userId"), role)
	if err != nil {
		return response.Error(c, logger, "Failed to add member", err)
	}
	return response.OK(c, "Member added successfully", org.View())
}

func removeMember(c *fiber.Ctx, coord *services.Coordinator, logger *zap.Logger) error {
	org, err := coord.RemoveMember(c.UserContext(), c.Params("orgId"), c.Params("userId"))
	if err != nil {
		return response.Error(c, logger, "Failed to remove member", err)
	}
	return response.OK(c, "Member removed successfully", org.View())
}
