package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ortelius/tenancy-backend/internal/services"
	"github.com/ortelius/tenancy-backend/model"
	"github.com/ortelius/tenancy-backend/restapi/response"
	"go.uber.org/zap"
)

// RequireAuth middleware validates the Bearer token and blocks guests
func RequireAuth(accounts *services.Accounts, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := accounts.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return response.Error(c, logger, "Authentication required", err)
		}

		// Store user info in context
		c.Locals(userLocal, user)
		c.SetUserContext(services.WithUser(c.UserContext(), user))

		return c.Next()
	}
}

// RequireOrgRole middleware checks that the caller holds one of the allowed roles in the
// organization named by the route parameter param.
func RequireOrgRole(param string, allowed ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := CurrentUser(c)
		if err := services.Authorize(user, c.Params(param), allowed...); err != nil {
			return response.Fail(c, response.StatusFor(err), "Insufficient permissions", err.Error())
		}
		return c.Next()
	}
}
