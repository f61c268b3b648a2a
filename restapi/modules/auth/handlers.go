package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ortelius/tenancy-backend/internal/services"
	"github.com/ortelius/tenancy-backend/model"
	"github.com/ortelius/tenancy-backend/restapi/response"
	"go.uber.org/zap"
)

// Register creates an account and returns a session token for it
func Register(accounts *services.Accounts, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return response.InvalidBody(c)
		}

		user, err := accounts.Register(c.UserContext(), req.Name, req.Email, req.Password)
		if err != nil {
			return response.Error(c, logger, "Registration failed", err)
		}

		token, exp, err := accounts.IssueToken(user)
		if err != nil {
			return response.Error(c, logger, "Registration failed", err)
		}

		return response.Success(c, fiber.StatusCreated, "User registered successfully", authPayload(user, token, exp))
	}
}

// Login handles user login and returns a Bearer token
func Login(accounts *services.Accounts, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return response.InvalidBody(c)
		}

		user, token, exp, err := accounts.Login(c.UserContext(), req.Email, req.Password)
		if err != nil {
			return response.Error(c, logger, "Login failed", err)
		}

		return response.OK(c, "Login successful", authPayload(user, token, exp))
	}
}

func authPayload(user *model.User, token string, exp time.Time) model.AuthPayload {
	return model.AuthPayload{
		Token:     token,
		ExpiresAt: exp.Unix(),
		User:      user.View(),
	}
}

// GetProfile returns the caller's profile
func GetProfile() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return response.Fail(c, fiber.StatusUnauthorized, "Authentication required", services.ErrUnauthenticated.Error())
		}
		return response.OK(c, "Profile retrieved successfully", user.View())
	}
}

// UpdateProfile applies the provided profile fields
func UpdateProfile(accounts *services.Accounts, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return response.Fail(c, fiber.StatusUnauthorized, "Authentication required", services.ErrUnauthenticated.Error())
		}

		var req model.ProfileUpdate
		if err := c.BodyParser(&req); err != nil {
			return response.InvalidBody(c)
		}

		updated, err := accounts.UpdateProfile(c.UserContext(), user.Key, req)
		if err != nil {
			return response.Error(c, logger, "Failed to update profile", err)
		}
		return response.OK(c, "Profile updated successfully", updated.View())
	}
}

// ListUsers returns every registered user
func ListUsers(accounts *services.Accounts, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		users, err := accounts.ListUsers(c.UserContext())
		if err != nil {
			return response.Error(c, logger, "Failed to list users", err)
		}
		return response.OK(c, "Users retrieved successfully", userViews(users))
	}
}

// RemainingUsers returns the users that could still be added to the organization
func RemainingUsers(accounts *services.Accounts, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		users, err := accounts.ListNonMembers(c.UserContext(), c.Params("orgId"))
		if err != nil {
			return response.Error(c, logger, "Failed to list users", err)
		}
		return response.OK(c, "Users retrieved successfully", userViews(users))
	}
}
