// Package auth provides the authentication middleware and account handlers.
package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ortelius/tenancy-backend/model"
)

const userLocal = "user"

// CurrentUser returns the user attached by RequireAuth.
func CurrentUser(c *fiber.Ctx) (*model.User, bool) {
	user, ok := c.Locals(userLocal).(*model.User)
	return user, ok && user != nil
}

func userViews(users []*model.User) []model.UserView {
	views := make([]model.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, u.View())
	}
	return views
}
