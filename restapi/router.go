// Package restapi provides the main router for the REST endpoints and the GraphQL endpoint.
package restapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/ortelius/tenancy-backend/internal/services"
	"github.com/ortelius/tenancy-backend/restapi/modules/auth"
	"github.com/ortelius/tenancy-backend/restapi/modules/organizations"
	"go.uber.org/zap"
)

// Deps are the services the handlers are built from.
type Deps struct {
	Accounts    *services.Accounts
	Coordinator *services.Coordinator
	Logger      *zap.Logger
}

// SetupRoutes configures all REST API routes and the GraphQL endpoint.
func SetupRoutes(app *fiber.App, deps Deps, schema graphql.Schema) {
	logger := deps.Logger
	requireAuth := auth.RequireAuth(deps.Accounts, logger)

	// Auth Routes
	authGroup := app.Group("/auth")
	authGroup.Post("/register", auth.Register(deps.Accounts, logger))
	authGroup.Post("/login", auth.Login(deps.Accounts, logger))
	authGroup.Get("/profile", requireAuth, auth.GetProfile())
	authGroup.Put("/profile", requireAuth, auth.UpdateProfile(deps.Accounts, logger))
	authGroup.Get("/users", requireAuth, auth.ListUsers(deps.Accounts, logger))
	authGroup.Get("/organizations/:orgId/remaining-users", requireAuth, auth.RemainingUsers(deps.Accounts, logger))

	// Organization Routes
	orgs := app.Group("/organizations", requireAuth)
	orgs.Post("/", organizations.Create(deps.Coordinator, logger))
	orgs.Get("/all", organizations.ListMine(deps.Coordinator, logger))
	orgs.Get("/:orgId",
		auth.RequireOrgRole("orgId", services.ViewOrgRoles...),
		organizations.Get(deps.Coordinator, logger))
	orgs.Put("/:orgId",
		auth.RequireOrgRole("orgId", services.UpdateOrgRoles...),
		organizations.Update(deps.Coordinator, logger))
	orgs.Delete("/:orgId",
		auth.RequireOrgRole("orgId", services.DeleteOrgRoles...),
		organizations.Delete(deps.Coordinator, logger))
	orgs.Get("/:orgId/members",
		auth.RequireOrgRole("orgId", services.ListMembersRoles...),
		organizations.Members(deps.Coordinator, logger))

	// Membership Routes
	orgs.Put("/:orgId/users/:userId/role",
		auth.RequireOrgRole("orgId", services.ChangeRoleRoles...),
		organizations.ChangeRole(deps.Coordinator, logger))
	orgs.Post("/:orgId/users/:userId",
		auth.RequireOrgRole("orgId", services.ManageMemberRoles...),
		organizations.MemberAction(deps.Coordinator, logger))
	orgs.Delete("/:orgId/users/:userId",
		auth.RequireOrgRole("orgId", services.ManageMemberRoles...),
		organizations.RemoveMember(deps.Coordinator, logger))

	// GraphQL Route
	app.Post("/graphql", requireAuth, GraphQLHandler(schema))

	logger.Info("API routes initialized successfully")
}
