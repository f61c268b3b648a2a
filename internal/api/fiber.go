// Package api builds the Fiber application.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/ortelius/tenancy-backend/graphql"
	"github.com/ortelius/tenancy-backend/restapi"
	"github.com/ortelius/tenancy-backend/restapi/response"
	"go.uber.org/zap"
)

// Options are the HTTP settings taken from configuration.
type Options struct {
	AppName        string
	CORSOrigins    string
	RequestTimeout time.Duration
	AccessLog      bool
}

// NewFiberApp creates and configures a Fiber app with REST and GraphQL routes
func NewFiberApp(deps restapi.Deps, opts Options) (*fiber.App, error) {
	schema, err := graphql.CreateSchema(deps.Coordinator)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:      opts.AppName,
		BodyLimit:    1 * 1024 * 1024, // 1MB
		ReadTimeout:  60 * time.Second,
		ErrorHandler: response.ErrorHandler(deps.Logger),
		// Params and body values are stored by the services; they must not alias fasthttp buffers.
		Immutable:    true,
	})

	// Middleware
	app.Use(fiberrecover.New())
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: opts.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowMethods: "GET, POST, HEAD, PUT, DELETE, PATCH, OPTIONS",
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("graphql_op", "-")
		return c.Next()
	})
	if opts.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} | ${status} | ${latency} | ${method} | ${path} | ${locals:graphql_op}\n",
		}))
	}
	app.Use(requestTimeout(opts.RequestTimeout, deps.Logger))

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return response.OK(c, "Server is running", nil)
	})

	restapi.SetupRoutes(app, deps, schema)

	return app, nil
}

// requestTimeout gives every request context a deadline.
func requestTimeout(d time.Duration, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if d <= 0 {
			return c.Next()
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), d)
		defer cancel()
		c.SetUserContext(ctx)

		err := c.Next()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warn("Request deadline exceeded",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Duration("timeout", d))
		}
		return err
	}
}
