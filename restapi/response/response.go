// Package response writes the JSON envelope shared by every REST endpoint.
package response

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/ortelius/tenancy-backend/internal/services"
	"github.com/ortelius/tenancy-backend/model"
	"go.uber.org/zap"
)

// Success writes a successful envelope with the given status.
func Success(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(model.Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// OK writes a 200 envelope.
func OK(c *fiber.Ctx, message string, data interface{}) error {
	return Success(c, fiber.StatusOK, message, data)
}

// Fail writes an error envelope with an explicit status and client-safe detail.
func Fail(c *fiber.Ctx, status int, message, detail string) error {
	return c.Status(status).JSON(model.Response{
		Success: false,
		Message: message,
		Error:   detail,
	})
}

// StatusFor maps a service failure kind to its HTTP status.
func StatusFor(err error) int {
	switch services.Kind(err) {
	case services.ErrValidation, services.ErrConflict, services.ErrInvalidRole, services.ErrAlreadyMember:
		return fiber.StatusBadRequest
	case services.ErrUnauthenticated:
		return fiber.StatusUnauthorized
	case services.ErrForbidden:
		return fiber.StatusForbidden
	case services.ErrNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// Error writes err with the status of its kind. Internal failures are logged and
// answered with a generic message only.
func Error(c *fiber.Ctx, logger *zap.Logger, message string, err error) error {
	status := StatusFor(err)
	if status == fiber.StatusInternalServerError {
		logger.Error(message,
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return Fail(c, status, "Internal server error", "")
	}
	return Fail(c, status, message, err.Error())
}

// InvalidBody answers a request whose JSON body could not be decoded.
func InvalidBody(c *fiber.Ctx) error {
	return Fail(c, fiber.StatusBadRequest, "Invalid request body", services.ErrValidation.Error()+": malformed JSON")
}

// ErrorHandler is the fiber error handler. It keeps unmatched routes and panics inside the envelope.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			if fe.Code >= fiber.StatusInternalServerError {
				logger.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
				return Fail(c, fe.Code, "Internal server error", "")
			}
			return Fail(c, fe.Code, fe.Message, fe.Message)
		}
		return Error(c, logger, "Request failed", err)
	}
}
