package httpapi

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandler centralizes error responses, grounded on
// SServet-fakturierung-backend/middlewares/error.go's three-way dispatch
// (fiber.Error, validator.ValidationErrors, anything else).
func ErrorHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(fiber.Map{
			"error": ErrorBody{Code: errorCodeForStatus(fe.Code), Message: fe.Message},
		})
	}

	if ve, ok := err.(validator.ValidationErrors); ok {
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  ErrorBody{Code: "INVALID_REQUEST", Message: "request validation failed"},
			"fields": fields,
		})
	}

	log.Printf("[httpapi] internal error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": ErrorBody{Code: "UNKNOWN_ERROR", Message: "internal server error"},
	})
}

// errorCodeForStatus maps an HTTP status set by a handler or middleware to
// its documented error code. Handlers that need a status/code pair other
// than these defaults (e.g. INVALID_STATE on a 400) build the JSON body
// themselves rather than going through fiber.NewError.
func errorCodeForStatus(status int) string {
	switch status {
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	default:
		return "INVALID_REQUEST"
	}
}
