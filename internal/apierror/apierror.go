// Package apierror renders every failure of the HTTP API as
// {"error": "<kind>", "message": "<text>"}.
package apierror

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Error kinds.
const (
	BadRequest          = "bad_request"
	ValidationFailed    = "validation_failed"
	Unauthorized        = "unauthorized"
	NotFound            = "not_found"
	Conflict            = "conflict"
	RateLimited         = "rate_limited"
	StoreUnavailable    = "store_unavailable"
	CatalogFileError    = "catalog_file_error"
	UpstreamUnavailable = "upstream_unavailable"
	Internal            = "internal_error"
)

// Respond writes the error body with status. extra entries are merged into
// the body, e.g. "missing_fields".
func Respond(c *fiber.Ctx, status int, kind, message string, extra ...fiber.Map) error {
	body := fiber.Map{
		"error":   kind,
		"message": message,
	}
	for _, m := range extra {
		for k, v := range m {
			body[k] = v
		}
	}
	return c.Status(status).JSON(body)
}

// ErrorHandler is the app-wide fiber error handler. Errors that reach it
// were not mapped by a handler: fiber errors keep their status, anything
// else is an internal error.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		kind := BadRequest
		switch fe.Code {
		case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
			kind = NotFound
		case fiber.StatusUnauthorized:
			kind = Unauthorized
		case fiber.StatusTooManyRequests:
			kind = RateLimited
		case fiber.StatusServiceUnavailable:
			kind = StoreUnavailable
		default:
			if fe.Code >= fiber.StatusInternalServerError {
				kind = Internal
			}
		}
		return Respond(c, fe.Code, kind, fe.Message)
	}
	return Respond(c, fiber.StatusInternalServerError, Internal, "internal server error")
}
