package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
)

// ProblemDetail follows RFC 7807 for error responses.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// problemResponse returns an RFC 7807 Problem Detail error response.
func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	c.Set(fiber.HeaderContentType, "application/problem+json")
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}

// errorResponse maps err onto a problem response by its sentinel.
func errorResponse(c *fiber.Ctx, err error) error {
	var apiErr *perrors.APIError
	switch {
	case errors.Is(err, perrors.ErrInvalidInput):
		return problemResponse(c, fiber.StatusBadRequest, "invalid_input", "Bad Request", err.Error())
	case errors.Is(err, perrors.ErrNotFound):
		return problemResponse(c, fiber.StatusNotFound, "not_found", "Not Found", err.Error())
	case errors.Is(err, perrors.ErrGestureActive), errors.Is(err, perrors.ErrNoGesture):
		return problemResponse(c, fiber.StatusConflict, "gesture_conflict", "Conflict", err.Error())
	case errors.Is(err, perrors.ErrOutOfWindow):
		return problemResponse(c, fiber.StatusUnprocessableEntity, "out_of_window", "Unprocessable Entity", err.Error())
	case errors.Is(err, perrors.ErrRateLimit):
		return problemResponse(c, fiber.StatusTooManyRequests, "upstream_rate_limited", "Too Many Requests", err.Error())
	case errors.Is(err, perrors.ErrTimeout):
		return problemResponse(c, fiber.StatusGatewayTimeout, "upstream_timeout", "Gateway Timeout", err.Error())
	case errors.Is(err, perrors.ErrUnavailable), errors.As(err, &apiErr):
		return problemResponse(c, fiber.StatusBadGateway, "upstream_failure", "Bad Gateway", err.Error())
	default:
		return err
	}
}

func customErrorHandler(s *Server) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		s.logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")

		if code == fiber.StatusInternalServerError {
			// don't leak internal details
			return problemResponse(c, code, "internal_error", "Internal Server Error",
				"An internal error occurred")
		}
		return problemResponse(c, code, "http_error", fe.Message, err.Error())
	}
}
