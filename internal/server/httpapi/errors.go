package httpapi

import (
	"errors"

	"docvault/internal/common"

	"github.com/gofiber/fiber/v2"
)

// errorHandler is the single place service errors become HTTP responses.
// Classified errors carry a client-safe message; everything else collapses to
// a generic 500 so internals never leak.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, common.ErrorInvalidCredentials),
		errors.Is(err, common.ErrorInvalidToken),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	var appErr *common.Error
	if errors.As(err, &appErr) {
		status := common.HTTPStatus(appErr.Kind)
		msg := appErr.Msg
		if appErr.Kind == common.KindInternal {
			s.logger.Error(c.UserContext(), "request failed",
				"method", c.Method(), "path", c.Path(), "error", err)
			msg = "internal server error"
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	s.logger.Error(c.UserContext(), "request failed",
		"method", c.Method(), "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
