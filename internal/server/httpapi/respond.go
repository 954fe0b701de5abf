package httpapi

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/gofiber/fiber/v2"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

// fail writes an error body with an explicit status and detail. Handlers use
// it when the default wording of respondError does not fit the endpoint.
func (s *Server) fail(c *fiber.Ctx, status int, detail string) error {
	return c.Status(status).JSON(errorResponse{Detail: detail})
}

// respondError maps service errors onto HTTP statuses. Token failures of any
// kind collapse into one 401 so the response does not reveal whether a token
// was malformed, forged or merely expired.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	var vErr validation.Errors
	if errors.As(err, &vErr) {
		return s.fail(c, fiber.StatusBadRequest, vErr.Error())
	}

	switch {
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return s.fail(c, fiber.StatusUnauthorized, "Invalid token")
	case errors.Is(err, common.ErrorForbidden):
		return s.fail(c, fiber.StatusForbidden, "You need admin permission")
	case errors.Is(err, common.ErrorNotFound):
		return s.fail(c, fiber.StatusNotFound, "Not found")
	case errors.Is(err, common.ErrorConflict):
		return s.fail(c, fiber.StatusConflict, "Already exists")
	case errors.Is(err, common.ErrorInvalidRole):
		return s.fail(c, fiber.StatusBadRequest, "Invalid role")
	default:
		s.logger.Error(c.UserContext(), "request failed", "path", c.Path(), "error", err.Error())
		return s.fail(c, fiber.StatusInternalServerError, "Internal error")
	}
}
