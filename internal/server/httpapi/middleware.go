package httpapi

import (
	"strings"

	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/gofiber/fiber/v2"
)

// localUserKey is where the authenticated user is stashed in request locals.
const localUserKey = "currentUser"

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Anything else comes back empty.
func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localUserKey).(*models.User)
	return user
}

// requireUser authenticates the bearer token and resolves it to the current
// user record before calling next. Missing, invalid and expired tokens all
// produce the same 401.
func (s *Server) requireUser(next fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return s.fail(c, fiber.StatusUnauthorized, "Invalid token")
		}

		user, err := s.users.Authenticate(c.UserContext(), token)
		if err != nil {
			return s.respondError(c, err)
		}

		c.Locals(localUserKey, user)
		return next(c)
	}
}

// requireAdmin is requireUser plus an admin role check against the role
// currently stored in the database.
func (s *Server) requireAdmin(next fiber.Handler) fiber.Handler {
	return s.requireUser(func(c *fiber.Ctx) error {
		if err := s.users.RequireRole(currentUser(c), models.RoleAdmin); err != nil {
			return s.respondError(c, err)
		}
		return next(c)
	})
}
