package httpapi

import (
	"strings"

	"docvault/internal/common"
	"docvault/internal/server/auth"

	"github.com/gofiber/fiber/v2"
)

const userIDKey = "userID"

// requireAuth verifies the Bearer token and stores the acting user id in the
// request locals.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return common.ErrorInvalidToken
	}

	userID, err := auth.GetUserIDFromToken(token, []byte(s.config.SecretKey))
	if err != nil {
		return err
	}

	// A signed token alone is not enough: the account behind it must still
	// exist and be active, or deactivation would not take effect until the
	// token expires.
	user, err := s.users.GetByID(c.UserContext(), userID)
	if err != nil {
		if common.IsKind(err, common.KindNotFound) {
			return common.ErrorInvalidToken
		}
		return err
	}
	if !user.IsActive {
		return common.ErrorInvalidToken
	}

	c.Locals(userIDKey, userID)
	return c.Next()
}

// actorID returns the authenticated user id stored by requireAuth.
func actorID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}
