package handlers

import (
	"errors"
	"strings"

	applog "stockroom/internal/log"
	"stockroom/internal/services"

	"github.com/gofiber/fiber/v2"
)

const localUser = "user"

// RequireUser enforces a valid bearer token for a user that still exists.
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get(fiber.HeaderAuthorization)
		tok := ""
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			tok = strings.TrimSpace(h[7:])
		}
		if tok == "" {
			return jsonErr(c, fiber.StatusUnauthorized, "Access token required")
		}
		u, err := auth.Authenticate(tok)
		switch {
		case errors.Is(err, services.ErrNotFound):
			applog.Security(c, "auth.token.unknown_user", nil)
			return jsonErr(c, fiber.StatusUnauthorized, "User no longer exists")
		case errors.Is(err, services.ErrForbidden):
			applog.Security(c, "auth.token.invalid", nil)
			return jsonErr(c, fiber.StatusForbidden, "Invalid or expired token")
		case err != nil:
			return respondErr(c, "auth.token", err)
		}
		c.Locals(localUser, u)
		c.Locals(applog.LocalUserID, u.ID)
		return c.Next()
	}
}
