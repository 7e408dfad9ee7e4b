package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/dirgate/dirgate/internal/db/models"
	"github.com/dirgate/dirgate/internal/web/session"
)

// RequireUser creates Fiber middleware that requires a valid session.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := sessionUser(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
		}

		c.Locals("CurrentUser", user)

		return c.Next()
	}
}

// RequireAdmin creates Fiber middleware that requires a valid session for an
// administrator account.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := sessionUser(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
		}

		if !user.Admin {
			log.Warn().Uint64("user_id", user.ID).
				Msg("user lacks administrative access")

			return c.Status(fiber.StatusForbidden).SendString("Forbidden: administrative access required")
		}

		c.Locals("CurrentUser", user)

		return c.Next()
	}
}

// sessionUser reads the session cookie and returns the logged-in user.
func sessionUser(c *fiber.Ctx) (models.User, bool) {
	sessionID := c.Cookies("session")
	if sessionID == "" {
		return models.User{}, false
	}

	sessionData := new(session.Data)
	if err := sessionData.Read(sessionID); err != nil {
		log.Debug().Err(err).Msg("failed to read session")

		return models.User{}, false
	}

	if sessionData.User.ID == 0 {
		return models.User{}, false
	}

	return sessionData.User, true
}
