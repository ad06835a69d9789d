package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/confetti-go/confetti/internal/db/controller/user"
	"github.com/confetti-go/confetti/internal/db/models"
	fiberlogger "github.com/confetti-go/confetti/internal/logger/adapter/fiber"
)

// Middleware resolves the request identity with fn and ensures the user row
// exists so user scoped values can reference it.
func Middleware(db *gorm.DB, fn IdentityFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := fn(c)
		if err != nil {
			log.Warn().Err(err).Msg("rejecting request with invalid identity")

			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		// anonymous request
		if identity == nil {
			return c.Next()
		}

		if err := user.Ensure(db, &models.User{
			ID:        identity.UserID,
			Username:  identity.Username,
			Active:    true,
			Staff:     identity.Staff,
			Superuser: identity.Superuser,
		}); err != nil {
			log.Error().Err(err).Uint64("user_id", identity.UserID).Msg("failed to ensure user")

			return fiber.NewError(fiber.StatusInternalServerError, "Internal Server Error")
		}

		c.Locals(LocalIdentity, identity)
		c.Locals(fiberlogger.LocalUser, identity.UserID)

		return c.Next()
	}
}

// RequireAuthenticated rejects anonymous requests.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if FromContext(c) == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}

		return c.Next()
	}
}

// RequireStaff rejects requests of users that are neither staff nor superuser.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := FromContext(c)
		if identity == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}

		if !identity.Privileged() {
			log.Warn().Uint64("user_id", identity.UserID).Msg("user lacks staff permission")

			return fiber.NewError(fiber.StatusForbidden, "Forbidden: You don't have permission to access this resource")
		}

		return c.Next()
	}
}
