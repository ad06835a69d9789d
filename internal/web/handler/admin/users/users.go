// Package users lets staff users remove a user together with its overrides.
package users

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/confetti-go/confetti/internal/auth"
	"github.com/confetti-go/confetti/internal/db/controller/setting"
	"github.com/confetti-go/confetti/internal/db/controller/user"
	"github.com/confetti-go/confetti/internal/response"
	"github.com/confetti-go/confetti/internal/web/handler"
)

const (
	// Path is the base path of the user endpoints.
	Path = handler.RootPath + "admin/users"

	// UserPath addresses one user by id.
	UserPath = Path + "/:id"
)

// DeleteResponse reports the removed user and how many overrides it held.
type DeleteResponse struct {
	UserID        uint64 `json:"user_id"`
	ValuesRemoved int    `json:"values_removed"`
}

// Service is the user handler service.
type Service struct {
	handler.Service
	store   *setting.Store
	respond response.Func
}

// Handler is the user handler.
var Handler = Service{}

// Init initializes the user handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) {
	if app == nil || !deps.Valid() {
		log.Fatal().Msg(handler.ErrNilDepsFatalLogMsg)
		return
	}

	s.store = deps.Resolver.Store()
	s.respond = deps.Respond

	app.Delete(UserPath, auth.RequireStaff(), s.Delete)
}

// Delete removes the user's overrides, invalidating their cache entries,
// and then the user itself.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return s.respond(c, fiber.StatusBadRequest, response.Message{Detail: "user id must be a positive integer"})
	}

	userID := uint64(id)
	removed := 0

	err = s.store.Transaction(func(tx *setting.Store) error {
		n, err := tx.DeleteUserValues(userID)
		if err != nil {
			return err
		}

		removed = n

		return user.Delete(tx.DB(), userID)
	})

	switch {
	case errors.Is(err, user.ErrUserNotFound):
		return s.respond(c, fiber.StatusNotFound, response.Message{Detail: err.Error()})
	case err != nil:
		log.Error().Err(err).Uint64("user_id", userID).Msg("failed to delete user")

		return err
	}

	log.Info().Uint64("user_id", userID).Int("values_removed", removed).Msg("user deleted")

	return s.respond(c, fiber.StatusOK, DeleteResponse{UserID: userID, ValuesRemoved: removed})
}
