// Package cache serves the cache maintenance endpoints of staff users.
package cache

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/confetti-go/confetti/internal/auth"
	"github.com/confetti-go/confetti/internal/db/controller/setting"
	"github.com/confetti-go/confetti/internal/invalidation"
	"github.com/confetti-go/confetti/internal/resolver"
	"github.com/confetti-go/confetti/internal/response"
	"github.com/confetti-go/confetti/internal/web/handler"
)

const (
	// Path is the base path of the cache endpoints.
	Path = handler.RootPath + "admin/cache"

	// PurgePath drops cache entries.
	PurgePath = Path + "/purge"
)

// PurgeRequest selects what to purge: the entries of Keys, or everything.
type PurgeRequest struct {
	Keys []string `json:"keys" validate:"required_without=All,dive,required"`
	All  bool     `json:"all"`
}

// PurgeResponse reports how many entries were dropped. A full reset does
// not count entries.
type PurgeResponse struct {
	Purged int  `json:"purged"`
	All    bool `json:"all"`
}

// Service is the cache handler service.
type Service struct {
	handler.Service
	resolver    *resolver.Resolver
	invalidator *invalidation.Invalidator
	respond     response.Func
}

// Handler is the cache handler.
var Handler = Service{}

// Init initializes the cache handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) {
	if app == nil || !deps.Valid() {
		log.Fatal().Msg(handler.ErrNilDepsFatalLogMsg)
		return
	}

	s.resolver = deps.Resolver
	s.invalidator = deps.Invalidator
	s.respond = deps.Respond

	app.Post(PurgePath, auth.RequireStaff(), s.Purge)
}

// Purge drops the cache entries of the requested definitions.
func (s *Service) Purge(c *fiber.Ctx) error {
	req := new(PurgeRequest)
	if err := c.BodyParser(req); err != nil {
		return s.respond(c, fiber.StatusBadRequest, handler.BodyError{Detail: err.Error()})
	}

	if bodyErr := handler.ValidateBody(req); bodyErr != nil {
		return s.respond(c, fiber.StatusBadRequest, bodyErr)
	}

	if req.All {
		if err := s.invalidator.Reset(); err != nil {
			log.Error().Err(err).Msg("failed to reset cache")

			return err
		}

		log.Info().Msg("cache reset")

		return s.respond(c, fiber.StatusOK, PurgeResponse{All: true})
	}

	purged, err := s.invalidator.PurgeDefinitions(s.resolver.Store(), req.Keys...)
	if err != nil {
		if errors.Is(err, setting.ErrNotFound) {
			return s.respond(c, fiber.StatusNotFound, response.Message{Detail: err.Error()})
		}

		log.Error().Err(err).Strs("keys", req.Keys).Msg("failed to purge cache")

		return err
	}

	log.Info().Strs("keys", req.Keys).Int("purged", purged).Msg("cache purged")

	return s.respond(c, fiber.StatusOK, PurgeResponse{Purged: purged})
}
