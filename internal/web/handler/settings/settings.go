// Package settings serves the read and write API of settings.
package settings

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/confetti-go/confetti/internal/auth"
	"github.com/confetti-go/confetti/internal/db/controller/setting"
	"github.com/confetti-go/confetti/internal/db/models"
	"github.com/confetti-go/confetti/internal/resolver"
	"github.com/confetti-go/confetti/internal/response"
	"github.com/confetti-go/confetti/internal/validator"
	"github.com/confetti-go/confetti/internal/web/handler"
)

const (
	// Path is the base path of the settings API.
	Path = handler.RootPath + "settings"

	// FrontendPath lists the frontend settings.
	FrontendPath = Path + "/frontend"

	// DetailPath addresses one setting by key.
	DetailPath = Path + "/:key"

	msgNotFound     = "setting not found"
	msgForbidden    = "not enough permissions"
	msgUnauthorized = "authentication required"
	msgNotEditable  = "setting is not editable"
)

// WriteRequest is the body of PATCH requests. A null value clears the
// override of the scope.
type WriteRequest struct {
	Value json.RawMessage `json:"value" validate:"required"`
	Scope models.Scope    `json:"scope" validate:"omitempty,oneof=global user"`
}

// Service is the settings handler service.
type Service struct {
	handler.Service
	resolver *resolver.Resolver
	respond  response.Func
}

// Handler is the settings handler.
var Handler = Service{}

// Init initializes the settings handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) {
	if app == nil || !deps.Valid() {
		log.Fatal().Msg(handler.ErrNilDepsFatalLogMsg)
		return
	}

	s.resolver = deps.Resolver
	s.respond = deps.Respond

	// the static frontend route has to win over the key route
	app.Get(Path, s.List)
	app.Get(FrontendPath, s.Frontend)
	app.Get(DetailPath, s.Get)
	app.Patch(DetailPath, s.Patch)
}

// List returns every setting. Non staff users only see editable ones.
func (s *Service) List(c *fiber.Ctx) error {
	identity := auth.FromContext(c)

	items, err := s.resolver.List(identity.ID(), identity.Privileged())
	if err != nil {
		log.Error().Err(err).Msg("failed to list settings")

		return err
	}

	return s.respond(c, fiber.StatusOK, items)
}

// Frontend returns the cached frontend subset.
func (s *Service) Frontend(c *fiber.Ctx) error {
	items, err := s.resolver.Frontend()
	if err != nil {
		log.Error().Err(err).Msg("failed to list frontend settings")

		return err
	}

	return s.respond(c, fiber.StatusOK, items)
}

// Get returns one setting for the requester.
func (s *Service) Get(c *fiber.Ctx) error {
	identity := auth.FromContext(c)

	def, err := s.definition(c.Params("key"), identity)
	if err != nil {
		return s.fail(c, err)
	}

	item, err := s.resolver.Item(def, identity.ID())
	if err != nil {
		return err
	}

	return s.respond(c, fiber.StatusOK, item)
}

// Patch writes a value. Without scope, or with scope user, the requester's
// override is written; scope global needs a staff user.
func (s *Service) Patch(c *fiber.Ctx) error {
	identity := auth.FromContext(c)

	def, err := s.definition(c.Params("key"), identity)
	if err != nil {
		return s.fail(c, err)
	}

	req := new(WriteRequest)
	if err := c.BodyParser(req); err != nil {
		return s.respond(c, fiber.StatusBadRequest, handler.BodyError{Detail: err.Error()})
	}

	if bodyErr := handler.ValidateBody(req); bodyErr != nil {
		return s.respond(c, fiber.StatusBadRequest, bodyErr)
	}

	var user *uint64

	scope := req.Scope
	if scope == models.ScopeGlobal {
		if !identity.Privileged() {
			return s.respond(c, fiber.StatusForbidden, response.Message{Detail: msgForbidden})
		}
	} else {
		if identity == nil {
			return s.respond(c, fiber.StatusUnauthorized, response.Message{Detail: msgUnauthorized})
		}

		scope = models.ScopeUser
		user = identity.ID()
	}

	value, err := models.JSON(req.Value).Decode()
	if err != nil {
		return s.respond(c, fiber.StatusBadRequest, handler.BodyError{Detail: err.Error()})
	}

	if _, err := s.resolver.SetValue(def.Key, value, user, &scope); err != nil {
		return s.fail(c, err)
	}

	item, err := s.resolver.Item(def, user)
	if err != nil {
		return err
	}

	return s.respond(c, fiber.StatusOK, item)
}

// definition loads key. Non-editable definitions only exist for superusers.
func (s *Service) definition(key string, identity *auth.Identity) (*models.SettingDefinition, error) {
	def, err := s.resolver.Store().GetDefinition(key)
	if err != nil {
		return nil, err
	}

	if !def.Editable && (identity == nil || !identity.Superuser) {
		return nil, setting.ErrNotFound
	}

	return def, nil
}

// fail maps domain errors to responses and hands the rest to the error handler.
func (s *Service) fail(c *fiber.Ctx, err error) error {
	var verr *validator.ValidationError

	switch {
	case errors.Is(err, setting.ErrNotFound), errors.Is(err, setting.ErrKeyEmpty):
		return s.respond(c, fiber.StatusNotFound, response.Message{Detail: msgNotFound})
	case errors.As(err, &verr):
		return s.respond(c, fiber.StatusBadRequest, ValidationMessage{Detail: verr.Reason, Key: verr.Key})
	case errors.Is(err, resolver.ErrNotEditable):
		return s.respond(c, fiber.StatusForbidden, response.Message{Detail: msgNotEditable})
	default:
		log.Error().Err(err).Msg("settings request failed")

		return err
	}
}

// ValidationMessage is the payload of a rejected value.
type ValidationMessage struct {
	Detail string `json:"detail"`
	Key    string `json:"key"`
}
