package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/confetti-go/confetti/internal/config"
	"github.com/confetti-go/confetti/internal/invalidation"
	"github.com/confetti-go/confetti/internal/resolver"
	"github.com/confetti-go/confetti/internal/response"
)

// Deps are the collaborators handlers are initialized with.
type Deps struct {
	Config      *config.Config
	Resolver    *resolver.Resolver
	Invalidator *invalidation.Invalidator
	Respond     response.Func
}

// Valid reports whether every dependency is set.
func (d *Deps) Valid() bool {
	return d != nil && d.Config != nil && d.Resolver != nil && d.Invalidator != nil && d.Respond != nil
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, deps *Deps)
}
