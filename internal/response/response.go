// Package response holds the named strategies used to write API responses.
// The strategy is picked once at startup from [Confetti] ResponseMethod.
package response

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gofiber/fiber/v2"
)

const (
	// MethodDefault writes the payload as the JSON body.
	MethodDefault = "default"
	// MethodEnvelope wraps the payload in {"ok", "status", "data"|"error"}.
	MethodEnvelope = "envelope"
)

var (
	// ErrUnknownMethod is returned when no strategy is registered under a name.
	ErrUnknownMethod = errors.New("unknown response method")
	// ErrEmptyName is returned when registering a strategy without a name.
	ErrEmptyName = errors.New("response method name is empty")
	// ErrDuplicate is returned when a name is registered twice.
	ErrDuplicate = errors.New("response method already registered")
)

// Func writes data with the given HTTP status.
type Func func(c *fiber.Ctx, status int, data any) error

// Message is the payload of error responses.
type Message struct {
	Detail string `json:"detail"`
}

// Registry maps strategy names to Funcs.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry returns a Registry holding the built-in strategies.
func NewRegistry() *Registry {
	return &Registry{
		funcs: map[string]Func{
			MethodDefault:  Default,
			MethodEnvelope: Envelope,
		},
	}
}

// Register adds fn under name.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return ErrEmptyName
	}

	if _, ok := r.funcs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}

	r.funcs[name] = fn

	return nil
}

// Lookup returns the strategy registered under name. An empty name selects
// the default strategy.
func (r *Registry) Lookup(name string) (Func, error) {
	if name == "" {
		name = MethodDefault
	}

	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}

	return fn, nil
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Default writes data as the JSON body.
func Default(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(data)
}

// Envelope wraps data so clients can branch on "ok" without looking at
// the status code.
func Envelope(c *fiber.Ctx, status int, data any) error {
	body := fiber.Map{
		"ok":     status < fiber.StatusBadRequest,
		"status": status,
	}

	if status < fiber.StatusBadRequest {
		body["data"] = data
	} else {
		body["error"] = data
	}

	return c.Status(status).JSON(body)
}
