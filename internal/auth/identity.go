package auth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cast"
)

// LocalIdentity is the fiber local the resolved *Identity is stored in.
const LocalIdentity = "confetti.identity"

// Identity is the requesting user.
type Identity struct {
	UserID    uint64
	Username  string
	Staff     bool
	Superuser bool
}

// Privileged reports whether the identity may change global values.
func (i *Identity) Privileged() bool {
	return i != nil && (i.Staff || i.Superuser)
}

// ID returns a pointer to the user id, nil for an anonymous request.
func (i *Identity) ID() *uint64 {
	if i == nil {
		return nil
	}

	id := i.UserID

	return &id
}

// IdentityFunc resolves the identity of a request. A nil identity without
// error means the request is anonymous.
type IdentityFunc func(c *fiber.Ctx) (*Identity, error)

// Headers names the identity headers.
type Headers struct {
	User      string
	Username  string
	Staff     string
	Superuser string
}

// DefaultHeaders returns the X-Confetti-* header names.
func DefaultHeaders() Headers {
	return Headers{
		User:      "X-Confetti-User",
		Username:  "X-Confetti-Username",
		Staff:     "X-Confetti-Staff",
		Superuser: "X-Confetti-Superuser",
	}
}

// HeaderIdentity returns an IdentityFunc reading the identity from h.
func HeaderIdentity(h Headers) IdentityFunc {
	return func(c *fiber.Ctx) (*Identity, error) {
		raw := strings.TrimSpace(c.Get(h.User))
		if raw == "" {
			return nil, nil
		}

		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidUserID, raw)
		}

		identity := &Identity{
			UserID:   id,
			Username: strings.TrimSpace(c.Get(h.Username)),
		}

		if identity.Staff, err = flag(c.Get(h.Staff)); err != nil {
			return nil, err
		}

		if identity.Superuser, err = flag(c.Get(h.Superuser)); err != nil {
			return nil, err
		}

		return identity, nil
	}
}

func flag(raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}

	b, err := cast.ToBoolE(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrInvalidFlag, raw)
	}

	return b, nil
}

// FromContext returns the identity stored by Middleware, nil when anonymous.
func FromContext(c *fiber.Ctx) *Identity {
	identity, _ := c.Locals(LocalIdentity).(*Identity)

	return identity
}
