package validator

import (
	"errors"
	"fmt"

	"github.com/confetti-go/confetti/internal/db/models"
)

// ErrValidation matches every *ValidationError through errors.Is.
var ErrValidation = errors.New("setting validation failed")

// ValidationError describes why a value was refused for a definition.
type ValidationError struct {
	// Key is the definition key the value was validated against.
	Key string
	// Type is the declared type of the definition.
	Type models.SettingType
	// Reason is a human-readable explanation.
	Reason string
}

// Error implements error.
func (e *ValidationError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("setting %q: %s", e.Key, e.Reason)
	}

	return fmt.Sprintf("setting %q (%s): %s", e.Key, e.Type, e.Reason)
}

// Is reports ErrValidation as a match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation //nolint:errorlint // sentinel comparison
}

func invalid(def *models.SettingDefinition, format string, args ...any) error {
	return &ValidationError{
		Key:    def.Key,
		Type:   def.Type,
		Reason: fmt.Sprintf(format, args...),
	}
}
