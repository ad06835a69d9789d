package validator

import (
	"errors"
	"regexp"

	playground "github.com/go-playground/validator/v10"

	"github.com/confetti-go/confetti/internal/db/models"
)

// KeyPattern is the allowed shape of a definition key.
var KeyPattern = regexp.MustCompile(`^[a-z0-9_.-]+$`) //nolint:gochecknoglobals

var structValidator = newStructValidator() //nolint:gochecknoglobals

func newStructValidator() *playground.Validate {
	v := playground.New()

	_ = v.RegisterValidation("settingkey", func(fl playground.FieldLevel) bool {
		return KeyPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("settingtype", func(fl playground.FieldLevel) bool {
		return models.SettingType(fl.Field().String()).Valid()
	})

	return v
}

// ValidateDefinition checks a definition before it is stored: key shape,
// type, field lengths, choices and the default value.
func ValidateDefinition(def *models.SettingDefinition) error {
	if err := structValidator.Struct(def); err != nil {
		var fieldErrs playground.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]

			return invalid(def, "field %s failed on %q", fe.Field(), fe.Tag())
		}

		return invalid(def, "%v", err)
	}

	if def.Type == models.TypeChoice && len(def.Choices) == 0 {
		return invalid(def, "choice settings need at least one choice")
	}

	for i, choice := range def.Choices {
		if choice.Value == nil {
			return invalid(def, "choice %d has no value", i)
		}
	}

	if def.Default.IsNull() {
		return nil
	}

	value, err := def.Default.Decode()
	if err != nil {
		return invalid(def, "default is not valid JSON: %v", err)
	}

	if _, err := Validate(def, value); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return invalid(def, "default: %s", verr.Reason)
		}

		return err
	}

	return nil
}
