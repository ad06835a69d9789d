package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one failed struct validation rule.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Value any    `json:"value"`
}

// BodyError is the response payload of a malformed request body.
type BodyError struct {
	Detail string       `json:"detail"`
	Fields []FieldError `json:"fields,omitempty"`
}

var validate = validator.New() //nolint:gochecknoglobals

// ValidateBody checks data against its validate struct tags. It returns
// nil when data is valid.
func ValidateBody(data any) *BodyError {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return &BodyError{Detail: err.Error()}
	}

	out := &BodyError{Detail: "invalid request body"}
	for _, e := range errs {
		out.Fields = append(out.Fields, FieldError{
			Field: e.Field(),
			Tag:   e.Tag(),
			Value: e.Value(),
		})
	}

	return out
}
