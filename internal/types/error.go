package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Error is the wire shape for every non-2xx response body.
type Error struct {
	Fields  *map[string]string `json:"fields,omitempty" validate:"optional"`
	Message string             `json:"message"          validate:"required"`
}

func StringError(err string) Error {
	return Error{Message: err}
}

// ValidationError maps field-level validator failures into the Fields map,
// keyed by the wire name of the offending field.
func ValidationError(err error) Error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return Error{Message: "validation error"}
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fieldError := range validationErrors {
		fields[fieldError.Field()] = fmt.Sprintf(
			"failed validation condition: %s",
			fieldError.Tag(),
		)
	}

	return Error{Message: "validation error", Fields: &fields}
}
