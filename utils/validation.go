package utils

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
)

// FieldError is one entry of the structured validation error list
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// ValidationDetails converts a binding error into a list of field errors.
// Errors that are not validator or JSON type errors become a single entry.
func ValidationDetails(err error) []FieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, FieldError{
				Field:   fe.Field(),
				Tag:     fe.Tag(),
				Param:   fe.Param(),
				Message: fe.Error(),
			})
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []FieldError{{
			Field:   typeErr.Field,
			Tag:     "type",
			Param:   typeErr.Type.String(),
			Message: typeErr.Error(),
		}}
	}

	return []FieldError{{Tag: "body", Message: err.Error()}}
}
