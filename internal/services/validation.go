package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"inventory-service/internal/ledger"

	"github.com/go-playground/validator/v10"
)

// newValidator crea un validador que reporta los campos con su nombre JSON
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError convierte el error del validador en un ledger.ValidationError
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ledger.ValidationError{Reason: err.Error()}
	}

	fe := verrs[0]
	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "gt":
		reason = fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		reason = fmt.Sprintf("must be at least %s", fe.Param())
	case "min":
		reason = fmt.Sprintf("must have at least %s characters", fe.Param())
	case "max":
		reason = fmt.Sprintf("must have at most %s characters", fe.Param())
	case "datetime":
		reason = "must be a date in YYYY-MM-DD format"
	case "oneof":
		reason = fmt.Sprintf("must be one of [%s]", fe.Param())
	case "eqfield":
		reason = "does not match"
	default:
		reason = fmt.Sprintf("failed on %s", fe.Tag())
	}
	return &ledger.ValidationError{Field: fe.Field(), Reason: reason}
}

// trimOptional recorta espacios; vacío equivale a ausente
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
