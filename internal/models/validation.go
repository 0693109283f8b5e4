package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "" || Platform(s).Valid()
		})
		validate = v
	})
	return validate
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidateCredential checks that a credential can be stored.
// Only the access token is mandatory; every other field is optional.
func ValidateCredential(c *PlatformCredential) error {
	if c == nil {
		return &ValidationError{Field: "credential", Message: "credential is required"}
	}
	if err := getValidator().Struct(c); err != nil {
		return toValidationError(err)
	}
	for i, s := range c.Scopes {
		if strings.TrimSpace(s) == "" {
			return &ValidationError{Field: fmt.Sprintf("scopes[%d]", i), Message: "scope must not be empty"}
		}
	}
	return nil
}

// ValidateStoredCredential checks a record read back from storage. Records
// written by older clients may carry empty scope entries, so only the
// struct rules apply here.
func ValidateStoredCredential(c *PlatformCredential) error {
	if c == nil {
		return &ValidationError{Field: "credential", Message: "credential is required"}
	}
	if err := getValidator().Struct(c); err != nil {
		return toValidationError(err)
	}
	return nil
}

// toValidationError reports the first failing field in the same shape as hand-written checks
func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Field: "credential", Message: err.Error()}
	}

	fe := fieldErrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Message: field + " is required"}
	case "platform":
		return &ValidationError{Field: field, Message: "unsupported platform"}
	default:
		return &ValidationError{Field: field, Message: "invalid value"}
	}
}
