// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator for structured validation.
type Validator struct {
	v *validator.Validate
}

// New creates a new Validator instance with the project's custom tags registered:
//
//	slotstrategy  speed | variety | balanced
//	operatingmode pro | manual
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("slotstrategy", oneOfFold("speed", "variety", "balanced"))
	_ = v.RegisterValidation("operatingmode", oneOfFold("pro", "manual"))
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s any) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field any, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}

func oneOfFold(allowed ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := strings.TrimSpace(fl.Field().String())
		for _, candidate := range allowed {
			if strings.EqualFold(value, candidate) {
				return true
			}
		}
		return false
	}
}
