package service

import (
	"errors"
	"strings"
)

// Shared across services.
var (
	ErrNoFieldsToUpdate = errors.New("no fields provided to update")
)

// ValidationError reports a caller input problem. Missing and Invalid list field names.
type ValidationError struct {
	Message string
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Missing) > 0 {
		b.WriteString(": missing ")
		b.WriteString(strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		if len(e.Missing) > 0 {
			b.WriteString(";")
		} else {
			b.WriteString(":")
		}
		b.WriteString(" invalid ")
		b.WriteString(strings.Join(e.Invalid, ", "))
	}
	return b.String()
}

// Fields returns every offending field name, missing first.
func (e *ValidationError) Fields() []string {
	return append(append([]string{}, e.Missing...), e.Invalid...)
}

// validationErrors accumulates field problems while a request is checked.
type validationErrors struct {
	missing []string
	invalid []string
}

func (v *validationErrors) miss(field string) { v.missing = append(v.missing, field) }

func (v *validationErrors) invalidate(field string) { v.invalid = append(v.invalid, field) }

// err returns nil when nothing was recorded.
func (v *validationErrors) err(message string) error {
	if len(v.missing) == 0 && len(v.invalid) == 0 {
		return nil
	}
	return &ValidationError{Message: message, Missing: v.missing, Invalid: v.invalid}
}
