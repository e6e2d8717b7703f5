// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

// Package validation provides struct validation using go-playground/validator
// v10. It exposes a thread-safe singleton validator used by the registry and
// configuration loaders to reject malformed documents before the server
// starts serving traffic.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct validates a struct using its `validate` tags. Returns nil
// when valid, or an error listing every failed field.
func ValidateStruct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation failed: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}

// formatFieldError renders a single field error as a human-readable message.
func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field %q is required", fe.Field())
	case "email":
		return fmt.Sprintf("field %q must be a valid email address", fe.Field())
	case "oneof":
		return fmt.Sprintf("field %q must be one of [%s]", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("field %q must have at least %s elements or characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("field %q must have at most %s elements or characters", fe.Field(), fe.Param())
	case "url":
		return fmt.Sprintf("field %q must be a valid URL", fe.Field())
	default:
		return fmt.Sprintf("field %q failed %q validation", fe.Field(), fe.Tag())
	}
}
