// Package validation wraps go-playground/validator with readable error messages
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates the tagged fields of value
func Struct[T any](value T) error {
	if err := validate.Struct(value); err != nil {
		return describe(value, err)
	}
	return nil
}

// Var validates a single value against tag
func Var(value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		return describe(value, err)
	}
	return nil
}

func describe(input any, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if field == "" {
			field = fmt.Sprintf("%T", input)
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed rule '%s=%s' (got '%v')", field, fe.Tag(), fe.Param(), fe.Value()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed rule '%s' (got '%v')", field, fe.Tag(), fe.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
