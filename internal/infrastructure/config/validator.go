package config

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/alexisbeaulieu97/tunebatch/internal/infrastructure/resolver"
	apperrors "github.com/alexisbeaulieu97/tunebatch/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	versionPattern = regexp.MustCompile(`^\d+(\.\d+){0,2}$`)
	stepIDPattern  = regexp.MustCompile(`^[a-z0-9_-]+$`)
)

// validatorInstance configures and returns the shared validator. Field names
// in errors follow the yaml tags so messages point at the user's keys.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = v.RegisterValidation("version", func(fl validator.FieldLevel) bool {
			return versionPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("step_id", func(fl validator.FieldLevel) bool {
			return stepIDPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("placeholders", func(fl validator.FieldLevel) bool {
			return resolver.CheckPlaceholders(fl.Field().String()) == nil
		})

		validateInst = v
	})

	return validateInst
}

// ValidateDocument performs structural and cross-field validation.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return apperrors.NewValidationError("", "pipeline document is empty", nil)
	}

	if err := validatorInstance().Struct(doc); err != nil {
		return convertValidationError(err)
	}

	seen := make(map[string]int, len(doc.Steps))
	enabled := 0
	for i, step := range doc.Steps {
		if first, exists := seen[step.ID]; exists {
			return apperrors.NewValidationError(fieldForStep(i, "id"),
				fmt.Sprintf("duplicate step id %q (first defined at steps[%d])", step.ID, first), nil)
		}
		seen[step.ID] = i
		if step.IsEnabled() {
			enabled++
		}
	}
	if enabled == 0 {
		return apperrors.NewValidationError("steps", "at least one step must be enabled", nil)
	}

	return nil
}

// convertValidationError normalizes validator errors into validation errors
// naming the offending key path.
func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok && len(ves) > 0 {
		fe := ves[0]
		field := keyPath(fe)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, fe.Tag())
		if fe.Tag() == "placeholders" {
			if detail := resolver.CheckPlaceholders(fmt.Sprint(fe.Value())); detail != nil {
				msg = fmt.Sprintf("%s: %v", field, detail)
			}
		}
		return apperrors.NewValidationError(field, msg, err)
	}

	return apperrors.NewValidationError("", err.Error(), err)
}

// keyPath drops the root type name from the namespace, e.g.
// "Document.steps[1].command[0]" becomes "steps[1].command[0]".
func keyPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func fieldForStep(index int, field string) string {
	return fmt.Sprintf("steps[%d].%s", index, field)
}
