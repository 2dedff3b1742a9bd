package application

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// evaluatorIDPattern matches "<vendor>/<name>" identifiers. Both parts start
// with a letter or digit and may then contain letters, digits, '_', '-'
// and '.'.
var evaluatorIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]*/[A-Za-z0-9][A-Za-z0-9_.\-]*$`)

// ValidateEvaluatorID reports whether id is a well-formed "<vendor>/<name>"
// identifier.
func ValidateEvaluatorID(id string) error {
	if id == "" {
		return fmt.Errorf("evaluator identifier is empty")
	}
	if !evaluatorIDPattern.MatchString(id) {
		return fmt.Errorf("evaluator identifier %q must have the form <vendor>/<name>", id)
	}
	return nil
}

// RegisterCatalogValidators registers the custom validation functions used
// in catalog struct tags.
// RegisterCatalogValidators returns an error if any registration fails.
func RegisterCatalogValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}

	if err := v.RegisterValidation("evaluatorid", validateEvaluatorIDTag); err != nil {
		return fmt.Errorf("failed to register evaluatorid validator: %w", err)
	}

	if err := v.RegisterValidation("fieldname", validateFieldName); err != nil {
		return fmt.Errorf("failed to register fieldname validator: %w", err)
	}

	return nil
}

// newCatalogValidator returns a validator with the catalog validators
// registered.
func newCatalogValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their catalog key rather than the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := RegisterCatalogValidators(v); err != nil {
		return nil, err
	}
	return v, nil
}

// validateSemver validates that a string follows semantic versioning
// format (X.Y.Z where X, Y, Z are non-negative integers).
func validateSemver(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var major, minor, patch int
	n, err := fmt.Sscanf(value, "%d.%d.%d", &major, &minor, &patch)
	return err == nil && n == 3 && major >= 0 && minor >= 0 && patch >= 0
}

func validateEvaluatorIDTag(fl validator.FieldLevel) bool {
	return evaluatorIDPattern.MatchString(fl.Field().String())
}

// validateFieldName rejects settings keys and categories that contain path
// delimiters or whitespace.
func validateFieldName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	return name != "" && !strings.ContainsAny(name, ".[] \t\n/")
}

// describeValidationErrors flattens validator errors into one message per
// failing field, using the YAML namespace of the field.
func describeValidationErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s: failed %q (%s)", fe.Namespace(), fe.Tag(), fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return msgs
}
