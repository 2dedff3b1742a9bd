package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the registry and settings resolution. The typed
// errors below unwrap to these, so callers can match with errors.Is and
// still reach the details with errors.As.
var (
	// ErrDuplicateIdentifier indicates that an evaluator identifier is
	// already registered.
	ErrDuplicateIdentifier = errors.New("duplicate evaluator identifier")

	// ErrUnknownEvaluator indicates that no evaluator is registered under
	// the requested identifier.
	ErrUnknownEvaluator = errors.New("unknown evaluator")

	// ErrUnknownField indicates that a settings object contains a key the
	// schema does not declare.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidFieldType indicates that a settings value has the wrong
	// kind or is outside its enum's allowed values.
	ErrInvalidFieldType = errors.New("invalid field type")

	// ErrInvalidDescriptor indicates that a descriptor violates a schema or
	// metadata invariant and cannot be registered.
	ErrInvalidDescriptor = errors.New("invalid descriptor")
)

// DuplicateIdentifierError is returned when registering an identifier that
// is already present. The registry is left unchanged.
type DuplicateIdentifierError struct {
	// ID is the identifier that was already registered.
	ID string
}

// Error implements the error interface for DuplicateIdentifierError.
func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("duplicate evaluator identifier: %q is already registered", e.ID)
}

// Unwrap returns ErrDuplicateIdentifier.
func (e *DuplicateIdentifierError) Unwrap() error { return ErrDuplicateIdentifier }

// NewDuplicateIdentifierError creates a DuplicateIdentifierError for id.
func NewDuplicateIdentifierError(id string) *DuplicateIdentifierError {
	return &DuplicateIdentifierError{ID: id}
}

// UnknownEvaluatorError is returned when looking up an identifier that is
// not registered.
type UnknownEvaluatorError struct {
	// ID is the identifier that was requested.
	ID string

	// Suggestions lists registered identifiers close to ID, nearest first.
	Suggestions []string
}

// Error implements the error interface for UnknownEvaluatorError.
func (e *UnknownEvaluatorError) Error() string {
	msg := fmt.Sprintf("unknown evaluator %q", e.ID)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", quoteJoin(e.Suggestions))
	}
	return msg
}

// Unwrap returns ErrUnknownEvaluator.
func (e *UnknownEvaluatorError) Unwrap() error { return ErrUnknownEvaluator }

// NewUnknownEvaluatorError creates an UnknownEvaluatorError.
func NewUnknownEvaluatorError(id string, suggestions []string) *UnknownEvaluatorError {
	return &UnknownEvaluatorError{ID: id, Suggestions: suggestions}
}

// UnknownFieldError is returned when a settings object contains a key
// that the evaluator's schema does not declare.
type UnknownFieldError struct {
	// Path is the dotted path of the offending key, including the key.
	Path string

	// Key is the offending key itself.
	Key string

	// Suggestions lists declared sibling names close to Key.
	Suggestions []string
}

// Error implements the error interface for UnknownFieldError.
func (e *UnknownFieldError) Error() string {
	msg := fmt.Sprintf("unknown field %q at %s", e.Key, e.Path)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", quoteJoin(e.Suggestions))
	}
	return msg
}

// Unwrap returns ErrUnknownField.
func (e *UnknownFieldError) Unwrap() error { return ErrUnknownField }

// NewUnknownFieldError creates an UnknownFieldError.
func NewUnknownFieldError(path, key string, suggestions []string) *UnknownFieldError {
	return &UnknownFieldError{Path: path, Key: key, Suggestions: suggestions}
}

// InvalidFieldTypeError is returned when a supplied settings value does
// not match the kind declared by the schema.
type InvalidFieldTypeError struct {
	// Path is the dotted path of the field. It is empty for the root.
	Path string

	// Expected describes what the schema accepts, e.g. "boolean" or
	// `one of ["LIKELY" "VERY_LIKELY"]`.
	Expected string

	// Actual describes what was supplied, e.g. `string "NOT_A_LEVEL"`.
	Actual string
}

// Error implements the error interface for InvalidFieldTypeError.
func (e *InvalidFieldTypeError) Error() string {
	return fmt.Sprintf("invalid value at %s: expected %s, got %s", displayPath(e.Path), e.Expected, e.Actual)
}

// Unwrap returns ErrInvalidFieldType.
func (e *InvalidFieldTypeError) Unwrap() error { return ErrInvalidFieldType }

// NewInvalidFieldTypeError creates an InvalidFieldTypeError.
func NewInvalidFieldTypeError(path, expected, actual string) *InvalidFieldTypeError {
	return &InvalidFieldTypeError{Path: path, Expected: expected, Actual: actual}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap returns ErrInvalidDescriptor.
func (e *ValidationError) Unwrap() error { return ErrInvalidDescriptor }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}

func quoteJoin(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}
