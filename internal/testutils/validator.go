package testutils

import (
	"github.com/go-playground/validator/v10"
)

// NewTestValidator returns a validator configured like the catalog loader's,
// without the catalog-specific tags, so tests can register exactly the
// validators they exercise.
func NewTestValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}
