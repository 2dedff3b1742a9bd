// Package application wires the evaluator catalog together: it decodes the
// declarative descriptor table, owns the descriptor registry and resolves
// caller settings against registered schemas.
package application

// CatalogConfig is the declarative descriptor table. It is the persisted
// and embedded surface of the catalog and round-trips through YAML and JSON
// without loss.
type CatalogConfig struct {
	// Version is the semantic version of the catalog file format.
	Version string `yaml:"version" json:"version" validate:"required,semver"`
	// Evaluators lists the descriptors in registration order.
	Evaluators []EvaluatorConfig `yaml:"evaluators" json:"evaluators" validate:"required,min=1,dive"`
}

// EvaluatorConfig is one row of the descriptor table.
type EvaluatorConfig struct {
	// ID is the namespaced "<vendor>/<name>" identifier.
	ID string `yaml:"id" json:"id" validate:"required,max=200,evaluatorid"`
	// Name is the human-readable display name. When omitted it is derived
	// from the identifier.
	Name string `yaml:"name,omitempty" json:"name,omitempty" validate:"max=200"`
	// Description is free text.
	Description string `yaml:"description,omitempty" json:"description,omitempty" validate:"max=4000"`
	// Category tags the evaluator's purpose; unknown values are accepted.
	Category string `yaml:"category" json:"category" validate:"required,max=50,fieldname"`
	// DocsURL links to upstream documentation.
	DocsURL string `yaml:"docs_url,omitempty" json:"docs_url,omitempty" validate:"omitempty,url"`
	// IsGuardrail marks evaluators suitable for blocking decisions.
	IsGuardrail bool `yaml:"is_guardrail" json:"is_guardrail"`
	// Settings declares the top-level settings group in display order.
	Settings []FieldConfig `yaml:"settings,omitempty" json:"settings,omitempty" validate:"dive"`
	// Result documents the evaluator's output fields.
	Result *ResultConfig `yaml:"result,omitempty" json:"result,omitempty"`
}

// FieldConfig declares one settings field. Type selects which of the
// remaining keys apply: Values for enums, Fields for groups and Items for
// lists.
type FieldConfig struct {
	// Name is the settings key. It is ignored for list items.
	Name string `yaml:"name,omitempty" json:"name,omitempty" validate:"omitempty,max=100,fieldname"`
	// Description is help text shown by tooling.
	Description string `yaml:"description,omitempty" json:"description,omitempty" validate:"max=2000"`
	// Type is one of boolean, number, integer, string, enum, group or list.
	Type string `yaml:"type" json:"type" validate:"required,oneof=boolean number integer string enum group list"`
	// Optional additionally accepts an explicit null for the field.
	Optional bool `yaml:"optional,omitempty" json:"optional,omitempty"`
	// Default is the value substituted when the caller omits the field.
	// Groups derive their default from their children and must not set it.
	Default any `yaml:"default,omitempty" json:"default,omitempty"`
	// Values lists the allowed literals of an enum in display order.
	Values []string `yaml:"values,omitempty" json:"values,omitempty" validate:"required_if=Type enum,dive,required"`
	// Fields declares the children of a group.
	Fields []FieldConfig `yaml:"fields,omitempty" json:"fields,omitempty" validate:"dive"`
	// Items declares the element schema of a list.
	Items *FieldConfig `yaml:"items,omitempty" json:"items,omitempty" validate:"required_if=Type list"`
}

// ResultConfig documents the standard result fields of an evaluator.
type ResultConfig struct {
	Score  *ResultFieldConfig `yaml:"score,omitempty" json:"score,omitempty"`
	Passed *ResultFieldConfig `yaml:"passed,omitempty" json:"passed,omitempty"`
}

// ResultFieldConfig describes one result field.
type ResultFieldConfig struct {
	Description string `yaml:"description" json:"description" validate:"max=2000"`
}
