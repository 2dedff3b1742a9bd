// Package domain contains the core model of the evaluator catalog: descriptors,
// the settings schema tree, and the resolution algorithm that merges caller
// settings over defaults and validates them.
package domain

import "strings"

// Category tags an evaluator by purpose. The set is open: values outside
// the known constants are accepted and listed as-is.
type Category string

// Known evaluator categories.
const (
	CategorySafety  Category = "safety"
	CategoryPolicy  Category = "policy"
	CategoryRAG     Category = "rag"
	CategoryQuality Category = "quality"
	CategoryCustom  Category = "custom"
	CategoryOther   Category = "other"
)

// KnownCategories returns the predefined categories in display order.
func KnownCategories() []Category {
	return []Category{
		CategorySafety,
		CategoryPolicy,
		CategoryRAG,
		CategoryQuality,
		CategoryCustom,
		CategoryOther,
	}
}

// ResultField documents one output field of an evaluator.
type ResultField struct {
	Description string
}

// ResultShape describes the evaluator-specific meaning of the standard
// result fields. Most evaluators leave it empty; it is reserved for
// richer result typing.
type ResultShape struct {
	Score  *ResultField
	Passed *ResultField
}

// IsEmpty reports whether the shape documents no fields.
func (r ResultShape) IsEmpty() bool { return r.Score == nil && r.Passed == nil }

func (r ResultShape) clone() ResultShape {
	var out ResultShape
	if r.Score != nil {
		s := *r.Score
		out.Score = &s
	}
	if r.Passed != nil {
		p := *r.Passed
		out.Passed = &p
	}
	return out
}

// EvaluatorDescriptor is the static metadata bundle for one evaluator
// identifier. Descriptors are built once at bootstrap and are read-only
// once registered.
type EvaluatorDescriptor struct {
	// ID is the globally unique "<vendor>/<name>" identifier. It is
	// case-sensitive and never changes once registered.
	ID string

	// Name is the human-readable display name, e.g. "OpenAI Moderation".
	Name string

	// Description is free text and may be empty.
	Description string

	// Category tags the evaluator's purpose.
	Category Category

	// DocsURL links to upstream documentation and may be empty.
	DocsURL string

	// IsGuardrail marks evaluators suitable for blocking decisions.
	IsGuardrail bool

	// Settings is the schema of the evaluator's configurable settings,
	// including their defaults. An empty group means no settings.
	Settings GroupField

	// Result documents the evaluator's output fields.
	Result ResultShape
}

// Vendor returns the namespace part of the identifier.
func (d EvaluatorDescriptor) Vendor() string {
	vendor, _, _ := strings.Cut(d.ID, "/")
	return vendor
}

// EvaluatorName returns the part of the identifier after the vendor.
func (d EvaluatorDescriptor) EvaluatorName() string {
	_, name, _ := strings.Cut(d.ID, "/")
	return name
}

// Defaults returns the fully defaulted settings of the evaluator.
func (d EvaluatorDescriptor) Defaults() Settings { return Defaults(d.Settings) }

// HasSettings reports whether the evaluator takes any configurable settings.
func (d EvaluatorDescriptor) HasSettings() bool { return !d.Settings.IsEmpty() }

// Clone returns a deep copy sharing no mutable state with d.
func (d EvaluatorDescriptor) Clone() EvaluatorDescriptor {
	out := d
	out.Settings = d.Settings.cloneGroup()
	out.Result = d.Result.clone()
	return out
}
