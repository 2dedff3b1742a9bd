package domain

import "time"

// Entry is the payload handed to an evaluator backend alongside its
// resolved settings.
type Entry struct {
	// Input is the prompt or user message being evaluated.
	Input string `json:"input,omitempty"`

	// Output is the generated response being evaluated.
	Output string `json:"output,omitempty"`

	// Contexts holds retrieved passages for RAG evaluators.
	Contexts []string `json:"contexts,omitempty"`

	// ExpectedOutput is the reference answer, when one exists.
	ExpectedOutput string `json:"expected_output,omitempty"`
}

// IsEmpty reports whether the entry carries no text at all.
func (e Entry) IsEmpty() bool {
	return e.Input == "" && e.Output == "" && len(e.Contexts) == 0 && e.ExpectedOutput == ""
}

// EvaluationStatus is the outcome class of a single evaluation.
type EvaluationStatus string

const (
	// StatusProcessed means the backend produced a score or verdict.
	StatusProcessed EvaluationStatus = "processed"

	// StatusSkipped means the backend declined to evaluate the entry,
	// for example because it had nothing to inspect.
	StatusSkipped EvaluationStatus = "skipped"

	// StatusError means the evaluation failed; Details holds the reason.
	StatusError EvaluationStatus = "error"
)

// EvaluationResult is what a backend returns for one entry. Its
// evaluator-specific meaning is documented by the descriptor's ResultShape.
type EvaluationResult struct {
	// EvaluatorID identifies the evaluator that produced the result.
	EvaluatorID string `json:"evaluator_id"`

	// Status classifies the outcome.
	Status EvaluationStatus `json:"status"`

	// Score is the numeric result, when the evaluator produces one.
	Score *float64 `json:"score,omitempty"`

	// Passed is the pass/fail verdict, when the evaluator produces one.
	Passed *bool `json:"passed,omitempty"`

	// Details explains the result in human-readable form.
	Details string `json:"details,omitempty"`

	// Raw holds the backend's untranslated response fields.
	Raw map[string]any `json:"raw,omitempty"`

	// Duration is how long the backend call took.
	Duration time.Duration `json:"duration_ns"`
}

// Processed builds a processed result.
func Processed(score *float64, passed *bool, details string) EvaluationResult {
	return EvaluationResult{Status: StatusProcessed, Score: score, Passed: passed, Details: details}
}

// Skipped builds a skipped result with the given reason.
func Skipped(details string) EvaluationResult {
	return EvaluationResult{Status: StatusSkipped, Details: details}
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
