package backends

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
	"github.com/ahrav/go-gavel-catalog/internal/ports"
)

// CustomBasicID is the evaluator served by CustomBasic.
const CustomBasicID = "custom/basic"

var _ ports.EvaluatorBackend = CustomBasic{}

// CustomBasic checks an entry against the configured text rules. Every rule
// must pass; the first failure fails the evaluation with score 0.
type CustomBasic struct{}

type basicRule struct {
	field string
	rule  string
	value string
}

// Evaluate implements ports.EvaluatorBackend.
func (CustomBasic) Evaluate(ctx context.Context, entry domain.Entry, settings domain.ResolvedSettings) (domain.EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EvaluationResult{}, err
	}
	rules, err := basicRules(settings.Values)
	if err != nil {
		return domain.EvaluationResult{}, ports.NewBackendError(settings.EvaluatorID, "evaluate", err)
	}
	if len(rules) == 0 {
		return domain.Processed(domain.Float(0), domain.Bool(false), "No rules were defined"), nil
	}

	for _, r := range rules {
		text := entry.Output
		if r.field == "input" {
			text = entry.Input
		}
		ok, err := r.check(text)
		if err != nil {
			return domain.EvaluationResult{}, ports.NewBackendError(settings.EvaluatorID, "evaluate", err)
		}
		if !ok {
			details := fmt.Sprintf("Rule %s %q failed for %s %q", r.rule, r.value, r.field, text)
			return domain.Processed(domain.Float(0), domain.Bool(false), details), nil
		}
	}
	return domain.Processed(domain.Float(1), domain.Bool(true), ""), nil
}

func (r basicRule) check(text string) (bool, error) {
	switch r.rule {
	case "contains":
		return strings.Contains(text, r.value), nil
	case "not_contains":
		return !strings.Contains(text, r.value), nil
	case "matches_regex", "not_matches_regex":
		re, err := regexp.Compile(r.value)
		if err != nil {
			return false, fmt.Errorf("rule %s: invalid pattern %q: %w", r.rule, r.value, err)
		}
		// Matches are anchored at the start of the text. The leftmost match
		// starts at zero whenever any match does.
		loc := re.FindStringIndex(text)
		matched := loc != nil && loc[0] == 0
		if r.rule == "not_matches_regex" {
			return !matched, nil
		}
		return matched, nil
	default:
		return false, fmt.Errorf("unsupported rule %q", r.rule)
	}
}

func basicRules(values map[string]any) ([]basicRule, error) {
	items, err := listSetting(values, "rules")
	if err != nil {
		return nil, err
	}
	rules := make([]basicRule, 0, len(items))
	for i, item := range items {
		group, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("rules[%d]: expected group, got %T", i, item)
		}
		var r basicRule
		if r.field, err = stringSetting(group, "field"); err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		if r.rule, err = stringSetting(group, "rule"); err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		if r.value, err = stringSetting(group, "value"); err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		if r.value == "" {
			return nil, fmt.Errorf("rules[%d]: value is required", i)
		}
		rules = append(rules, r)
	}
	return rules, nil
}
