// Package testutils provides fixtures and test doubles shared by the
// catalog's package tests.
package testutils

import "github.com/ahrav/go-gavel-catalog/internal/domain"

// ModerationDescriptor returns a descriptor shaped like a moderation
// evaluator: an enum, a nested category group and a numeric threshold.
func ModerationDescriptor(id string) domain.EvaluatorDescriptor {
	return domain.EvaluatorDescriptor{
		ID:          id,
		Name:        "Test Moderation",
		Description: "Flags harmful content.",
		Category:    domain.CategorySafety,
		DocsURL:     "https://example.com/docs/moderation",
		IsGuardrail: true,
		Settings: domain.NewGroupField(
			domain.Field{
				Name:        "model",
				Description: "Model version.",
				Node: domain.EnumField{
					Allowed: []string{"stable", "latest"},
					Default: "stable",
				},
			},
			domain.Field{
				Name:        "categories",
				Description: "Categories to check.",
				Node: domain.NewGroupField(
					domain.Field{Name: "hate", Node: domain.BooleanField{Default: true}},
					domain.Field{Name: "violence", Node: domain.BooleanField{Default: true}},
				),
			},
			domain.Field{
				Name: "threshold",
				Node: domain.NumberField{Default: 0.5},
			},
		),
	}
}

// EmptyDescriptor returns a descriptor that takes no settings.
func EmptyDescriptor(id string, category domain.Category) domain.EvaluatorDescriptor {
	return domain.EvaluatorDescriptor{
		ID:          id,
		Name:        "Empty " + id,
		Category:    category,
		IsGuardrail: false,
	}
}
