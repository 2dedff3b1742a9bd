package backends

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
	"github.com/ahrav/go-gavel-catalog/internal/ports"
)

// OpenAIModerationID is the evaluator served by OpenAIModeration.
const OpenAIModerationID = "openai/moderation"

// moderationCategories lists the settings keys of the categories group in
// display order.
var moderationCategories = []string{
	"harassment",
	"harassment_threatening",
	"hate",
	"hate_threatening",
	"self_harm",
	"self_harm_instructions",
	"self_harm_intent",
	"sexual",
	"sexual_minors",
	"violence",
	"violence_graphic",
}

// moderationClient is the subset of *openai.Client the backend uses.
type moderationClient interface {
	Moderations(ctx context.Context, request openai.ModerationRequest) (openai.ModerationResponse, error)
}

var _ ports.EvaluatorBackend = (*OpenAIModeration)(nil)

// OpenAIModeration evaluates entries with the OpenAI moderation endpoint.
// The score is the highest score among the enabled categories and the
// entry passes when none of them is flagged.
type OpenAIModeration struct {
	client moderationClient
}

// NewOpenAIModeration creates a moderation backend from cfg.
func NewOpenAIModeration(cfg Config) (*OpenAIModeration, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, ports.NewConfigError("OPENAI_API_KEY", ports.ErrConfigNotFound)
	}

	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		validatedURL, err := validateBaseURL(cfg.OpenAIBaseURL)
		if err != nil {
			return nil, ports.NewConfigError("OPENAI_BASE_URL", err)
		}
		clientConfig.BaseURL = validatedURL
	}
	if timeout := validateTimeout(cfg.Timeout); timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: timeout}
	}

	return &OpenAIModeration{client: openai.NewClientWithConfig(clientConfig)}, nil
}

// Evaluate implements ports.EvaluatorBackend.
func (m *OpenAIModeration) Evaluate(ctx context.Context, entry domain.Entry, settings domain.ResolvedSettings) (domain.EvaluationResult, error) {
	model, err := stringSetting(settings.Values, "model")
	if err != nil {
		return domain.EvaluationResult{}, ports.NewBackendError(settings.EvaluatorID, "evaluate", err)
	}
	categories, err := groupSetting(settings.Values, "categories")
	if err != nil {
		return domain.EvaluationResult{}, ports.NewBackendError(settings.EvaluatorID, "evaluate", err)
	}

	content := joinText(entry)
	if strings.TrimSpace(content) == "" {
		return domain.Skipped("Input and output are both empty"), nil
	}

	resp, err := m.client.Moderations(ctx, openai.ModerationRequest{Input: content, Model: model})
	if err != nil {
		return domain.EvaluationResult{}, m.handleError(settings.EvaluatorID, err)
	}
	if len(resp.Results) == 0 {
		return domain.EvaluationResult{}, ports.NewBackendError(settings.EvaluatorID, "evaluate",
			fmt.Errorf("%w: moderation returned no results", ports.ErrInvalidResponse))
	}

	return moderationResult(resp.Results[0], enabled(categories, moderationCategories)), nil
}

func moderationResult(res openai.Result, categories []string) domain.EvaluationResult {
	flags := moderationFlags(res.Categories)
	scores := moderationScores(res.CategoryScores)

	var (
		maxScore float64
		detected []string
		raw      = make(map[string]any, len(categories))
	)
	for _, c := range categories {
		raw[c] = scores[c]
		maxScore = max(maxScore, scores[c])
		if flags[c] {
			detected = append(detected, c)
		}
	}

	details := ""
	if len(detected) > 0 {
		details = "Detected " + strings.Join(detected, ", ")
	}
	result := domain.Processed(domain.Float(maxScore), domain.Bool(len(detected) == 0), details)
	result.Raw = raw
	return result
}

func moderationFlags(c openai.ResultCategories) map[string]bool {
	return map[string]bool{
		"harassment":             c.Harassment,
		"harassment_threatening": c.HarassmentThreatening,
		"hate":                   c.Hate,
		"hate_threatening":       c.HateThreatening,
		"self_harm":              c.SelfHarm,
		"self_harm_instructions": c.SelfHarmInstructions,
		"self_harm_intent":       c.SelfHarmIntent,
		"sexual":                 c.Sexual,
		"sexual_minors":          c.SexualMinors,
		"violence":               c.Violence,
		"violence_graphic":       c.ViolenceGraphic,
	}
}

func moderationScores(s openai.ResultCategoryScores) map[string]float64 {
	return map[string]float64{
		"harassment":             float64(s.Harassment),
		"harassment_threatening": float64(s.HarassmentThreatening),
		"hate":                   float64(s.Hate),
		"hate_threatening":       float64(s.HateThreatening),
		"self_harm":              float64(s.SelfHarm),
		"self_harm_instructions": float64(s.SelfHarmInstructions),
		"self_harm_intent":       float64(s.SelfHarmIntent),
		"sexual":                 float64(s.Sexual),
		"sexual_minors":          float64(s.SexualMinors),
		"violence":               float64(s.Violence),
		"violence_graphic":       float64(s.ViolenceGraphic),
	}
}

// handleError classifies errors from the OpenAI API.
func (m *OpenAIModeration) handleError(evaluatorID string, err error) error {
	if isContextError(err) {
		return classifyContextError(evaluatorID, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyHTTPError(evaluatorID, apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyHTTPError(evaluatorID, reqErr.HTTPStatusCode, "request failed", err)
	}

	return ports.NewBackendError(evaluatorID, "evaluate", err)
}
