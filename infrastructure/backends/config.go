// Package backends provides ports.EvaluatorBackend implementations for the
// built-in evaluators that can run without a judge model: vendor-hosted
// classifiers (OpenAI moderation, Google Cloud DLP) and local text checks.
package backends

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ahrav/go-gavel-catalog/internal/ports"
)

const (
	// MinTimeout is the minimum allowed duration for a vendor request.
	MinTimeout = 1 * time.Second
	// MaxTimeout is the maximum allowed duration for a vendor request.
	MaxTimeout = 10 * time.Minute
)

// Config holds the credentials and transport options for vendor backends.
// Zero values fall back to the vendor SDK defaults.
type Config struct {
	// OpenAIAPIKey authenticates the moderation backend.
	OpenAIAPIKey string
	// OpenAIBaseURL overrides the OpenAI endpoint, for proxies and tests.
	OpenAIBaseURL string

	// GoogleProject is the Cloud project DLP requests are billed to.
	GoogleProject string
	// GoogleCredentialsFile is a service account key file. When empty the
	// application default credentials are used.
	GoogleCredentialsFile string
	// GoogleEndpoint overrides the DLP endpoint.
	GoogleEndpoint string

	// Timeout bounds each vendor HTTP request.
	Timeout time.Duration
}

// ConfigFromEnv reads vendor settings from the standard environment
// variables.
func ConfigFromEnv() Config {
	project := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if project == "" {
		project = os.Getenv("GCLOUD_PROJECT")
	}
	return Config{
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:         os.Getenv("OPENAI_BASE_URL"),
		GoogleProject:         project,
		GoogleCredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		Timeout:               30 * time.Second,
	}
}

// Builtins constructs a backend for every built-in evaluator whose
// credentials are available in cfg. Local backends are always included.
func Builtins(ctx context.Context, cfg Config) (map[string]ports.EvaluatorBackend, error) {
	out := map[string]ports.EvaluatorBackend{
		WordCountID:   WordCount{},
		CustomBasicID: CustomBasic{},
	}
	if cfg.OpenAIAPIKey != "" {
		b, err := NewOpenAIModeration(cfg)
		if err != nil {
			return nil, err
		}
		out[OpenAIModerationID] = b
	}
	if cfg.GoogleProject != "" {
		b, err := NewGoogleDLP(ctx, cfg)
		if err != nil {
			return nil, err
		}
		out[GoogleDLPID] = b
	}
	return out, nil
}

// validateBaseURL validates and normalizes a base URL string.
// An empty string is valid and selects the vendor default.
func validateBaseURL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", nil
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https, but got: %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return "", fmt.Errorf("URL must include a host")
	}
	return parsedURL.String(), nil
}

// validateTimeout clamps timeout to [MinTimeout, MaxTimeout]. Zero or
// negative selects the SDK default.
func validateTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 0
	}
	return min(max(timeout, MinTimeout), MaxTimeout)
}
