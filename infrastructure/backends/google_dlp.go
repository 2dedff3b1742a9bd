package backends

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	dlp "google.golang.org/api/dlp/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
	"github.com/ahrav/go-gavel-catalog/internal/ports"
)

// GoogleDLPID is the evaluator served by GoogleDLP.
const GoogleDLPID = "google_cloud/dlp_pii_detection"

// dlpInfoTypes maps the info_types settings keys to DLP detector names, in
// display order.
var dlpInfoTypes = []struct {
	key  string
	name string
}{
	{"phone_number", "PHONE_NUMBER"},
	{"email_address", "EMAIL_ADDRESS"},
	{"credit_card_number", "CREDIT_CARD_NUMBER"},
	{"iban_code", "IBAN_CODE"},
	{"ip_address", "IP_ADDRESS"},
	{"passport", "PASSPORT"},
	{"vat_number", "VAT_NUMBER"},
	{"medical_record_number", "MEDICAL_RECORD_NUMBER"},
}

// inspector sends a content inspection request to DLP.
type inspector interface {
	Inspect(ctx context.Context, parent string, req *dlp.GooglePrivacyDlpV2InspectContentRequest) (*dlp.GooglePrivacyDlpV2InspectContentResponse, error)
}

// serviceInspector adapts *dlp.Service to inspector.
type serviceInspector struct {
	svc *dlp.Service
}

func (s serviceInspector) Inspect(ctx context.Context, parent string, req *dlp.GooglePrivacyDlpV2InspectContentRequest) (*dlp.GooglePrivacyDlpV2InspectContentResponse, error) {
	return s.svc.Projects.Content.Inspect(parent, req).Context(ctx).Do()
}

var _ ports.EvaluatorBackend = (*GoogleDLP)(nil)

// GoogleDLP detects personally identifiable information with Google Cloud
// DLP. The score is the number of findings and the entry passes when there
// are none.
type GoogleDLP struct {
	inspector inspector
	parent    string
}

// NewGoogleDLP creates a DLP backend billed to cfg.GoogleProject.
func NewGoogleDLP(ctx context.Context, cfg Config) (*GoogleDLP, error) {
	if cfg.GoogleProject == "" {
		return nil, ports.NewConfigError("GOOGLE_CLOUD_PROJECT", ports.ErrConfigNotFound)
	}

	var opts []option.ClientOption
	if cfg.GoogleCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
	}
	if cfg.GoogleEndpoint != "" {
		endpoint, err := validateBaseURL(cfg.GoogleEndpoint)
		if err != nil {
			return nil, ports.NewConfigError("GOOGLE_DLP_ENDPOINT", err)
		}
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	if timeout := validateTimeout(cfg.Timeout); timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: timeout}))
	}

	svc, err := dlp.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create DLP service: %w", err)
	}
	return newGoogleDLP(serviceInspector{svc: svc}, cfg.GoogleProject), nil
}

func newGoogleDLP(in inspector, project string) *GoogleDLP {
	return &GoogleDLP{inspector: in, parent: "projects/" + project}
}

// Evaluate implements ports.EvaluatorBackend.
func (g *GoogleDLP) Evaluate(ctx context.Context, entry domain.Entry, settings domain.ResolvedSettings) (domain.EvaluationResult, error) {
	req, err := inspectRequest(settings.Values, joinText(entry))
	if err != nil {
		return domain.EvaluationResult{}, ports.NewBackendError(settings.EvaluatorID, "evaluate", err)
	}
	if strings.TrimSpace(req.Item.Value) == "" {
		return domain.Skipped("Input and output are both empty"), nil
	}
	if len(req.InspectConfig.InfoTypes) == 0 {
		return domain.Skipped("No info types enabled"), nil
	}

	resp, err := g.inspector.Inspect(ctx, g.parent, req)
	if err != nil {
		return domain.EvaluationResult{}, g.handleError(settings.EvaluatorID, err)
	}

	var findings []*dlp.GooglePrivacyDlpV2Finding
	if resp != nil && resp.Result != nil {
		findings = resp.Result.Findings
	}
	return dlpResult(findings), nil
}

func inspectRequest(values map[string]any, text string) (*dlp.GooglePrivacyDlpV2InspectContentRequest, error) {
	infoTypes, err := groupSetting(values, "info_types")
	if err != nil {
		return nil, err
	}
	likelihood, err := stringSetting(values, "min_likelihood")
	if err != nil {
		return nil, err
	}

	var types []*dlp.GooglePrivacyDlpV2InfoType
	for _, it := range dlpInfoTypes {
		if on, _ := infoTypes[it.key].(bool); on {
			types = append(types, &dlp.GooglePrivacyDlpV2InfoType{Name: it.name})
		}
	}

	return &dlp.GooglePrivacyDlpV2InspectContentRequest{
		Item: &dlp.GooglePrivacyDlpV2ContentItem{Value: text},
		InspectConfig: &dlp.GooglePrivacyDlpV2InspectConfig{
			InfoTypes:     types,
			MinLikelihood: likelihood,
		},
	}, nil
}

func dlpResult(findings []*dlp.GooglePrivacyDlpV2Finding) domain.EvaluationResult {
	counts := make(map[string]int)
	total := 0
	for _, f := range findings {
		if f == nil || f.InfoType == nil {
			continue
		}
		counts[f.InfoType.Name]++
		total++
	}

	names := make([]string, 0, len(counts))
	raw := make(map[string]any, len(counts))
	for name, n := range counts {
		names = append(names, name)
		raw[name] = n
	}
	sort.Strings(names)

	details := ""
	if len(names) > 0 {
		details = "PII detected: " + strings.Join(names, ", ")
	}
	result := domain.Processed(domain.Float(float64(total)), domain.Bool(total == 0), details)
	result.Raw = raw
	return result
}

// handleError classifies errors from the DLP API.
func (g *GoogleDLP) handleError(evaluatorID string, err error) error {
	if isContextError(err) {
		return classifyContextError(evaluatorID, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" && len(apiErr.Errors) > 0 {
			message = apiErr.Errors[0].Message
		}
		return classifyHTTPError(evaluatorID, apiErr.Code, message, err).
			WithRetryAfter(parseRetryAfter(apiErr.Header))
	}

	return ports.NewBackendError(evaluatorID, "evaluate", err)
}
