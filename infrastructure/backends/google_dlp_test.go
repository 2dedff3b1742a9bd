package backends

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dlp "google.golang.org/api/dlp/v2"
	"google.golang.org/api/googleapi"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
	"github.com/ahrav/go-gavel-catalog/internal/ports"
)

type fakeInspector struct {
	resp    *dlp.GooglePrivacyDlpV2InspectContentResponse
	err     error
	parents []string
	reqs    []*dlp.GooglePrivacyDlpV2InspectContentRequest
}

func (f *fakeInspector) Inspect(_ context.Context, parent string, req *dlp.GooglePrivacyDlpV2InspectContentRequest) (*dlp.GooglePrivacyDlpV2InspectContentResponse, error) {
	f.parents = append(f.parents, parent)
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

func dlpSettings(disabled ...string) domain.ResolvedSettings {
	types := make(map[string]any, len(dlpInfoTypes))
	for _, it := range dlpInfoTypes {
		types[it.key] = true
	}
	for _, k := range disabled {
		types[k] = false
	}
	return domain.ResolvedSettings{
		EvaluatorID: GoogleDLPID,
		IsGuardrail: true,
		Values:      domain.Settings{"info_types": types, "min_likelihood": "POSSIBLE"},
	}
}

func finding(name string) *dlp.GooglePrivacyDlpV2Finding {
	return &dlp.GooglePrivacyDlpV2Finding{InfoType: &dlp.GooglePrivacyDlpV2InfoType{Name: name}, Likelihood: "LIKELY"}
}

func TestGoogleDLP_Evaluate(t *testing.T) {
	in := &fakeInspector{resp: &dlp.GooglePrivacyDlpV2InspectContentResponse{
		Result: &dlp.GooglePrivacyDlpV2InspectResult{
			Findings: []*dlp.GooglePrivacyDlpV2Finding{
				finding("PHONE_NUMBER"), finding("EMAIL_ADDRESS"), finding("PHONE_NUMBER"),
			},
		},
	}}
	backend := newGoogleDLP(in, "acme")

	result, err := backend.Evaluate(context.Background(),
		domain.Entry{Output: "call me at 555-0100 or mail a@b.co"}, dlpSettings("passport", "vat_number"))
	require.NoError(t, err)

	assert.Equal(t, 3.0, *result.Score)
	assert.False(t, *result.Passed)
	assert.Equal(t, "PII detected: EMAIL_ADDRESS, PHONE_NUMBER", result.Details)
	assert.Equal(t, map[string]any{"PHONE_NUMBER": 2, "EMAIL_ADDRESS": 1}, result.Raw)

	require.Len(t, in.reqs, 1)
	assert.Equal(t, []string{"projects/acme"}, in.parents)
	req := in.reqs[0]
	assert.Equal(t, "POSSIBLE", req.InspectConfig.MinLikelihood)
	var names []string
	for _, it := range req.InspectConfig.InfoTypes {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{
		"PHONE_NUMBER", "EMAIL_ADDRESS", "CREDIT_CARD_NUMBER", "IBAN_CODE",
		"IP_ADDRESS", "MEDICAL_RECORD_NUMBER",
	}, names)
}

func TestGoogleDLP_NoFindingsPasses(t *testing.T) {
	backend := newGoogleDLP(&fakeInspector{resp: &dlp.GooglePrivacyDlpV2InspectContentResponse{}}, "acme")

	result, err := backend.Evaluate(context.Background(), domain.Entry{Output: "nothing here"}, dlpSettings())
	require.NoError(t, err)
	assert.Equal(t, 0.0, *result.Score)
	assert.True(t, *result.Passed)
	assert.Empty(t, result.Details)
}

func TestDLPResult_IgnoresUntypedFindings(t *testing.T) {
	result := dlpResult([]*dlp.GooglePrivacyDlpV2Finding{
		nil,
		{Likelihood: "LIKELY"},
		finding("IBAN_CODE"),
	})
	assert.Equal(t, 1.0, *result.Score)
	assert.False(t, *result.Passed)
	assert.Equal(t, "PII detected: IBAN_CODE", result.Details)
	assert.Equal(t, map[string]any{"IBAN_CODE": 1}, result.Raw)

	result = dlpResult([]*dlp.GooglePrivacyDlpV2Finding{nil, {Likelihood: "LIKELY"}})
	assert.Equal(t, 0.0, *result.Score)
	assert.True(t, *result.Passed)
	assert.Empty(t, result.Details)
}

func TestGoogleDLP_Skips(t *testing.T) {
	in := &fakeInspector{}
	backend := newGoogleDLP(in, "acme")

	result, err := backend.Evaluate(context.Background(), domain.Entry{}, dlpSettings())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSkipped, result.Status)

	all := make([]string, 0, len(dlpInfoTypes))
	for _, it := range dlpInfoTypes {
		all = append(all, it.key)
	}
	result, err = backend.Evaluate(context.Background(), domain.Entry{Output: "text"}, dlpSettings(all...))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSkipped, result.Status)
	assert.Empty(t, in.reqs)
}

func TestGoogleDLP_ErrorClassification(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "7")

	tests := []struct {
		name           string
		err            error
		wantErr        error
		wantRetryable  bool
		wantRetryAfter *time.Duration
	}{
		{
			name:           "quota exceeded",
			err:            &googleapi.Error{Code: http.StatusTooManyRequests, Message: "quota", Header: header},
			wantErr:        ports.ErrRateLimited,
			wantRetryable:  true,
			wantRetryAfter: func() *time.Duration { d := 7 * time.Second; return &d }(),
		},
		{
			name:          "unavailable",
			err:           &googleapi.Error{Code: http.StatusServiceUnavailable},
			wantErr:       ports.ErrServiceUnavailable,
			wantRetryable: true,
		},
		{
			name:    "permission denied",
			err:     &googleapi.Error{Code: http.StatusForbidden, Errors: []googleapi.ErrorItem{{Message: "denied"}}},
			wantErr: ports.ErrAuthenticationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newGoogleDLP(&fakeInspector{err: tt.err}, "acme")

			_, err := backend.Evaluate(context.Background(), domain.Entry{Output: "text"}, dlpSettings())
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantRetryable, ports.IsRetryable(err))

			var be *ports.BackendError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.err.(*googleapi.Error).Code, be.StatusCode)
			assert.Equal(t, tt.wantRetryAfter, be.RetryAfter)
		})
	}
}

func TestNewGoogleDLP_RequiresProject(t *testing.T) {
	_, err := NewGoogleDLP(context.Background(), Config{})
	assert.ErrorIs(t, err, ports.ErrConfigNotFound)
}
