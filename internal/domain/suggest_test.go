package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggest(t *testing.T) {
	ids := []string{
		"openai/moderation",
		"azure/content_safety",
		"azure/jailbreak",
		"azure/prompt_injection",
		"google_cloud/dlp_pii_detection",
		"example/word_count",
	}

	tests := []struct {
		name   string
		target string
		cands  []string
		limit  int
		want   []string
	}{
		{
			name:   "single typo",
			target: "openai/moderaton",
			cands:  ids,
			limit:  3,
			want:   []string{"openai/moderation"},
		},
		{
			name:   "case-insensitive",
			target: "Azure/Jailbreak",
			cands:  ids,
			limit:  3,
			want:   []string{"azure/jailbreak"},
		},
		{
			name:   "nothing close",
			target: "nope/nope",
			cands:  ids,
			limit:  3,
			want:   []string{},
		},
		{
			name:   "ties broken lexically and limited",
			target: "cat",
			cands:  []string{"hat", "bat", "cap", "car"},
			limit:  2,
			want:   []string{"bat", "cap"},
		},
		{
			name:   "exact match skipped",
			target: "Hate",
			cands:  []string{"Hate", "hate"},
			limit:  3,
			want:   []string{"hate"},
		},
		{
			name:   "zero limit",
			target: "x",
			cands:  []string{"y"},
			limit:  0,
			want:   nil,
		},
		{
			name:   "empty target",
			target: "",
			cands:  ids,
			limit:  3,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Suggest(tt.target, tt.cands, tt.limit))
		})
	}
}
