package backends

import (
	"context"
	"fmt"
	"strings"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
	"github.com/ahrav/go-gavel-catalog/internal/ports"
)

// WordCountID is the evaluator served by WordCount.
const WordCountID = "example/word_count"

var _ ports.EvaluatorBackend = WordCount{}

// WordCount scores an entry by the number of whitespace-separated words in
// its output. It runs locally and never fails.
type WordCount struct{}

// Evaluate implements ports.EvaluatorBackend.
func (WordCount) Evaluate(ctx context.Context, entry domain.Entry, _ domain.ResolvedSettings) (domain.EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EvaluationResult{}, err
	}
	words := len(strings.Fields(entry.Output))
	if words == 0 {
		return domain.Skipped("output is empty"), nil
	}
	return domain.Processed(domain.Float(float64(words)), nil, fmt.Sprintf("Words found: %d", words)), nil
}
