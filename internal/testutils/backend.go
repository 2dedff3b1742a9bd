package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
	"github.com/ahrav/go-gavel-catalog/internal/ports"
)

var _ ports.EvaluatorBackend = (*StubBackend)(nil)

// StubBackend is a deterministic ports.EvaluatorBackend. It fails with the
// queued errors first, one per call, then returns Result. Every call is
// recorded. It is safe for concurrent use.
type StubBackend struct {
	// Result is returned once the error queue is drained.
	Result domain.EvaluationResult
	// Delay is slept before answering, honoring context cancellation.
	Delay time.Duration

	mu     sync.Mutex
	errs   []error
	calls  []domain.ResolvedSettings
	inputs []domain.Entry
}

// NewStubBackend creates a backend that returns result.
func NewStubBackend(result domain.EvaluationResult) *StubBackend {
	return &StubBackend{Result: result}
}

// FailWith queues errs to be returned by the next len(errs) calls.
func (s *StubBackend) FailWith(errs ...error) *StubBackend {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, errs...)
	return s
}

// Evaluate implements ports.EvaluatorBackend.
func (s *StubBackend) Evaluate(ctx context.Context, entry domain.Entry, settings domain.ResolvedSettings) (domain.EvaluationResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, settings)
	s.inputs = append(s.inputs, entry)
	var err error
	if len(s.errs) > 0 {
		err = s.errs[0]
		s.errs = s.errs[1:]
	}
	delay := s.Delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return domain.EvaluationResult{}, ctx.Err()
		}
	}
	if err != nil {
		return domain.EvaluationResult{}, err
	}
	return s.Result, nil
}

// Calls returns the number of Evaluate calls so far.
func (s *StubBackend) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// LastSettings returns the settings passed to the most recent call.
func (s *StubBackend) LastSettings() (domain.ResolvedSettings, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return domain.ResolvedSettings{}, false
	}
	return s.calls[len(s.calls)-1], true
}

// LastEntry returns the entry passed to the most recent call.
func (s *StubBackend) LastEntry() (domain.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.inputs) == 0 {
		return domain.Entry{}, false
	}
	return s.inputs[len(s.inputs)-1], true
}
