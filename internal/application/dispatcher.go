package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
	"github.com/ahrav/go-gavel-catalog/internal/ports"
)

// defaultConcurrency bounds EvaluateBatch when WithConcurrency is not set.
const defaultConcurrency = 8

// Dispatcher routes evaluation requests to backends. Each request's
// settings are resolved against the evaluator's schema before the backend
// sees them, so backends only ever receive complete, valid settings.
// It is safe for concurrent use.
type Dispatcher struct {
	registry ports.DescriptorRegistry
	resolver ports.SettingsResolver

	// backends maps evaluator identifiers to their wrapped backends.
	backends map[string]ports.EvaluatorBackend
	// mu provides thread-safe access to backends.
	mu sync.RWMutex

	middleware  []ports.BackendMiddleware
	concurrency int
	logger      *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger for dispatch events.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithDefaultMiddleware sets middleware applied to every backend registered
// afterwards, outside any middleware passed to Register.
func WithDefaultMiddleware(middleware ...ports.BackendMiddleware) DispatcherOption {
	return func(d *Dispatcher) {
		d.middleware = append(d.middleware, middleware...)
	}
}

// WithConcurrency bounds how many backend calls EvaluateBatch runs at once.
// Values below one are ignored.
func WithConcurrency(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// NewDispatcher creates a dispatcher that looks evaluators up in registry
// and resolves settings with resolver.
func NewDispatcher(registry ports.DescriptorRegistry, resolver ports.SettingsResolver, opts ...DispatcherOption) *Dispatcher {
	if registry == nil || resolver == nil {
		panic("dispatcher: registry and resolver are required")
	}
	d := &Dispatcher{
		registry:    registry,
		resolver:    resolver,
		backends:    make(map[string]ports.EvaluatorBackend),
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register binds backend to evaluator id. The evaluator must already be in
// the registry, and each evaluator takes at most one backend. The
// dispatcher's default middleware wraps middleware, which wraps backend;
// within each list the first entry is outermost.
func (d *Dispatcher) Register(id string, backend ports.EvaluatorBackend, middleware ...ports.BackendMiddleware) error {
	if backend == nil {
		return fmt.Errorf("register backend %s: backend is nil", id)
	}
	if _, err := d.registry.Get(id); err != nil {
		return fmt.Errorf("register backend: %w", err)
	}

	chain := make([]ports.BackendMiddleware, 0, len(d.middleware)+len(middleware))
	chain = append(chain, d.middleware...)
	chain = append(chain, middleware...)
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i] != nil {
			backend = chain[i](backend)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.backends[id]; exists {
		return fmt.Errorf("register backend: %w", domain.NewDuplicateIdentifierError(id))
	}
	d.backends[id] = backend

	d.logger.Debug("backend registered",
		slog.String("evaluator.id", id),
		slog.Int("middleware", len(chain)))
	return nil
}

// HasBackend reports whether a backend is registered for id.
func (d *Dispatcher) HasBackend(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.backends[id]
	return ok
}

// Backends returns the identifiers that have a backend, sorted.
func (d *Dispatcher) Backends() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.backends))
	for id := range d.backends {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Evaluate resolves partial for evaluator id and runs its backend on entry.
// Settings errors are returned before any backend is consulted; an
// evaluator without a backend fails with ports.ErrNoBackend.
func (d *Dispatcher) Evaluate(ctx context.Context, id string, partial map[string]any, entry domain.Entry) (domain.EvaluationResult, error) {
	settings, err := d.resolver.Resolve(ctx, id, partial)
	if err != nil {
		return domain.EvaluationResult{}, err
	}

	d.mu.RLock()
	backend, ok := d.backends[id]
	d.mu.RUnlock()
	if !ok {
		return domain.EvaluationResult{}, fmt.Errorf("evaluate %s: %w", id, ports.ErrNoBackend)
	}

	start := time.Now()
	result, err := backend.Evaluate(ctx, entry, *settings)
	elapsed := time.Since(start)
	if err != nil {
		d.logger.WarnContext(ctx, "evaluation failed",
			slog.String("evaluator.id", id),
			slog.Duration("duration", elapsed),
			slog.Any("error", err))
		return domain.EvaluationResult{}, fmt.Errorf("evaluate %s: %w", id, err)
	}

	result.EvaluatorID = id
	result.Duration = elapsed
	if result.Status == "" {
		result.Status = domain.StatusProcessed
	}
	d.logger.DebugContext(ctx, "evaluation complete",
		slog.String("evaluator.id", id),
		slog.String("status", string(result.Status)),
		slog.Duration("duration", elapsed))
	return result, nil
}

// EvaluationRequest is one unit of work for EvaluateBatch.
type EvaluationRequest struct {
	EvaluatorID string
	Settings    map[string]any
	Entry       domain.Entry
}

// BatchResult pairs a request with its outcome. Exactly one of Result and
// Err is meaningful.
type BatchResult struct {
	Request EvaluationRequest
	Result  domain.EvaluationResult
	Err     error
}

// EvaluateBatch runs requests concurrently, at most the configured
// concurrency at a time. Results are returned in request order. A failing
// request does not cancel its siblings; cancelling ctx does.
func (d *Dispatcher) EvaluateBatch(ctx context.Context, requests []EvaluationRequest) []BatchResult {
	results := make([]BatchResult, len(requests))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, req := range requests {
		g.Go(func() error {
			results[i].Request = req
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Result, results[i].Err = d.Evaluate(ctx, req.EvaluatorID, req.Settings, req.Entry)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
