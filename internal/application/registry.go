package application

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
	"github.com/ahrav/go-gavel-catalog/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.DescriptorRegistry = (*Registry)(nil)

// maxSuggestions bounds the "did you mean" list on lookup failures.
const maxSuggestions = 3

// Registry implements ports.DescriptorRegistry. Readers load an immutable
// snapshot without locking; writers build a new snapshot under mu and swap
// it in, so a reader never observes a partially registered descriptor.
type Registry struct {
	// snapshot holds the current *registrySnapshot.
	snapshot atomic.Pointer[registrySnapshot]
	// mu serializes writers.
	mu sync.Mutex

	logger  *slog.Logger
	metrics ports.MetricsCollector
}

// registrySnapshot is never modified after it is published.
type registrySnapshot struct {
	ordered []domain.EvaluatorDescriptor
	index   map[string]int
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for registration events. A nil logger
// leaves slog.Default in place.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the collector that receives registration metrics.
func WithMetrics(metrics ports.MetricsCollector) RegistryOption {
	return func(r *Registry) { r.metrics = metrics }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.snapshot.Store(&registrySnapshot{index: make(map[string]int)})
	return r
}

// Register validates descriptor and adds a deep copy of it. It fails with
// *domain.DuplicateIdentifierError when the identifier is taken and with
// *domain.ValidationError when the descriptor is malformed; in both cases
// the registry is left unchanged.
func (r *Registry) Register(descriptor domain.EvaluatorDescriptor) error {
	return r.RegisterAll(descriptor)
}

// RegisterAll registers descriptors as one atomic batch: either all of
// them become visible together or, on the first failure, none do.
// Identifiers must be unique across the batch and the existing registry.
func (r *Registry) RegisterAll(descriptors ...domain.EvaluatorDescriptor) error {
	for _, d := range descriptors {
		if err := ValidateDescriptor(d); err != nil {
			r.rejected(d.ID, "invalid", err)
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.snapshot.Load()
	next := &registrySnapshot{
		ordered: make([]domain.EvaluatorDescriptor, len(current.ordered), len(current.ordered)+len(descriptors)),
		index:   make(map[string]int, len(current.index)+len(descriptors)),
	}
	copy(next.ordered, current.ordered)
	for id, i := range current.index {
		next.index[id] = i
	}

	for _, d := range descriptors {
		if _, exists := next.index[d.ID]; exists {
			err := domain.NewDuplicateIdentifierError(d.ID)
			r.rejected(d.ID, "duplicate", err)
			return err
		}
		next.index[d.ID] = len(next.ordered)
		next.ordered = append(next.ordered, d.Clone())
	}

	r.snapshot.Store(next)

	for _, d := range descriptors {
		r.logger.Debug("registered evaluator",
			slog.String("evaluator.id", d.ID),
			slog.String("category", string(d.Category)),
			slog.Bool("guardrail", d.IsGuardrail))
	}
	if r.metrics != nil {
		r.metrics.RecordGauge(ports.MetricRegistered, float64(len(next.ordered)), nil)
	}
	return nil
}

func (r *Registry) rejected(id, reason string, err error) {
	r.logger.Warn("rejected evaluator registration",
		slog.String("evaluator.id", id),
		slog.String("reason", reason),
		slog.Any("error", err))
	if r.metrics != nil {
		r.metrics.RecordCounter(ports.MetricRegistrationFail, 1, map[string]string{"reason": reason})
	}
}

// Get returns a copy of the descriptor registered under id. Unknown
// identifiers fail with *domain.UnknownEvaluatorError carrying up to three
// close matches.
func (r *Registry) Get(id string) (domain.EvaluatorDescriptor, error) {
	snap := r.snapshot.Load()
	i, ok := snap.index[id]
	if !ok {
		return domain.EvaluatorDescriptor{}, domain.NewUnknownEvaluatorError(id, domain.Suggest(id, snap.ids(), maxSuggestions))
	}
	return snap.ordered[i].Clone(), nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.snapshot.Load().index[id]
	return ok
}

// List returns copies of every descriptor in registration order.
func (r *Registry) List() []domain.EvaluatorDescriptor {
	return r.filter(func(domain.EvaluatorDescriptor) bool { return true })
}

// ListByCategory returns the descriptors tagged with category, in
// registration order.
func (r *Registry) ListByCategory(category domain.Category) []domain.EvaluatorDescriptor {
	return r.filter(func(d domain.EvaluatorDescriptor) bool { return d.Category == category })
}

// Guardrails returns the descriptors flagged as guardrails, in
// registration order.
func (r *Registry) Guardrails() []domain.EvaluatorDescriptor {
	return r.filter(func(d domain.EvaluatorDescriptor) bool { return d.IsGuardrail })
}

// IDs returns the registered identifiers in registration order.
func (r *Registry) IDs() []string {
	return r.snapshot.Load().ids()
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	return len(r.snapshot.Load().ordered)
}

func (r *Registry) filter(keep func(domain.EvaluatorDescriptor) bool) []domain.EvaluatorDescriptor {
	snap := r.snapshot.Load()
	out := make([]domain.EvaluatorDescriptor, 0, len(snap.ordered))
	for _, d := range snap.ordered {
		if keep(d) {
			out = append(out, d.Clone())
		}
	}
	return out
}

func (s *registrySnapshot) ids() []string {
	ids := make([]string, len(s.ordered))
	for i, d := range s.ordered {
		ids[i] = d.ID
	}
	return ids
}

// ValidateDescriptor checks the metadata and schema invariants of d and
// returns a *domain.ValidationError listing every violation, or nil.
func ValidateDescriptor(d domain.EvaluatorDescriptor) error {
	entity := d.ID
	if entity == "" {
		entity = "evaluator"
	}
	verr := domain.NewValidationError(entity)

	if err := ValidateEvaluatorID(d.ID); err != nil {
		verr.AddError(err.Error())
	}
	if d.Category == "" {
		verr.AddError("category is empty")
	}
	if d.DocsURL != "" {
		if u, err := url.Parse(d.DocsURL); err != nil || u.Scheme == "" || u.Host == "" {
			verr.AddError(fmt.Sprintf("docs URL %q is not an absolute URL", d.DocsURL))
		}
	}

	var schemaErr *domain.ValidationError
	if err := domain.ValidateSchema(entity, d.Settings); errors.As(err, &schemaErr) {
		for _, msg := range schemaErr.Errors {
			verr.AddError("settings " + msg)
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}
