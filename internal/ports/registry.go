// Package ports defines the interfaces that form the contract between the
// catalog core and its callers and infrastructure. These interfaces enable
// dependency inversion and make the system testable.
package ports

import (
	"context"
	"io"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
)

// DescriptorRegistry maps evaluator identifiers to their descriptors.
// Implementations must be safe for concurrent readers; registration is
// expected during bootstrap and must be serialized.
type DescriptorRegistry interface {
	// Register adds a descriptor. It fails with an error matching
	// domain.ErrDuplicateIdentifier if the identifier is already present,
	// and with one matching domain.ErrInvalidDescriptor if the descriptor
	// violates a schema invariant. A failed call leaves the registry
	// unchanged.
	Register(descriptor domain.EvaluatorDescriptor) error

	// Get returns the descriptor registered under id, or an error matching
	// domain.ErrUnknownEvaluator.
	Get(id string) (domain.EvaluatorDescriptor, error)

	// List returns every registered descriptor in registration order.
	// The returned slice is a snapshot; later registrations do not affect it.
	List() []domain.EvaluatorDescriptor
}

// SettingsResolver turns a caller's partial settings into complete,
// validated settings for one evaluator.
type SettingsResolver interface {
	// Resolve looks up id and merges partial over the evaluator's defaults.
	// It fails with errors matching domain.ErrUnknownEvaluator,
	// domain.ErrUnknownField or domain.ErrInvalidFieldType. The context is
	// used for trace propagation only; resolution never blocks.
	Resolve(ctx context.Context, id string, partial map[string]any) (*domain.ResolvedSettings, error)

	// ResolveDocument decodes a YAML or JSON settings document from r and
	// resolves it like Resolve. An empty document is an empty object.
	ResolveDocument(ctx context.Context, id string, r io.Reader) (*domain.ResolvedSettings, error)
}
