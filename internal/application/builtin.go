package application

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed catalog/builtin.yaml
var builtinCatalog []byte

// BuiltinCatalog returns the embedded descriptor table.
func BuiltinCatalog() []byte {
	out := make([]byte, len(builtinCatalog))
	copy(out, builtinCatalog)
	return out
}

// NewBuiltinRegistry creates a registry holding every built-in evaluator,
// registered in catalog order before the registry is returned.
func NewBuiltinRegistry(ctx context.Context, loader *CatalogLoader, opts ...RegistryOption) (*Registry, error) {
	if loader == nil {
		var err error
		if loader, err = NewCatalogLoader(nil); err != nil {
			return nil, err
		}
	}

	descriptors, err := loader.Load(ctx, builtinCatalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load builtin catalog: %w", err)
	}

	registry := NewRegistry(opts...)
	if err := registry.RegisterAll(descriptors...); err != nil {
		return nil, fmt.Errorf("failed to register builtin catalog: %w", err)
	}
	return registry, nil
}
