package application

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
)

// CatalogVersion is the catalog file format version written by Encode.
const CatalogVersion = "1.0.0"

// Format selects the encoding of a catalog document.
type Format string

// Supported catalog encodings.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported catalog format %q (want yaml or json)", s)
	}
}

// CatalogLoader decodes, validates and converts declarative catalog
// documents into descriptors. Documents are decoded strictly: unknown keys
// are rejected so typos in hand-written catalogs surface immediately.
// JSON documents are accepted as well since JSON is a subset of YAML.
type CatalogLoader struct {
	// validator performs struct tag validation of the decoded document.
	validator *validator.Validate
	// cache stores converted catalogs keyed by the SHA256 of their
	// normalised encoding. Cached slices are never handed out directly.
	cache   map[string][]domain.EvaluatorDescriptor
	cacheMu sync.RWMutex
	// sf collapses concurrent loads of the same catalog into one.
	sf     singleflight.Group
	logger *slog.Logger
}

// NewCatalogLoader creates a loader with the catalog validators registered
// and an empty cache. A nil logger uses slog.Default.
func NewCatalogLoader(logger *slog.Logger) (*CatalogLoader, error) {
	v, err := newCatalogValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogLoader{
		validator: v,
		cache:     make(map[string][]domain.EvaluatorDescriptor),
		logger:    logger,
	}, nil
}

// LoadFromFile reads and converts the catalog stored at path.
func (l *CatalogLoader) LoadFromFile(ctx context.Context, path string) ([]domain.EvaluatorDescriptor, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return l.Load(ctx, data)
}

// LoadFromReader reads all of r and converts it like LoadFromFile.
func (l *CatalogLoader) LoadFromReader(ctx context.Context, r io.Reader) ([]domain.EvaluatorDescriptor, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return l.Load(ctx, data)
}

// Load decodes, validates and converts a catalog document. Identical
// documents are converted once and served from cache afterwards; every
// call receives its own copy of the descriptors.
func (l *CatalogLoader) Load(ctx context.Context, data []byte) ([]domain.EvaluatorDescriptor, error) {
	config, err := l.Parse(data)
	if err != nil {
		return nil, err
	}

	// Hash the normalised document so formatting differences share a slot.
	hash, err := l.calculateConfigHash(config)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, shared := l.sf.Do(hash, func() (any, error) {
		if descriptors, ok := l.getCached(hash); ok {
			return descriptors, nil
		}

		descriptors, err := l.Convert(config)
		if err != nil {
			return nil, err
		}

		l.cacheMu.Lock()
		l.cache[hash] = descriptors
		l.cacheMu.Unlock()

		l.logger.DebugContext(ctx, "loaded catalog",
			slog.Int("evaluators", len(descriptors)),
			slog.String("sha256", hash[:12]))
		return descriptors, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		l.logger.DebugContext(ctx, "catalog load shared with concurrent caller", slog.String("sha256", hash[:12]))
	}

	cached := v.([]domain.EvaluatorDescriptor)
	out := make([]domain.EvaluatorDescriptor, len(cached))
	for i, d := range cached {
		out[i] = d.Clone()
	}
	return out, nil
}

// Parse strictly decodes a catalog document and runs struct validation.
// It fails with a *domain.ValidationError describing every invalid field.
func (l *CatalogLoader) Parse(data []byte) (*CatalogConfig, error) {
	var config CatalogConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("YAML decode failed: empty document")
		}
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}

	if err := l.validator.Struct(&config); err != nil {
		verr := domain.NewValidationError("catalog")
		for _, msg := range describeValidationErrors(err) {
			verr.AddError(msg)
		}
		return nil, verr
	}
	return &config, nil
}

// Convert turns a parsed catalog into validated descriptors. Problems in
// different evaluators are reported together.
func (l *CatalogLoader) Convert(config *CatalogConfig) ([]domain.EvaluatorDescriptor, error) {
	var result *multierror.Error
	seen := make(map[string]struct{}, len(config.Evaluators))
	descriptors := make([]domain.EvaluatorDescriptor, 0, len(config.Evaluators))

	for _, ec := range config.Evaluators {
		if _, dup := seen[ec.ID]; dup {
			result = multierror.Append(result, domain.NewDuplicateIdentifierError(ec.ID))
			continue
		}
		seen[ec.ID] = struct{}{}

		d, err := ToDescriptor(ec)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if err := ValidateDescriptor(d); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		descriptors = append(descriptors, d)
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return descriptors, nil
}

// ClearCache drops every cached catalog.
func (l *CatalogLoader) ClearCache() {
	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()

	l.cache = make(map[string][]domain.EvaluatorDescriptor)
}

func (l *CatalogLoader) getCached(hash string) ([]domain.EvaluatorDescriptor, bool) {
	l.cacheMu.RLock()
	defer l.cacheMu.RUnlock()

	descriptors, ok := l.cache[hash]
	return descriptors, ok
}

func (l *CatalogLoader) calculateConfigHash(config *CatalogConfig) (string, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(config); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}

	hash := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(hash[:]), nil
}

// NewCatalogConfig builds the catalog document for descriptors, preserving
// their order.
func NewCatalogConfig(descriptors []domain.EvaluatorDescriptor) CatalogConfig {
	config := CatalogConfig{
		Version:    CatalogVersion,
		Evaluators: make([]EvaluatorConfig, len(descriptors)),
	}
	for i, d := range descriptors {
		config.Evaluators[i] = FromDescriptor(d)
	}
	return config
}

// Encode writes descriptors to w as a catalog document. Decoding the
// output yields descriptors equal to the input.
func Encode(w io.Writer, descriptors []domain.EvaluatorDescriptor, format Format) error {
	config := NewCatalogConfig(descriptors)

	switch format {
	case FormatYAML, "":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(config); err != nil {
			return fmt.Errorf("failed to encode catalog: %w", err)
		}
		return encoder.Close()
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(config); err != nil {
			return fmt.Errorf("failed to encode catalog: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported catalog format %q", format)
	}
}
