package application

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
	"github.com/ahrav/go-gavel-catalog/internal/ports"
	"github.com/ahrav/go-gavel-catalog/internal/testutils"
)

// TestRegistry_Register tests registration, duplicate rejection and
// validation of descriptors.
func TestRegistry_Register(t *testing.T) {
	t.Run("registers and returns descriptor", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(testutils.ModerationDescriptor("openai/moderation")))

		got, err := reg.Get("openai/moderation")
		require.NoError(t, err)
		assert.Equal(t, testutils.ModerationDescriptor("openai/moderation"), got)
		assert.Equal(t, 1, reg.Len())
		assert.True(t, reg.Has("openai/moderation"))
	})

	t.Run("duplicate identifier keeps the first", func(t *testing.T) {
		reg := NewRegistry()
		first := testutils.ModerationDescriptor("openai/moderation")
		require.NoError(t, reg.Register(first))

		second := testutils.EmptyDescriptor("openai/moderation", domain.CategoryOther)
		err := reg.Register(second)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrDuplicateIdentifier))

		var dup *domain.DuplicateIdentifierError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "openai/moderation", dup.ID)

		assert.Equal(t, 1, reg.Len())
		got, err := reg.Get("openai/moderation")
		require.NoError(t, err)
		assert.Equal(t, first, got, "The first registration must survive")
	})

	t.Run("identifiers are case-sensitive", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(testutils.EmptyDescriptor("azure/jailbreak", domain.CategorySafety)))
		require.NoError(t, reg.Register(testutils.EmptyDescriptor("Azure/Jailbreak", domain.CategorySafety)))
		assert.Equal(t, 2, reg.Len())
	})

	t.Run("invalid descriptors are rejected", func(t *testing.T) {
		tests := []struct {
			name    string
			mutate  func(d *domain.EvaluatorDescriptor)
			wantMsg string
		}{
			{
				name:    "missing vendor",
				mutate:  func(d *domain.EvaluatorDescriptor) { d.ID = "moderation" },
				wantMsg: `evaluator identifier "moderation" must have the form <vendor>/<name>`,
			},
			{
				name:    "empty category",
				mutate:  func(d *domain.EvaluatorDescriptor) { d.Category = "" },
				wantMsg: "category is empty",
			},
			{
				name:    "relative docs url",
				mutate:  func(d *domain.EvaluatorDescriptor) { d.DocsURL = "docs/moderation" },
				wantMsg: `docs URL "docs/moderation" is not an absolute URL`,
			},
			{
				name: "enum default outside allowed",
				mutate: func(d *domain.EvaluatorDescriptor) {
					d.Settings.Fields[0].Node = domain.EnumField{Allowed: []string{"stable"}, Default: "beta"}
				},
				wantMsg: `settings model: default "beta" is not one of ["stable"]`,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				reg := NewRegistry()
				d := testutils.ModerationDescriptor("openai/moderation")
				tt.mutate(&d)

				err := reg.Register(d)
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrInvalidDescriptor))

				var verr *domain.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Contains(t, verr.Errors, tt.wantMsg)
				assert.Equal(t, 0, reg.Len())
			})
		}
	})
}

// TestRegistry_Get tests lookup failures and the isolation of returned
// descriptors from registry state.
func TestRegistry_Get(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterAll(
		testutils.ModerationDescriptor("openai/moderation"),
		testutils.EmptyDescriptor("azure/jailbreak", domain.CategorySafety),
		testutils.EmptyDescriptor("example/word_count", domain.CategoryOther),
	))

	t.Run("unknown identifier", func(t *testing.T) {
		_, err := reg.Get("nope/nope")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrUnknownEvaluator))

		var unknown *domain.UnknownEvaluatorError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, "nope/nope", unknown.ID)
		assert.Empty(t, unknown.Suggestions)
		assert.NotContains(t, reg.IDs(), "nope/nope")
	})

	t.Run("typo gets a suggestion", func(t *testing.T) {
		_, err := reg.Get("openai/moderaton")

		var unknown *domain.UnknownEvaluatorError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, []string{"openai/moderation"}, unknown.Suggestions)
		assert.Contains(t, err.Error(), `did you mean "openai/moderation"?`)
	})

	t.Run("returned descriptor is a copy", func(t *testing.T) {
		got, err := reg.Get("openai/moderation")
		require.NoError(t, err)

		got.Settings.Fields[0].Name = "mutated"
		got.Settings.Fields[0].Node.(domain.EnumField).Allowed[0] = "mutated"

		again, err := reg.Get("openai/moderation")
		require.NoError(t, err)
		assert.Equal(t, "model", again.Settings.Fields[0].Name)
		assert.Equal(t, "stable", again.Settings.Fields[0].Node.(domain.EnumField).Allowed[0])
	})

	t.Run("registering a descriptor copies it", func(t *testing.T) {
		d := testutils.ModerationDescriptor("vendor/copy")
		require.NoError(t, reg.Register(d))
		d.Settings.Fields[0].Node.(domain.EnumField).Allowed[0] = "mutated"

		got, err := reg.Get("vendor/copy")
		require.NoError(t, err)
		assert.Equal(t, "stable", got.Settings.Fields[0].Node.(domain.EnumField).Allowed[0])
	})
}

// TestRegistry_List tests ordering, snapshots and the filtered listings.
func TestRegistry_List(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(testutils.EmptyDescriptor("b/second", domain.CategoryRAG)))
	require.NoError(t, reg.Register(testutils.ModerationDescriptor("a/first")))
	require.NoError(t, reg.Register(testutils.EmptyDescriptor("c/third", domain.CategoryRAG)))

	t.Run("registration order", func(t *testing.T) {
		assert.Equal(t, []string{"b/second", "a/first", "c/third"}, reg.IDs())

		list := reg.List()
		require.Len(t, list, 3)
		assert.Equal(t, "b/second", list[0].ID)
		assert.Equal(t, "a/first", list[1].ID)
		assert.Equal(t, "c/third", list[2].ID)
	})

	t.Run("listing is a snapshot", func(t *testing.T) {
		snapshot := reg.List()
		require.NoError(t, reg.Register(testutils.EmptyDescriptor("d/fourth", domain.CategoryOther)))

		assert.Len(t, snapshot, 3, "Earlier listing must not change")
		assert.Len(t, reg.List(), 4)
	})

	t.Run("by category", func(t *testing.T) {
		rag := reg.ListByCategory(domain.CategoryRAG)
		require.Len(t, rag, 2)
		assert.Equal(t, "b/second", rag[0].ID)
		assert.Equal(t, "c/third", rag[1].ID)

		assert.Empty(t, reg.ListByCategory("unheard-of"))
	})

	t.Run("guardrails", func(t *testing.T) {
		guardrails := reg.Guardrails()
		require.Len(t, guardrails, 1)
		assert.Equal(t, "a/first", guardrails[0].ID)
	})
}

// TestRegistry_RegisterAll tests that batches are all-or-nothing.
func TestRegistry_RegisterAll(t *testing.T) {
	t.Run("duplicate inside batch", func(t *testing.T) {
		reg := NewRegistry()
		err := reg.RegisterAll(
			testutils.EmptyDescriptor("a/one", domain.CategoryOther),
			testutils.EmptyDescriptor("a/two", domain.CategoryOther),
			testutils.EmptyDescriptor("a/one", domain.CategoryOther),
		)
		assert.True(t, errors.Is(err, domain.ErrDuplicateIdentifier))
		assert.Equal(t, 0, reg.Len(), "No descriptor of a failed batch may be visible")
	})

	t.Run("invalid descriptor in batch", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(testutils.EmptyDescriptor("a/existing", domain.CategoryOther)))

		err := reg.RegisterAll(
			testutils.EmptyDescriptor("a/new", domain.CategoryOther),
			testutils.EmptyDescriptor("broken", domain.CategoryOther),
		)
		assert.True(t, errors.Is(err, domain.ErrInvalidDescriptor))
		assert.Equal(t, []string{"a/existing"}, reg.IDs())
	})
}

// TestRegistry_Metrics tests that registrations and rejections are reported.
func TestRegistry_Metrics(t *testing.T) {
	metrics := testutils.NewRecordingMetrics()
	reg := NewRegistry(WithMetrics(metrics), WithLogger(nil))

	require.NoError(t, reg.RegisterAll(
		testutils.EmptyDescriptor("a/one", domain.CategoryOther),
		testutils.EmptyDescriptor("a/two", domain.CategoryOther),
	))
	_ = reg.Register(testutils.EmptyDescriptor("a/one", domain.CategoryOther))
	_ = reg.Register(testutils.EmptyDescriptor("invalid", domain.CategoryOther))

	last, ok := metrics.Last(ports.MetricRegistered)
	require.True(t, ok)
	assert.Equal(t, 2.0, last)
	assert.Equal(t, 1.0, metrics.Sum(ports.MetricRegistrationFail, map[string]string{"reason": "duplicate"}))
	assert.Equal(t, 1.0, metrics.Sum(ports.MetricRegistrationFail, map[string]string{"reason": "invalid"}))
}

// TestRegistry_ConcurrentAccess tests that readers always observe complete
// snapshots while a writer registers descriptors.
func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	const writes = 50

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range writes {
			_ = reg.Register(testutils.ModerationDescriptor(fmt.Sprintf("vendor/eval_%d", i)))
		}
	}()

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				for _, d := range reg.List() {
					// Every visible descriptor must be fully formed.
					if len(d.Settings.Fields) != 3 {
						t.Errorf("descriptor %s has %d fields", d.ID, len(d.Settings.Fields))
						return
					}
					if _, err := reg.Get(d.ID); err != nil {
						t.Errorf("listed descriptor %s not found: %v", d.ID, err)
						return
					}
				}
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, writes, reg.Len())
}
