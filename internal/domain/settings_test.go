package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contentSafetySchema mirrors the shape of a moderation evaluator: a
// numeric threshold, a nested category group and an enum.
func contentSafetySchema() GroupField {
	return NewGroupField(
		Field{Name: "severity_threshold", Node: NumberField{Default: 1, Integer: true}},
		Field{Name: "categories", Node: NewGroupField(
			Field{Name: "Hate", Node: BooleanField{Default: true}},
			Field{Name: "SelfHarm", Node: BooleanField{Default: true}},
			Field{Name: "Sexual", Node: BooleanField{Default: true}},
			Field{Name: "Violence", Node: BooleanField{Default: true}},
		)},
		Field{Name: "output_type", Node: EnumField{
			Allowed: []string{"FourSeverityLevels", "EightSeverityLevels"},
			Default: "FourSeverityLevels",
		}},
	)
}

func rulesSchema() GroupField {
	return NewGroupField(
		Field{Name: "rules", Node: ListField{
			Item: NewGroupField(
				Field{Name: "field", Node: EnumField{Allowed: []string{"input", "output"}, Default: "output"}},
				Field{Name: "rule", Node: EnumField{Allowed: []string{"contains", "not_contains"}, Default: "contains"}},
				Field{Name: "value", Node: StringField{}},
			),
			Default: []any{},
		}},
		Field{Name: "expected_language", Node: OptionalField{
			Inner: EnumField{Allowed: []string{"EN", "PT"}, Default: "EN"},
		}},
		Field{Name: "prompt", Node: StringField{Default: "Is the answer correct?"}},
	)
}

func TestResolveDefaults(t *testing.T) {
	t.Run("nil partial yields defaults", func(t *testing.T) {
		got, err := Resolve(contentSafetySchema(), nil)
		require.NoError(t, err)

		assert.Equal(t, Settings{
			"severity_threshold": 1.0,
			"categories": map[string]any{
				"Hate":     true,
				"SelfHarm": true,
				"Sexual":   true,
				"Violence": true,
			},
			"output_type": "FourSeverityLevels",
		}, got)
	})

	t.Run("empty partial equals Defaults", func(t *testing.T) {
		for _, schema := range []GroupField{contentSafetySchema(), rulesSchema(), {}} {
			got, err := Resolve(schema, map[string]any{})
			require.NoError(t, err)
			assert.Equal(t, Defaults(schema), got)
		}
	})

	t.Run("optional and list defaults", func(t *testing.T) {
		got, err := Resolve(rulesSchema(), nil)
		require.NoError(t, err)

		assert.Nil(t, got["expected_language"])
		assert.Contains(t, got, "expected_language", "Optional fields are always present")
		assert.Equal(t, []any{}, got["rules"])
		assert.Equal(t, "Is the answer correct?", got["prompt"])
	})
}

func TestResolvePartialOverride(t *testing.T) {
	got, err := Resolve(contentSafetySchema(), map[string]any{
		"categories": map[string]any{"Hate": false},
	})
	require.NoError(t, err)

	categories, ok := got.Group("categories")
	require.True(t, ok)
	hate, _ := categories.Bool("Hate")
	assert.False(t, hate)
	for _, sibling := range []string{"SelfHarm", "Sexual", "Violence"} {
		v, ok := categories.Bool(sibling)
		require.True(t, ok, sibling)
		assert.True(t, v, "%s should keep its default", sibling)
	}

	threshold, _ := got.Number("severity_threshold")
	assert.Equal(t, 1.0, threshold)
	outputType, _ := got.String("output_type")
	assert.Equal(t, "FourSeverityLevels", outputType)
}

func TestResolveUnknownField(t *testing.T) {
	tests := []struct {
		name     string
		schema   GroupField
		partial  map[string]any
		wantPath string
		wantKey  string
		wantSugg []string
	}{
		{
			name:     "top level",
			schema:   contentSafetySchema(),
			partial:  map[string]any{"severity_treshold": 2},
			wantPath: "severity_treshold",
			wantKey:  "severity_treshold",
			wantSugg: []string{"severity_threshold"},
		},
		{
			name:     "nested group",
			schema:   contentSafetySchema(),
			partial:  map[string]any{"categories": map[string]any{"Hate": true, "bogus_key": true}},
			wantPath: "categories.bogus_key",
			wantKey:  "bogus_key",
		},
		{
			name:     "empty group",
			schema:   GroupField{},
			partial:  map[string]any{"anything": 1},
			wantPath: "anything",
			wantKey:  "anything",
		},
		{
			name:     "smallest key reported first",
			schema:   GroupField{},
			partial:  map[string]any{"zeta": 1, "alpha": 2, "mid": 3},
			wantPath: "alpha",
			wantKey:  "alpha",
		},
		{
			name:   "inside list element",
			schema: rulesSchema(),
			partial: map[string]any{"rules": []any{
				map[string]any{"value": "a"},
				map[string]any{"value": "b", "operator": "x"},
			}},
			wantPath: "rules[1].operator",
			wantKey:  "operator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.schema, tt.partial)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnknownField))

			var unknown *UnknownFieldError
			require.True(t, errors.As(err, &unknown))
			assert.Equal(t, tt.wantPath, unknown.Path)
			assert.Equal(t, tt.wantKey, unknown.Key)
			if tt.wantSugg != nil {
				assert.Equal(t, tt.wantSugg, unknown.Suggestions)
			}
		})
	}
}

func TestResolveInvalidFieldType(t *testing.T) {
	tests := []struct {
		name       string
		schema     GroupField
		partial    map[string]any
		wantPath   string
		wantActual string
	}{
		{
			name:       "enum value outside allowed set",
			schema:     contentSafetySchema(),
			partial:    map[string]any{"output_type": "NOT_A_LEVEL"},
			wantPath:   "output_type",
			wantActual: `string "NOT_A_LEVEL"`,
		},
		{
			name:       "boolean given a string",
			schema:     contentSafetySchema(),
			partial:    map[string]any{"categories": map[string]any{"Hate": "yes"}},
			wantPath:   "categories.Hate",
			wantActual: `string "yes"`,
		},
		{
			name:       "group given a boolean",
			schema:     contentSafetySchema(),
			partial:    map[string]any{"categories": true},
			wantPath:   "categories",
			wantActual: "boolean",
		},
		{
			name:       "integer given a fraction",
			schema:     contentSafetySchema(),
			partial:    map[string]any{"severity_threshold": 1.5},
			wantPath:   "severity_threshold",
			wantActual: "number 1.5",
		},
		{
			name:       "explicit null on required field",
			schema:     contentSafetySchema(),
			partial:    map[string]any{"output_type": nil},
			wantPath:   "output_type",
			wantActual: "null",
		},
		{
			name:       "list given a string",
			schema:     rulesSchema(),
			partial:    map[string]any{"rules": "contains foo"},
			wantPath:   "rules",
			wantActual: `string "contains foo"`,
		},
		{
			name:       "list element enum",
			schema:     rulesSchema(),
			partial:    map[string]any{"rules": []any{map[string]any{"field": "context"}}},
			wantPath:   "rules[0].field",
			wantActual: `string "context"`,
		},
		{
			name:       "optional inner kind still checked",
			schema:     rulesSchema(),
			partial:    map[string]any{"expected_language": "XX"},
			wantPath:   "expected_language",
			wantActual: `string "XX"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.schema, tt.partial)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidFieldType))

			var invalid *InvalidFieldTypeError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.wantPath, invalid.Path)
			assert.Equal(t, tt.wantActual, invalid.Actual)
		})
	}
}

func TestResolveNumberNormalisation(t *testing.T) {
	schema := NewGroupField(Field{Name: "threshold", Node: NumberField{Default: 0.5}})

	inputs := []any{int(1), int64(1), uint8(1), float32(1), 1.0, json.Number("1")}
	for _, in := range inputs {
		got, err := Resolve(schema, map[string]any{"threshold": in})
		require.NoError(t, err, "%T", in)
		assert.Equal(t, 1.0, got["threshold"], "%T should normalise to float64", in)
	}

	_, err := Resolve(schema, map[string]any{"threshold": json.Number("not-a-number")})
	assert.True(t, errors.Is(err, ErrInvalidFieldType))
}

func TestResolveAcceptsDecodedShapes(t *testing.T) {
	// yaml decoders may yield map[any]any and typed slices.
	got, err := Resolve(rulesSchema(), map[string]any{
		"rules": []map[string]any{{"value": "x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"field": "output", "rule": "contains", "value": "x"}}, got["rules"])

	got, err = ResolveValue(contentSafetySchema(), map[any]any{"categories": map[any]any{"Sexual": false}})
	require.NoError(t, err)
	categories, _ := got.Group("categories")
	assert.Equal(t, false, categories["Sexual"])

	_, err = ResolveValue(contentSafetySchema(), map[any]any{1: true})
	assert.True(t, errors.Is(err, ErrInvalidFieldType), "Non-string keys are not a group")

	_, err = ResolveValue(contentSafetySchema(), map[any]any{
		"categories": map[any]any{"Hate": true, 7: false, 3: true},
	})
	var invalid *InvalidFieldTypeError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "categories", invalid.Path)
	assert.Equal(t, "group", invalid.Expected)
	assert.Equal(t, "group with non-string key 3", invalid.Actual)
}

func TestResolveValueRoot(t *testing.T) {
	_, err := ResolveValue(contentSafetySchema(), []any{1, 2})
	require.Error(t, err)

	var invalid *InvalidFieldTypeError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "", invalid.Path)
	assert.Equal(t, "list", invalid.Actual)

	got, err := ResolveValue(contentSafetySchema(), nil)
	require.NoError(t, err)
	assert.Equal(t, Defaults(contentSafetySchema()), got)
}

func TestResolveOptionalNull(t *testing.T) {
	got, err := Resolve(rulesSchema(), map[string]any{"expected_language": nil})
	require.NoError(t, err)
	assert.Nil(t, got["expected_language"])

	got, err = Resolve(rulesSchema(), map[string]any{"expected_language": "PT"})
	require.NoError(t, err)
	assert.Equal(t, "PT", got["expected_language"])
}

func TestResolveIdempotent(t *testing.T) {
	partials := []map[string]any{
		nil,
		{"categories": map[string]any{"Violence": false}, "severity_threshold": 4},
		{"output_type": "EightSeverityLevels"},
	}
	for _, partial := range partials {
		first, err := Resolve(contentSafetySchema(), partial)
		require.NoError(t, err)
		second, err := Resolve(contentSafetySchema(), first)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}

	first, err := Resolve(rulesSchema(), map[string]any{"rules": []any{map[string]any{"value": "v"}}})
	require.NoError(t, err)
	second, err := Resolve(rulesSchema(), first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// TestResolveNormalisesDeclaredDefaults tests schemas built in Go whose
// list and optional defaults are partial or use non-float numbers.
func TestResolveNormalisesDeclaredDefaults(t *testing.T) {
	schema := NewGroupField(
		Field{Name: "rules", Node: ListField{
			Item: NewGroupField(
				Field{Name: "field", Node: EnumField{Allowed: []string{"input", "output"}, Default: "output"}},
				Field{Name: "value", Node: StringField{}},
			),
			Default: []any{map[string]any{"value": "x"}},
		}},
		Field{Name: "n", Node: OptionalField{Inner: NumberField{}, Default: 3}},
	)
	require.NoError(t, ValidateSchema("test", schema))

	first, err := Resolve(schema, nil)
	require.NoError(t, err)
	assert.Equal(t, Settings{
		"rules": []any{map[string]any{"field": "output", "value": "x"}},
		"n":     3.0,
	}, first)
	assert.Equal(t, first, Defaults(schema))

	second, err := Resolve(schema, first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveDoesNotMutateInputs(t *testing.T) {
	schema := rulesSchema()
	before := CloneSchema(schema)
	partial := map[string]any{"rules": []any{map[string]any{"value": "v"}}}

	got, err := Resolve(schema, partial)
	require.NoError(t, err)

	assert.Equal(t, before, schema)
	assert.Equal(t, map[string]any{"rules": []any{map[string]any{"value": "v"}}}, partial)

	// The output owns its containers.
	got["rules"].([]any)[0].(map[string]any)["value"] = "changed"
	assert.Equal(t, "v", partial["rules"].([]any)[0].(map[string]any)["value"])
}

func TestDefaultsAreFreshCopies(t *testing.T) {
	schema := NewGroupField(Field{Name: "tags", Node: ListField{Item: StringField{}, Default: []any{"a"}}})

	first := Defaults(schema)
	first["tags"].([]any)[0] = "mutated"

	second := Defaults(schema)
	assert.Equal(t, []any{"a"}, second["tags"])
}

func TestSettingsAccessors(t *testing.T) {
	s := Settings{
		"flag":   true,
		"n":      3.0,
		"name":   "x",
		"group":  map[string]any{"inner": true},
		"list":   []any{1.0},
		"absent": nil,
	}

	b, ok := s.Bool("flag")
	assert.True(t, ok)
	assert.True(t, b)

	n, ok := s.Number("n")
	assert.True(t, ok)
	assert.Equal(t, 3.0, n)

	str, ok := s.String("name")
	assert.True(t, ok)
	assert.Equal(t, "x", str)

	g, ok := s.Group("group")
	assert.True(t, ok)
	assert.Equal(t, Settings{"inner": true}, g)

	l, ok := s.List("list")
	assert.True(t, ok)
	assert.Len(t, l, 1)

	_, ok = s.String("absent")
	assert.False(t, ok)
	_, ok = s.Bool("name")
	assert.False(t, ok)

	clone := s.Clone()
	clone["group"].(map[string]any)["inner"] = false
	assert.Equal(t, true, s["group"].(map[string]any)["inner"])
	assert.Nil(t, Settings(nil).Clone())
}
