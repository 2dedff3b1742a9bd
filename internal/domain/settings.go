package domain

// Settings is a fully or partially populated settings object. Keys are
// field names; nested groups are map[string]any, lists are []any and
// numbers are float64 once resolved.
type Settings map[string]any

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

// Group returns the nested group stored under key.
func (s Settings) Group(key string) (Settings, bool) {
	m, ok := asMap(s[key])
	if !ok {
		return nil, false
	}
	return Settings(m), true
}

// Bool returns the boolean stored under key.
func (s Settings) Bool(key string) (bool, bool) {
	v, ok := s[key].(bool)
	return v, ok
}

// Number returns the number stored under key.
func (s Settings) Number(key string) (float64, bool) {
	return toFloat64(s[key])
}

// String returns the string stored under key.
func (s Settings) String(key string) (string, bool) {
	v, ok := s[key].(string)
	return v, ok
}

// List returns the list stored under key.
func (s Settings) List(key string) ([]any, bool) {
	v, ok := s[key].([]any)
	return v, ok
}

// Resolve merges partial over the defaults declared by schema and validates
// every supplied value. A nil partial is treated as an empty object.
//
// Keys present in partial but absent from the schema fail with
// *UnknownFieldError; values of the wrong kind, or enum values outside the
// allowed set, fail with *InvalidFieldTypeError. Both carry the dotted path
// of the offending field. The result has exactly the schema's shape with
// every leaf populated, and resolving it again yields an equal value.
// Neither schema nor partial is modified.
func Resolve(schema GroupField, partial map[string]any) (Settings, error) {
	v, err := schema.resolve("", partial, partial != nil)
	if err != nil {
		return nil, err
	}
	return Settings(v.(map[string]any)), nil
}

// ResolveValue is Resolve for an arbitrary decoded document. value must be
// an object; anything else fails with *InvalidFieldTypeError at the root.
// A nil value is treated as an empty object.
func ResolveValue(schema GroupField, value any) (Settings, error) {
	if value == nil {
		return Resolve(schema, nil)
	}
	v, err := schema.resolve("", value, true)
	if err != nil {
		return nil, err
	}
	return Settings(v.(map[string]any)), nil
}

// ResolveNode validates a supplied value against a single node and returns
// it in normalised form. path prefixes the location reported by errors.
func ResolveNode(node SchemaNode, path string, value any) (any, error) {
	return node.resolve(path, value, true)
}

// Defaults returns the settings produced by resolving an empty object.
func Defaults(schema GroupField) Settings {
	return Settings(schema.defaultValue().(map[string]any))
}

// ResolvedSettings is the output of settings resolution: complete values
// tagged with the evaluator they belong to. It holds no reference to the
// schema and is owned by the caller.
type ResolvedSettings struct {
	// EvaluatorID is the identifier the settings were resolved against.
	EvaluatorID string `json:"evaluator_id" yaml:"evaluator_id"`
	// IsGuardrail mirrors the descriptor's guardrail flag for dispatch.
	IsGuardrail bool `json:"is_guardrail" yaml:"is_guardrail"`
	// Values holds every configured field, defaults included.
	Values Settings `json:"settings" yaml:"settings"`
}
