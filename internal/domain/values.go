package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// joinPath appends name to a dotted field path.
func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// displayPath renders the empty root path readably in messages.
func displayPath(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}

// validFieldName rejects names that would make dotted paths ambiguous.
func validFieldName(name string) bool {
	return name != "" && !strings.ContainsAny(name, ".[] \t\n")
}

// asMap accepts the shapes decoders produce for objects: map[string]any
// from encoding/json and yaml.v3, and map[any]any when every key is a string.
func asMap(value any) (map[string]any, bool) {
	switch m := value.(type) {
	case map[string]any:
		return m, true
	case Settings:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = v
		}
		return out, true
	case map[string]bool:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, true
	}
	return nil, false
}

// asSlice accepts any slice or array and exposes its elements as []any.
func asSlice(value any) ([]any, bool) {
	if s, ok := value.([]any); ok {
		return s, true
	}
	if value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// toFloat64 normalises every Go numeric type, and json.Number, to float64.
func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// describeValue names the runtime kind of a supplied value for
// InvalidFieldType errors. Strings include the offending literal.
func describeValue(value any) string {
	if value == nil {
		return "null"
	}
	switch v := value.(type) {
	case bool:
		return "boolean"
	case string:
		return fmt.Sprintf("string %q", v)
	}
	if f, ok := toFloat64(value); ok {
		return fmt.Sprintf("number %v", f)
	}
	if _, ok := asMap(value); ok {
		return "group"
	}
	if m, ok := value.(map[any]any); ok {
		return fmt.Sprintf("group with non-string key %s", nonStringKey(m))
	}
	if _, ok := asSlice(value); ok {
		return "list"
	}
	return fmt.Sprintf("%T", value)
}

// nonStringKey renders the smallest non-string key of m.
func nonStringKey(m map[any]any) string {
	var keys []string
	for k := range m {
		if _, ok := k.(string); !ok {
			keys = append(keys, fmt.Sprintf("%v", k))
		}
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

// cloneValue deep-copies the maps and slices of a resolved value tree.
func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}
		return out
	case Settings:
		return map[string]any(v.Clone())
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
