package backends

import (
	"fmt"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
)

// Settings arrive fully resolved, so a missing or mistyped key means the
// backend was registered against the wrong evaluator.

func stringSetting(values map[string]any, key string) (string, error) {
	v, ok := values[key].(string)
	if !ok {
		return "", fmt.Errorf("setting %q: expected string, got %T", key, values[key])
	}
	return v, nil
}

func groupSetting(values map[string]any, key string) (map[string]any, error) {
	v, ok := values[key].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("setting %q: expected group, got %T", key, values[key])
	}
	return v, nil
}

func listSetting(values map[string]any, key string) ([]any, error) {
	v, ok := values[key].([]any)
	if !ok {
		return nil, fmt.Errorf("setting %q: expected list, got %T", key, values[key])
	}
	return v, nil
}

// enabled returns the keys of group whose value is true, in schema order
// when order is given.
func enabled(group map[string]any, order []string) []string {
	var out []string
	for _, k := range order {
		if b, _ := group[k].(bool); b {
			out = append(out, k)
		}
	}
	return out
}

// joinText combines the entry sides a content classifier should inspect.
func joinText(entry domain.Entry) string {
	switch {
	case entry.Input == "":
		return entry.Output
	case entry.Output == "":
		return entry.Input
	default:
		return entry.Input + "\n\n" + entry.Output
	}
}
