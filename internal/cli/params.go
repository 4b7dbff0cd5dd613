package cli

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseParams builds the top-level args from a JSON object and k=v pairs.
// Pairs win over the object. Dotted keys nest ("env.PORT=7860"), and values
// that parse as JSON keep their type.
func ParseParams(raw string, pairs []string) (map[string]any, error) {
	params := map[string]any{}
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			return nil, fmt.Errorf("error parsing params JSON: %w", err)
		}
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid param %q: expected key=value", pair)
		}
		if err := setPath(params, strings.Split(key, "."), parseValue(value)); err != nil {
			return nil, fmt.Errorf("invalid param %q: %w", pair, err)
		}
	}
	return params, nil
}

func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

func setPath(m map[string]any, path []string, v any) error {
	if len(path) == 1 {
		m[path[0]] = v
		return nil
	}
	next, ok := m[path[0]]
	if !ok {
		child := map[string]any{}
		m[path[0]] = child
		return setPath(child, path[1:], v)
	}
	child, ok := next.(map[string]any)
	if !ok {
		return fmt.Errorf("%s is not an object", path[0])
	}
	return setPath(child, path[1:], v)
}
