package runtime

import (
	"fmt"
	"maps"
	"os"
	"strings"

	"github.com/aretw0/launchpad/pkg/domain"
)

// overridesFrom reads the context keys of a params overlay.
func overridesFrom(params map[string]any) (domain.Overrides, error) {
	var ov domain.Overrides
	if v, ok := params["path"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return ov, fmt.Errorf("path must be a string, got %T", v)
		}
		ov.Path = s
	}
	if v, ok := params["venv"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return ov, fmt.Errorf("venv must be a string, got %T", v)
		}
		ov.Venv = s
	}
	switch m := params["env"].(type) {
	case nil:
	case map[string]string:
		ov.Env = maps.Clone(m)
	case map[string]any:
		ov.Env = make(map[string]string, len(m))
		for k, v := range m {
			ov.Env[k] = fmt.Sprint(v)
		}
	default:
		return ov, fmt.Errorf("env must be an object, got %T", m)
	}
	return ov, nil
}

// templateVars is what {{ }} expressions see: args and the effective env.
func templateVars(params map[string]any, ec domain.ExecutionContext) map[string]any {
	args := maps.Clone(params)
	if args == nil {
		args = map[string]any{}
	}

	environ := os.Environ()
	envVars := make(map[string]any, len(environ)+len(ec.Env))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envVars[k] = v
		}
	}
	for k, v := range ec.Env {
		envVars[k] = v
	}
	return map[string]any{"args": args, "env": envVars}
}
