package compiler

import (
	"fmt"
	"maps"
	"regexp"
	"strings"
	"sync"

	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

var templateRe = regexp.MustCompile(`\{\{\s*(.+?)\s*\}\}`)

var programs sync.Map // expression source -> *vm.Program

// HasTemplate reports whether s contains a {{ expression }}.
func HasTemplate(s string) bool {
	return strings.Contains(s, "{{") && templateRe.MatchString(s)
}

func eval(code string, vars map[string]any) (any, error) {
	var program *vm.Program
	if cached, ok := programs.Load(code); ok {
		program = cached.(*vm.Program)
	} else {
		p, err := expr.Compile(code)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", code, err)
		}
		programs.Store(code, p)
		program = p
	}
	out, err := expr.Run(program, vars)
	if err != nil {
		return nil, fmt.Errorf("eval %q: %w", code, err)
	}
	return out, nil
}

// Render evaluates the expressions in s against vars. A string made of exactly
// one expression yields the raw value, so non-string params survive forwarding.
func Render(s string, vars map[string]any) (any, error) {
	if !HasTemplate(s) {
		return s, nil
	}
	if m := templateRe.FindStringSubmatchIndex(s); m != nil && m[0] == 0 && m[1] == len(s) {
		return eval(s[m[2]:m[3]], vars)
	}
	return RenderString(s, vars)
}

// RenderString evaluates the expressions in s and concatenates the results.
// nil renders as the empty string.
func RenderString(s string, vars map[string]any) (string, error) {
	if !HasTemplate(s) {
		return s, nil
	}
	var (
		b    strings.Builder
		last int
	)
	for _, m := range templateRe.FindAllStringSubmatchIndex(s, -1) {
		b.WriteString(s[last:m[0]])
		v, err := eval(s[m[2]:m[3]], vars)
		if err != nil {
			return "", err
		}
		if v != nil {
			fmt.Fprint(&b, v)
		}
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

// renderValue walks maps and lists rendering every string.
func renderValue(v any, vars map[string]any) (any, error) {
	switch t := v.(type) {
	case string:
		return Render(t, vars)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			r, err := renderValue(item, vars)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			r, err := renderValue(item, vars)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

// Bind returns a copy of step with every templated field evaluated against vars.
// Trigger patterns are compiled at load time and are never templated.
func Bind(step domain.Step, vars map[string]any) (domain.Step, error) {
	switch s := step.(type) {
	case *domain.ShellStep:
		out := *s
		var err error
		if out.SessionID, err = RenderString(s.SessionID, vars); err != nil {
			return nil, fmt.Errorf("id: %w", err)
		}
		if out.Overrides.Path, err = RenderString(s.Overrides.Path, vars); err != nil {
			return nil, fmt.Errorf("path: %w", err)
		}
		if out.Overrides.Venv, err = RenderString(s.Overrides.Venv, vars); err != nil {
			return nil, fmt.Errorf("venv: %w", err)
		}
		if len(s.Overrides.Env) > 0 {
			out.Overrides.Env = make(map[string]string, len(s.Overrides.Env))
			for k, v := range s.Overrides.Env {
				if out.Overrides.Env[k], err = RenderString(v, vars); err != nil {
					return nil, fmt.Errorf("env.%s: %w", k, err)
				}
			}
		}
		out.Commands = make([]string, len(s.Commands))
		for i, c := range s.Commands {
			if out.Commands[i], err = RenderString(c, vars); err != nil {
				return nil, fmt.Errorf("message[%d]: %w", i, err)
			}
		}
		return &out, nil

	case *domain.ScriptStep:
		out := *s
		uri, err := RenderString(s.URI, vars)
		if err != nil {
			return nil, fmt.Errorf("uri: %w", err)
		}
		out.URI = uri
		if s.Params != nil {
			rendered, err := renderValue(maps.Clone(s.Params), vars)
			if err != nil {
				return nil, fmt.Errorf("params.%w", err)
			}
			out.Params = rendered.(map[string]any)
		}
		return &out, nil

	default:
		return nil, fmt.Errorf("unsupported step %T", step)
	}
}
