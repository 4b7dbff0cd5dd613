// Package env resolves the execution context of shell steps.
//
// Resolution is pure: the same parent context and overrides always produce
// the same result, and inputs are never mutated.
package env

import (
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/aretw0/launchpad/pkg/domain"
)

// Resolve applies overrides field-by-field over parent.
// Env is merged key-by-key with the overrides taking precedence.
//
// A relative Path is joined onto the parent's directory so that nested
// scripts can narrow the working directory step by step.
func Resolve(parent domain.ExecutionContext, ov domain.Overrides) domain.ExecutionContext {
	out := parent.Clone()

	if ov.Path != "" {
		if filepath.IsAbs(ov.Path) || parent.Dir == "" {
			out.Dir = filepath.Clean(ov.Path)
		} else {
			out.Dir = filepath.Join(parent.Dir, ov.Path)
		}
	}
	if ov.Venv != "" {
		out.Venv = ov.Venv
	}
	maps.Copy(out.Env, ov.Env)

	return out
}

// VenvDir returns the absolute-or-dir-relative location of the virtual
// environment, or "" when none is configured.
func VenvDir(c domain.ExecutionContext) string {
	if c.Venv == "" {
		return ""
	}
	if filepath.IsAbs(c.Venv) || c.Dir == "" {
		return filepath.Clean(c.Venv)
	}
	return filepath.Join(c.Dir, c.Venv)
}

// binDir returns the executable directory of a virtual environment.
func binDir(venv string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venv, "Scripts")
	}
	return filepath.Join(venv, "bin")
}

// Environ builds the final process environment from base (typically
// os.Environ()) and the resolved context.
//
// Virtual environment activation is expressed the way activate scripts do it:
// VIRTUAL_ENV is set, the venv bin directory is prepended to PATH and
// PYTHONHOME is dropped.
func Environ(base []string, c domain.ExecutionContext) []string {
	vars := make(map[string]string, len(base)+len(c.Env)+2)
	order := make([]string, 0, len(base)+len(c.Env)+2)

	set := func(k, v string) {
		if _, exists := vars[k]; !exists {
			order = append(order, k)
		}
		vars[k] = v
	}

	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		set(k, v)
	}

	if venv := VenvDir(c); venv != "" {
		abs, err := filepath.Abs(venv)
		if err == nil {
			venv = abs
		}
		pathKey := lookupKey(vars, "PATH")
		set("VIRTUAL_ENV", venv)
		if cur := vars[pathKey]; cur != "" {
			set(pathKey, binDir(venv)+string(os.PathListSeparator)+cur)
		} else {
			set(pathKey, binDir(venv))
		}
		if _, ok := vars["PYTHONHOME"]; ok {
			delete(vars, "PYTHONHOME")
			order = slices.DeleteFunc(order, func(k string) bool { return k == "PYTHONHOME" })
		}
	}

	// Step overlays win over everything, activation included.
	keys := slices.Sorted(maps.Keys(c.Env))
	for _, k := range keys {
		set(k, c.Env[k])
	}

	out := make([]string, 0, len(order))
	for _, k := range order {
		out = append(out, k+"="+vars[k])
	}
	return out
}

// lookupKey finds the actual spelling of an environment key.
// Windows environments are case-insensitive ("Path" vs "PATH").
func lookupKey(vars map[string]string, key string) string {
	if runtime.GOOS != "windows" {
		return key
	}
	for k := range vars {
		if strings.EqualFold(k, key) {
			return k
		}
	}
	return key
}
