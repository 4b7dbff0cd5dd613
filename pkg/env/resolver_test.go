package env_test

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/env"
	"github.com/stretchr/testify/assert"
)

func lookup(environ []string, key string) (string, bool) {
	for _, kv := range environ {
		k, v, _ := strings.Cut(kv, "=")
		if k == key {
			return v, true
		}
	}
	return "", false
}

func TestResolve_FieldByField(t *testing.T) {
	parent := domain.ExecutionContext{
		Dir:  "/srv",
		Venv: "env",
		Env:  map[string]string{"A": "parent", "B": "parent"},
	}

	got := env.Resolve(parent, domain.Overrides{
		Path: "app",
		Env:  map[string]string{"B": "step", "C": "step"},
	})

	assert.Equal(t, filepath.Join("/srv", "app"), got.Dir)
	assert.Equal(t, "env", got.Venv, "unset override must inherit")
	assert.Equal(t, map[string]string{"A": "parent", "B": "step", "C": "step"}, got.Env)

	// Inputs untouched
	assert.Equal(t, "/srv", parent.Dir)
	assert.Equal(t, "parent", parent.Env["B"])
	_, hasC := parent.Env["C"]
	assert.False(t, hasC)
}

func TestResolve_AbsolutePathReplaces(t *testing.T) {
	abs := t.TempDir()
	got := env.Resolve(domain.ExecutionContext{Dir: "/srv"}, domain.Overrides{Path: abs})
	assert.Equal(t, filepath.Clean(abs), got.Dir)
}

func TestResolve_Deterministic(t *testing.T) {
	parent := domain.ExecutionContext{Dir: "root", Env: map[string]string{"X": "1"}}
	ov := domain.Overrides{Venv: "venv", Env: map[string]string{"Y": "2"}}
	assert.Equal(t, env.Resolve(parent, ov), env.Resolve(parent, ov))
}

func TestEnviron_VenvActivation(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("path layout differs on windows")
	}
	dir := t.TempDir()
	ctx := domain.ExecutionContext{Dir: dir, Venv: "env", Env: map[string]string{"FOO": "bar"}}

	out := env.Environ([]string{"PATH=/usr/bin", "PYTHONHOME=/opt/py", "HOME=/root"}, ctx)

	venv, ok := lookup(out, "VIRTUAL_ENV")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "env"), venv)

	path, _ := lookup(out, "PATH")
	assert.Equal(t, filepath.Join(dir, "env", "bin")+":/usr/bin", path)

	_, hasHome := lookup(out, "PYTHONHOME")
	assert.False(t, hasHome)

	foo, _ := lookup(out, "FOO")
	assert.Equal(t, "bar", foo)
	home, _ := lookup(out, "HOME")
	assert.Equal(t, "/root", home)
}

func TestEnviron_OverlayWins(t *testing.T) {
	out := env.Environ([]string{"A=base", "B=base"}, domain.ExecutionContext{Env: map[string]string{"A": "step"}})
	a, _ := lookup(out, "A")
	b, _ := lookup(out, "B")
	assert.Equal(t, "step", a)
	assert.Equal(t, "base", b)
	assert.Len(t, out, 2)
}
