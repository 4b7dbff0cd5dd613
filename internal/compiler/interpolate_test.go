package compiler_test

import (
	"testing"

	"github.com/aretw0/launchpad/internal/compiler"
	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vars() map[string]any {
	return map[string]any{
		"args": map[string]any{"venv": "env", "path": "app", "port": float64(7860), "flags": []any{"--cpu"}},
		"env":  map[string]any{"HOME": "/home/u"},
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{in: "plain", want: "plain"},
		{in: "{{ args.venv }}", want: "env"},
		{in: "{{args.port}}", want: float64(7860)},
		{in: "python app.py --port {{ args.port }}", want: "python app.py --port 7860"},
		{in: "{{ args.path }}/{{ args.venv }}", want: "app/env"},
		{in: "{{ args.missing }}", want: nil},
		{in: "x{{ args.missing }}y", want: "xy"},
		{in: "{{ args.venv ?? 'default' }}", want: "env"},
		{in: "{{ env.HOME }}", want: "/home/u"},
		{in: "{{ upper(args.venv) }}", want: "ENV"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := compiler.Render(tt.in, vars())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_Errors(t *testing.T) {
	_, err := compiler.Render("{{ args.venv + }}", vars())
	assert.Error(t, err)
}

func TestBind_Shell(t *testing.T) {
	step := &domain.ShellStep{
		SessionID: "srv-{{ args.port }}",
		Overrides: domain.Overrides{
			Path: "{{ args.path }}",
			Venv: "{{ args.venv }}",
			Env:  map[string]string{"PORT": "{{ args.port }}"},
		},
		Commands: []string{"python app.py {{ args.flags[0] }}"},
		Triggers: []domain.Trigger{domain.MustTrigger("/Running on/", domain.ModeDone)},
	}

	bound, err := compiler.Bind(step, vars())
	require.NoError(t, err)

	s := bound.(*domain.ShellStep)
	assert.Equal(t, "srv-7860", s.SessionID)
	assert.Equal(t, "app", s.Overrides.Path)
	assert.Equal(t, "env", s.Overrides.Venv)
	assert.Equal(t, "7860", s.Overrides.Env["PORT"])
	assert.Equal(t, []string{"python app.py --cpu"}, s.Commands)
	assert.Len(t, s.Triggers, 1)

	assert.Equal(t, "{{ args.path }}", step.Overrides.Path, "the loaded step is not mutated")
}

func TestBind_Script(t *testing.T) {
	step := &domain.ScriptStep{
		URI: "{{ args.path }}/torch.json",
		Params: map[string]any{
			"venv":  "{{ args.venv }}",
			"port":  "{{ args.port }}",
			"extra": []any{"{{ args.path }}", true},
		},
	}

	bound, err := compiler.Bind(step, vars())
	require.NoError(t, err)

	s := bound.(*domain.ScriptStep)
	assert.Equal(t, "app/torch.json", s.URI)
	assert.Equal(t, "env", s.Params["venv"])
	assert.Equal(t, float64(7860), s.Params["port"], "a whole-value expression keeps its type")
	assert.Equal(t, []any{"app", true}, s.Params["extra"])
}
