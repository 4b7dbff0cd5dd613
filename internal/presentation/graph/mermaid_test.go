package graph_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/launchpad/internal/compiler"
	"github.com/aretw0/launchpad/internal/presentation/graph"
	"github.com/aretw0/launchpad/internal/validator"
	"github.com/aretw0/launchpad/pkg/adapters/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func report(t *testing.T) *validator.Report {
	t.Helper()
	loader := compiler.NewLoader(memory.NewLoader(map[string]string{
		"start.json": `{"daemon":true,"run":[
			{"method":"script.start","params":{"uri":"install.json"}},
			{"method":"shell.run","params":{"id":"server","message":"python app.py","on":[{"event":"/Running on/","done":true},{"event":"/Traceback/","kill":true}]}}
		]}`,
		"install.json": `{"run":[{"method":"shell.run","params":{"message":"pip install \"torch\""}}]}`,
	}))
	r := validator.ValidateTree(context.Background(), loader, "start.json")
	require.NoError(t, r.Err())
	return r
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		overlay  *graph.Overlay
		contains []string
		absent   []string
	}{
		{
			name: "Structure",
			contains: []string{
				"graph TD",
				`subgraph s_start_json["start.json (daemon)"]`,
				`start_json_0[["1. install.json"]]`,
				`start_json_1["2. server"]`,
				`install_json_0["1. shell"]`,
				"start_json_0 --> start_json_1",
				"start_json_0 -.-> s_install_json",
			},
			absent: []string{"classDef live"},
		},
		{
			name:    "Live Overlay",
			overlay: &graph.Overlay{LiveSessions: []string{"server"}},
			contains: []string{
				"classDef live",
				"class start_json_1 live;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.GenerateMermaid(report(t), tt.overlay)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, no := range tt.absent {
				assert.NotContains(t, out, no)
			}
		})
	}
}

func TestGenerateMermaid_TriggerLabels(t *testing.T) {
	loader := compiler.NewLoader(memory.NewLoader(map[string]string{
		"s.json": `{"run":[
			{"method":"shell.run","params":{"id":"c","message":"x","on":[{"event":"/ready/","done":true},{"event":"/fail/","kill":true}]}},
			{"method":"shell.run","params":{"id":"c","message":"y"}}
		]}`,
	}))
	out := graph.GenerateMermaid(validator.ValidateTree(context.Background(), loader, "s.json"), nil)
	assert.True(t, strings.Contains(out, `s_json_0 -- "/ready/ done | /fail/ kill" --> s_json_1`), out)
}
