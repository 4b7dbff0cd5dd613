package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/launchpad/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, doc string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(doc), &v))
	return v
}

func TestValidate_Accepts(t *testing.T) {
	docs := map[string]string{
		"install": `{
			"run": [
				{"method": "shell.run", "params": {"message": ["git clone https://example.com/app", "python -m venv env"]}},
				{"method": "script.start", "params": {"uri": "torch.json", "params": {"venv": "env", "path": "app"}}}
			]
		}`,
		"client": `{
			"daemon": true,
			"run": [
				{"method": "shell.run", "params": {
					"id": "client", "venv": "env", "path": "app",
					"message": "python client.py",
					"on": [{"event": "/Enter the index/", "done": true}]
				}},
				{"method": "shell.run", "params": {"id": "client", "message": "\n"}}
			]
		}`,
		"unknown keys tolerated": `{
			"version": "1",
			"run": [{"method": "shell.run", "params": {"message": "ls", "sudo": true}, "note": "x"}]
		}`,
		"empty run": `{"run": []}`,
	}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, schema.Validate(decode(t, doc)))
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		path string
		step int
	}{
		{name: "Missing Run", doc: `{"daemon": true}`, path: "", step: -1},
		{name: "Run Not A List", doc: `{"run": {}}`, path: "/run", step: -1},
		{name: "Unknown Method", doc: `{"run": [{"method": "fs.write", "params": {}}]}`, path: "/run/0/method", step: 0},
		{name: "Missing Method", doc: `{"run": [{"params": {"message": "ls"}}]}`, path: "/run/0", step: 0},
		{name: "Shell Without Message", doc: `{"run": [{"method": "shell.run", "params": {"message": "ok"}}, {"method": "shell.run", "params": {"id": "c"}}]}`, path: "/run/1/params", step: 1},
		{name: "Message Wrong Type", doc: `{"run": [{"method": "shell.run", "params": {"message": 42}}]}`, path: "/run/0/params/message", step: 0},
		{name: "Trigger Without Event", doc: `{"run": [{"method": "shell.run", "params": {"message": "x", "on": [{"done": true}]}}]}`, path: "/run/0/params/on/0", step: 0},
		{name: "Script Without URI", doc: `{"run": [{"method": "script.start", "params": {"params": {}}}]}`, path: "/run/0/params", step: 0},
		{name: "Script Without Params", doc: `{"run": [{"method": "script.start"}]}`, path: "/run/0", step: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.Validate(decode(t, tt.doc))
			require.Error(t, err)

			errs := schema.ValidationErrors(err)
			require.NotEmpty(t, errs)

			var paths []string
			for _, e := range errs {
				ve, ok := e.(*schema.ValidationError)
				require.True(t, ok)
				paths = append(paths, ve.Path)
			}
			assert.Contains(t, paths, tt.path)

			first := errs[0].(*schema.ValidationError)
			assert.Equal(t, tt.step, first.Step())
		})
	}
}

func TestJSON(t *testing.T) {
	raw, err := schema.JSON()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, schema.ID, doc["$id"])

	defs, ok := doc["$defs"].(map[string]any)
	require.True(t, ok)
	for _, name := range []string{"ScriptDocument", "StepDocument", "ShellParams", "ScriptParams", "TriggerDocument"} {
		assert.Contains(t, defs, name)
	}
}

func TestValidationError_Step(t *testing.T) {
	assert.Equal(t, 3, (&schema.ValidationError{Path: "/run/3/params"}).Step())
	assert.Equal(t, -1, (&schema.ValidationError{Path: "/daemon"}).Step())
	assert.Equal(t, -1, (&schema.ValidationError{Path: ""}).Step())
}
