package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"start.json": `{"run":[
			{"method":"script.start","params":{"uri":"steps/install.json"}},
			{"method":"script.start","params":{"uri":"{{args.next}}"}}
		]}`,
		"steps/install.json": greetScript,
		"broken.json":        `{"run":[{"method":"script.start","params":{"uri":"nowhere.json"}}]}`,
	})

	var out bytes.Buffer
	require.NoError(t, Validate(context.Background(), Options{Dir: dir}, "", &out))
	assert.Contains(t, out.String(), "ok   ")
	assert.Contains(t, out.String(), "install.json")
	assert.Contains(t, out.String(), "{{args.next}} (templated)")

	out.Reset()
	err := Validate(context.Background(), Options{Dir: dir}, "broken", &out)
	assert.ErrorContains(t, err, "found 1 errors")
}

func TestDescribe(t *testing.T) {
	dir := writeScripts(t, map[string]string{"start.json": greetScript})

	var out bytes.Buffer
	require.NoError(t, Describe(context.Background(), Options{Dir: dir}, "", FormatMermaid, &out))
	assert.Contains(t, out.String(), "graph TD")

	out.Reset()
	require.NoError(t, Describe(context.Background(), Options{Dir: dir}, "", FormatMarkdown, &out))
	assert.Contains(t, out.String(), "shell.run")

	assert.ErrorContains(t, Describe(context.Background(), Options{Dir: dir}, "", "svg", &out), `unknown format "svg"`)
}

func TestSessions(t *testing.T) {
	dir := writeScripts(t, map[string]string{"start.json": greetScript})
	opts := Options{Dir: dir, Store: StoreFile}

	assert.ErrorContains(t, Sessions(context.Background(), Options{Dir: dir}, false, &bytes.Buffer{}), "requires --store")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, Run(ctx, RunOptions{Options: opts, Params: []string{"name=x"}, Quiet: true}, &bytes.Buffer{}, &bytes.Buffer{}))

	var out bytes.Buffer
	require.NoError(t, Sessions(context.Background(), opts, false, &out))
	assert.Contains(t, out.String(), "SESSION")
	assert.Contains(t, out.String(), "start.json")

	out.Reset()
	require.NoError(t, Sessions(context.Background(), opts, true, &out))
	assert.Contains(t, out.String(), ">>> pruned")
}

func TestScriptsAndSchema(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"start.json":       greetScript,
		"steps/other.yaml": "run:\n  - method: shell.run\n    params: {message: \"true\"}\n",
	})

	var out bytes.Buffer
	require.NoError(t, Scripts(context.Background(), Options{Dir: dir}, &out))
	assert.Equal(t, "start.json\nsteps/other.yaml\n", out.String())

	out.Reset()
	require.NoError(t, Schema(&out))
	assert.Contains(t, out.String(), "shell.run")
}
