package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScripts(t *testing.T, files map[string]string) string {
	t.Helper()
	if goruntime.GOOS == "windows" {
		t.Skip("cli scenarios use /bin/sh")
	}
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("shell:\n  program: /bin/sh\n  grace: 500ms\n"), 0o644))
	return dir
}

const greetScript = `{"run":[
	{"method":"shell.run","params":{"id":"a","message":"echo hello {{args.name}}"}}
]}`

func TestRun_StreamsPrefixedOutput(t *testing.T) {
	dir := writeScripts(t, map[string]string{"start.json": greetScript})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer
	err := Run(ctx, RunOptions{
		Options: Options{Dir: dir},
		Params:  []string{"name=world"},
	}, &stdout, &stderr)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "launchpad")
	assert.Contains(t, stdout.String(), "[a] hello world\n")
	assert.Empty(t, stderr.String())
}

func TestRun_Quiet(t *testing.T) {
	dir := writeScripts(t, map[string]string{"greet.json": greetScript})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer
	err := Run(ctx, RunOptions{
		Options: Options{Dir: dir},
		Ref:     "greet",
		Quiet:   true,
	}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Empty(t, stdout.String())
}

func TestRun_DetachedDaemonReportsNothingToWaitFor(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"start.json": `{"daemon":true,"run":[
			{"method":"shell.run","params":{"id":"srv","message":"echo ready","on":[{"event":"/ready/","done":true}]}}
		]}`,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer
	err := Run(ctx, RunOptions{Options: Options{Dir: dir}, Detach: true}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "[srv] ready")
	assert.NotContains(t, stderr.String(), "alive")
}

func TestRun_DaemonStopsWhenContextEnds(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"start.json": `{"daemon":true,"run":[
			{"method":"shell.run","params":{"id":"srv","message":"echo ready","on":[{"event":"/ready/","done":true}]}}
		]}`,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, RunOptions{Options: Options{Dir: dir}}, stdout, stderr)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(stderr.String(), "1 session(s) alive: srv")
	}, 10*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
	assert.Contains(t, stdout.String(), "[srv] ready")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRun_Errors(t *testing.T) {
	dir := writeScripts(t, map[string]string{"start.json": greetScript})
	ctx := context.Background()

	err := Run(ctx, RunOptions{Options: Options{Dir: dir}, Ref: "missing", Quiet: true}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "missing")

	err = Run(ctx, RunOptions{Options: Options{Dir: dir}, Params: []string{"bad"}, Quiet: true}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "expected key=value")
}
