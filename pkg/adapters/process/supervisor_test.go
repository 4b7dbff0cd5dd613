package process_test

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/launchpad/pkg/adapters/process"
	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX shell")
	}
}

func waitDone(t *testing.T, s *process.Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("session did not exit")
	}
}

func newSupervisor(opts ...process.Option) *process.Supervisor {
	base := []process.Option{
		process.WithShell(process.ShellConfig{Program: "/bin/sh"}),
		process.WithGrace(200 * time.Millisecond),
	}
	return process.NewSupervisor(append(base, opts...)...)
}

func TestSupervisor_RunsCommandsToExit(t *testing.T) {
	skipWindows(t)
	sup := newSupervisor()

	s, err := sup.Spawn(context.Background(), "c", domain.ExecutionContext{})
	require.NoError(t, err)
	assert.Greater(t, s.PID(), 0)

	require.NoError(t, s.Send("echo hello"))
	require.NoError(t, s.Send("exit 3\n"))
	waitDone(t, s)

	assert.Contains(t, string(s.Output()), "hello")
	assert.Equal(t, 3, s.ExitCode())
	assert.False(t, s.Killed())
}

func TestSupervisor_AppliesContext(t *testing.T) {
	skipWindows(t)
	dir := t.TempDir()
	sup := newSupervisor(process.WithBaseEnv(func() []string { return []string{"PATH=/usr/bin:/bin", "KEEP=1"} }))

	s, err := sup.Spawn(context.Background(), "c", domain.ExecutionContext{
		Dir: dir,
		Env: map[string]string{"GREETING": "hi"},
	})
	require.NoError(t, err)

	require.NoError(t, s.Send(`echo "dir=$(pwd -P) greeting=$GREETING keep=$KEEP"`))
	require.NoError(t, s.CloseInput())
	waitDone(t, s)

	out := string(s.Output())
	assert.Contains(t, out, "greeting=hi")
	assert.Contains(t, out, "keep=1")
	assert.Equal(t, 0, s.ExitCode())
}

func TestSupervisor_ShellEnvBelowStepEnv(t *testing.T) {
	skipWindows(t)
	sup := newSupervisor(process.WithShell(process.ShellConfig{
		Program: "/bin/sh",
		Env:     map[string]string{"A": "shell", "B": "shell"},
	}))

	s, err := sup.Spawn(context.Background(), "c", domain.ExecutionContext{Env: map[string]string{"B": "step"}})
	require.NoError(t, err)
	require.NoError(t, s.Send(`echo "A=$A B=$B"`))
	require.NoError(t, s.CloseInput())
	waitDone(t, s)

	assert.Contains(t, string(s.Output()), "A=shell B=step")
}

func TestSupervisor_SpawnErrors(t *testing.T) {
	sup := newSupervisor()

	_, err := sup.Spawn(context.Background(), "c", domain.ExecutionContext{Dir: "/definitely/not/here"})
	require.ErrorIs(t, err, domain.ErrSessionSpawn)
	var spawnErr *domain.SessionSpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.Equal(t, "c", spawnErr.SessionID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sup.Spawn(ctx, "c", domain.ExecutionContext{})
	assert.ErrorIs(t, err, domain.ErrSessionSpawn)
	assert.ErrorIs(t, err, context.Canceled)

	bad := process.NewSupervisor(process.WithShell(process.ShellConfig{Program: "no-such-shell-binary"}))
	_, err = bad.Spawn(context.Background(), "c", domain.ExecutionContext{})
	assert.ErrorIs(t, err, domain.ErrSessionSpawn)
}

func TestSession_SendAfterClose(t *testing.T) {
	skipWindows(t)
	s, err := newSupervisor().Spawn(context.Background(), "c", domain.ExecutionContext{})
	require.NoError(t, err)
	require.NoError(t, s.CloseInput())
	waitDone(t, s)

	err = s.Send("echo late")
	assert.ErrorIs(t, err, domain.ErrSessionIO)
}

func TestSession_TerminatePolite(t *testing.T) {
	skipWindows(t)
	s, err := newSupervisor().Spawn(context.Background(), "c", domain.ExecutionContext{})
	require.NoError(t, err)
	require.NoError(t, s.Send("sleep 30"))

	start := time.Now()
	require.NoError(t, s.Terminate(context.Background()))
	assert.True(t, s.Exited())
	assert.True(t, s.Killed())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSession_TerminateForcesStubbornTree(t *testing.T) {
	skipWindows(t)
	s, err := newSupervisor().Spawn(context.Background(), "c", domain.ExecutionContext{})
	require.NoError(t, err)

	// Ignored dispositions survive exec, so the shell and sleep both ignore SIGTERM.
	require.NoError(t, s.Send("trap '' TERM"))
	require.NoError(t, s.Send("sleep 30"))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, s.Terminate(context.Background()))
	assert.True(t, s.Exited())
	assert.True(t, s.Killed())
}

func TestSession_TerminateAfterExitIsNoop(t *testing.T) {
	skipWindows(t)
	s, err := newSupervisor().Spawn(context.Background(), "c", domain.ExecutionContext{})
	require.NoError(t, err)
	require.NoError(t, s.CloseInput())
	waitDone(t, s)

	assert.NoError(t, s.Terminate(context.Background()))
}

func TestSession_SubscribeAndSink(t *testing.T) {
	skipWindows(t)

	var mu sync.Mutex
	var sunk strings.Builder
	sink := ports.OutputSinkFunc(func(id string, p []byte) {
		mu.Lock()
		defer mu.Unlock()
		sunk.WriteString(id + ":" + string(p))
	})

	s, err := newSupervisor(process.WithSink(sink)).Spawn(context.Background(), "web", domain.ExecutionContext{})
	require.NoError(t, err)

	var got strings.Builder
	cancel := s.Subscribe(func(p []byte) { got.Write(p) })
	defer cancel()

	require.NoError(t, s.Send("echo streamed"))
	require.NoError(t, s.CloseInput())
	waitDone(t, s)

	// Done is closed only after the copy goroutine has drained the pipe.
	assert.Contains(t, got.String(), "streamed")
	mu.Lock()
	assert.Contains(t, sunk.String(), "web:")
	assert.Contains(t, sunk.String(), "streamed")
	mu.Unlock()
}

func TestSession_BufferIsBounded(t *testing.T) {
	skipWindows(t)
	s, err := newSupervisor(process.WithMaxBuffer(16)).Spawn(context.Background(), "c", domain.ExecutionContext{})
	require.NoError(t, err)

	require.NoError(t, s.Send("echo 0123456789abcdefghij; echo tail"))
	require.NoError(t, s.CloseInput())
	waitDone(t, s)

	out := s.Output()
	assert.LessOrEqual(t, len(out), 16)
	assert.True(t, strings.HasSuffix(string(out), "tail\n"))
}
