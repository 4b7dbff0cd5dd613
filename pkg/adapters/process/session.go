package process

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/ports"
	gops "github.com/shirou/gopsutil/v4/process"
)

// killWait bounds the wait for exit after the tree has been force-killed.
const killWait = 5 * time.Second

// ErrInputClosed is returned by Send after CloseInput or Terminate.
var ErrInputClosed = errors.New("session input closed")

// Session is a live supervised shell.
type Session struct {
	id        string
	ctx       domain.ExecutionContext
	cmd       *exec.Cmd
	sink      ports.OutputSink
	grace     time.Duration
	maxBuffer int
	logger    *slog.Logger
	startedAt time.Time

	inMu     sync.Mutex
	stdin    io.WriteCloser
	inClosed bool

	outMu     sync.Mutex
	buf       bytes.Buffer
	listeners map[int]func([]byte)
	nextID    int

	killed   atomic.Bool
	exitCode int
	done     chan struct{}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// PID returns the shell's process id.
func (s *Session) PID() int { return s.cmd.Process.Pid }

// Context returns the execution context the session was spawned with.
func (s *Session) Context() domain.ExecutionContext { return s.ctx.Clone() }

// StartedAt returns the spawn time.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Done is closed once the process has exited and its output has been delivered.
func (s *Session) Done() <-chan struct{} { return s.done }

// Exited reports whether the process has exited.
func (s *Session) Exited() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the exit status, or -1 while running or when killed by a signal.
func (s *Session) ExitCode() int {
	if !s.Exited() {
		return -1
	}
	return s.exitCode
}

// Killed reports whether Terminate was called.
func (s *Session) Killed() bool { return s.killed.Load() }

// Send writes cmd to the shell's stdin, appending a newline unless cmd already ends with one.
func (s *Session) Send(cmd string) error {
	s.inMu.Lock()
	defer s.inMu.Unlock()

	if s.inClosed {
		return &domain.SessionIOError{SessionID: s.id, Op: "write", Err: ErrInputClosed}
	}
	if s.Exited() {
		return &domain.SessionIOError{SessionID: s.id, Op: "write", Err: os.ErrProcessDone}
	}

	line := cmd
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	if _, err := io.WriteString(s.stdin, line); err != nil {
		return &domain.SessionIOError{SessionID: s.id, Op: "write", Err: err}
	}
	return nil
}

// CloseInput closes stdin. A shell reading commands exits after the last one.
func (s *Session) CloseInput() error {
	s.inMu.Lock()
	defer s.inMu.Unlock()
	if s.inClosed {
		return nil
	}
	s.inClosed = true
	if err := s.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return &domain.SessionIOError{SessionID: s.id, Op: "close", Err: err}
	}
	return nil
}

// Output returns a copy of the retained output.
func (s *Session) Output() []byte {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	return bytes.Clone(s.buf.Bytes())
}

// Subscribe registers fn for output produced from now on.
// fn runs on the copy goroutine under the output lock: it must not block or retain p.
func (s *Session) Subscribe(fn func(p []byte)) (cancel func()) {
	s.outMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.outMu.Unlock()

	return func() {
		s.outMu.Lock()
		delete(s.listeners, id)
		s.outMu.Unlock()
	}
}

// Terminate asks the process group to stop, waits up to the grace period,
// then kills the whole process tree. It returns once the process is gone.
func (s *Session) Terminate(ctx context.Context) error {
	s.killed.Store(true)
	_ = s.CloseInput()
	if s.Exited() {
		return nil
	}

	pid := s.PID()
	if err := interrupt(pid); err != nil {
		s.logger.Debug("interrupt failed", "session", s.id, "pid", pid, "err", err)
	}

	timer := time.NewTimer(s.grace)
	defer timer.Stop()
	select {
	case <-s.done:
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	s.logger.Debug("force killing session", "session", s.id, "pid", pid)
	s.killTree(pid)

	select {
	case <-s.done:
		return nil
	case <-time.After(killWait):
		return &domain.SessionIOError{SessionID: s.id, Op: "terminate", Err: errors.New("process did not exit after kill")}
	}
}

func (s *Session) killTree(pid int) {
	if p, err := gops.NewProcess(int32(pid)); err == nil {
		killDescendants(p)
		_ = p.Kill()
	}
	killGroup(pid)
	_ = s.cmd.Process.Kill()
}

func killDescendants(p *gops.Process) {
	children, err := p.Children()
	if err != nil {
		return
	}
	for _, c := range children {
		killDescendants(c)
		_ = c.Kill()
	}
}

func (s *Session) wait() {
	err := s.cmd.Wait()
	if state := s.cmd.ProcessState; state != nil {
		s.exitCode = state.ExitCode()
	}
	s.logger.Debug("session exited", "session", s.id, "code", s.exitCode, "err", err)
	close(s.done)
}

type outputWriter struct {
	s *Session
}

func (w *outputWriter) Write(p []byte) (int, error) {
	s := w.s
	s.outMu.Lock()
	s.buf.Write(p)
	if over := s.buf.Len() - s.maxBuffer; over > 0 {
		s.buf.Next(over)
	}
	for _, fn := range s.listeners {
		fn(p)
	}
	s.outMu.Unlock()

	s.sink.Write(s.id, p)
	return len(p), nil
}
