// Package process supervises the shell processes behind sessions.
//
// A Session is one long-lived shell reading commands from stdin. Its stdout and
// stderr are merged, kept in a bounded buffer and pushed to subscribers and to
// an optional ports.OutputSink. Sessions are placed in their own process group
// so Terminate can reach every descendant.
//
// A crash of the host process can still orphan running shells; nothing here
// survives the supervisor's own death.
package process

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"time"

	"github.com/aretw0/launchpad/internal/logging"
	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/env"
	"github.com/aretw0/launchpad/pkg/ports"
)

const (
	// DefaultMaxBuffer bounds the retained output of one session.
	DefaultMaxBuffer = 1 << 20

	// waitDelay bounds how long Wait keeps draining pipes held open by orphaned grandchildren.
	waitDelay = 2 * time.Second
)

// Supervisor spawns sessions.
type Supervisor struct {
	shell     ShellConfig
	grace     time.Duration
	baseEnv   func() []string
	sink      ports.OutputSink
	logger    *slog.Logger
	maxBuffer int
}

// Option configures the Supervisor.
type Option func(*Supervisor)

// WithShell sets the shell program. Its Env seeds every session below the step overlay.
func WithShell(cfg ShellConfig) Option {
	return func(s *Supervisor) {
		s.shell = cfg
		if d, err := cfg.GraceDuration(); err == nil {
			s.grace = d
		}
	}
}

// WithGrace sets how long Terminate waits before force-killing.
func WithGrace(d time.Duration) Option {
	return func(s *Supervisor) {
		s.grace = d
	}
}

// WithSink mirrors all session output to sink.
func WithSink(sink ports.OutputSink) Option {
	return func(s *Supervisor) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBaseEnv replaces os.Environ as the inherited environment.
func WithBaseEnv(fn func() []string) Option {
	return func(s *Supervisor) {
		s.baseEnv = fn
	}
}

// WithMaxBuffer bounds retained output per session. Older bytes are dropped first.
func WithMaxBuffer(n int) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.maxBuffer = n
		}
	}
}

// NewSupervisor creates a Supervisor backed by the platform shell.
func NewSupervisor(opts ...Option) *Supervisor {
	s := &Supervisor{
		shell:     DefaultShell(),
		grace:     DefaultGrace,
		baseEnv:   os.Environ,
		sink:      ports.Discard,
		logger:    logging.NewNop(),
		maxBuffer: DefaultMaxBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spawn starts a new shell for id rooted at ec.Dir.
// The process is not bound to ctx: sessions of daemon scripts outlive the run that spawned them.
func (s *Supervisor) Spawn(ctx context.Context, id string, ec domain.ExecutionContext) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.SessionSpawnError{SessionID: id, Dir: ec.Dir, Err: err}
	}

	if ec.Dir != "" {
		info, err := os.Stat(ec.Dir)
		if err != nil {
			return nil, &domain.SessionSpawnError{SessionID: id, Dir: ec.Dir, Err: err}
		}
		if !info.IsDir() {
			return nil, &domain.SessionSpawnError{SessionID: id, Dir: ec.Dir, Err: fmt.Errorf("not a directory")}
		}
	}

	effective := ec.Clone()
	if len(s.shell.Env) > 0 {
		merged := maps.Clone(s.shell.Env)
		maps.Copy(merged, ec.Env)
		effective.Env = merged
	}

	cmd := exec.Command(s.shell.Program, s.shell.Args...)
	cmd.Dir = ec.Dir
	cmd.Env = env.Environ(s.baseEnv(), effective)
	cmd.WaitDelay = waitDelay
	detach(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &domain.SessionSpawnError{SessionID: id, Dir: ec.Dir, Err: err}
	}

	sess := &Session{
		id:        id,
		ctx:       ec.Clone(),
		cmd:       cmd,
		stdin:     stdin,
		sink:      s.sink,
		grace:     s.grace,
		maxBuffer: s.maxBuffer,
		logger:    s.logger,
		listeners: make(map[int]func([]byte)),
		exitCode:  -1,
		done:      make(chan struct{}),
	}
	// Same writer for both streams: exec shares one pipe and one copy goroutine.
	w := &outputWriter{s: sess}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		return nil, &domain.SessionSpawnError{SessionID: id, Dir: ec.Dir, Err: err}
	}
	sess.startedAt = time.Now()

	s.logger.Debug("session spawned", "session", id, "pid", cmd.Process.Pid, "dir", ec.Dir, "venv", ec.Venv)
	go sess.wait()

	return sess, nil
}

// Start implements ports.Spawner.
func (s *Supervisor) Start(ctx context.Context, id string, ec domain.ExecutionContext) (ports.Shell, error) {
	sess, err := s.Spawn(ctx, id, ec)
	if err != nil {
		return nil, err
	}
	return sess, nil
}
