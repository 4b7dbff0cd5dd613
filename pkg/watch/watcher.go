// Package watch decides when a shell step may advance by observing session output.
//
// A Watcher subscribes to a shell before the step's commands are written, so
// only output produced by the step is considered. Every trigger is evaluated
// against a bounded tail of that output each time it grows, so a match may span
// chunks and lines, and prompts that do not end in a newline still match.
// The match ending on the earliest line wins; on the same line the first
// trigger in declaration order wins.
package watch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/aretw0/launchpad/internal/logging"
	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/ports"
)

// maxWindow bounds the output kept for re-evaluation.
const maxWindow = 32 << 10

var ansi = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07]*\x07`)

// State is the watcher's position in its lifecycle.
type State int

const (
	AwaitingMatch State = iota
	Matched
	ProcessExited
)

func (s State) String() string {
	switch s {
	case AwaitingMatch:
		return "awaiting_match"
	case Matched:
		return "matched"
	case ProcessExited:
		return "process_exited"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is the terminal state of a watch.
type Outcome struct {
	State State

	// Index is the position of the matching trigger, or -1.
	Index   int
	Trigger *domain.Trigger
	// Mode is the trigger's mode; an exit without match is an implicit done.
	Mode domain.Mode
	// Match is the matched text.
	Match string
}

// Kill reports whether the session must be terminated before advancing.
func (o Outcome) Kill() bool { return o.State == Matched && o.Mode == domain.ModeKill }

// Watcher observes one shell for one step.
type Watcher struct {
	shell    ports.Shell
	triggers []domain.Trigger
	logger   *slog.Logger

	mu      sync.Mutex
	pending []byte
	notify  chan struct{}
	cancel  func()

	// owned by Wait
	window []byte
	state  State
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New subscribes to sh. Output produced before New is never considered.
// Close must be called once the watcher is no longer needed.
func New(sh ports.Shell, triggers []domain.Trigger, opts ...Option) *Watcher {
	w := &Watcher{
		shell:    sh,
		triggers: triggers,
		logger:   logging.NewNop(),
		notify:   make(chan struct{}, 1),
		state:    AwaitingMatch,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.cancel = sh.Subscribe(w.feed)
	return w
}

// Watch blocks until a trigger matches or the process exits.
func Watch(ctx context.Context, sh ports.Shell, triggers []domain.Trigger, opts ...Option) (Outcome, error) {
	w := New(sh, triggers, opts...)
	defer w.Close()
	return w.Wait(ctx)
}

// Close unsubscribes from the shell.
func (w *Watcher) Close() {
	w.cancel()
}

// State returns the current state. It is only meaningful from the goroutine calling Wait.
func (w *Watcher) State() State { return w.state }

func (w *Watcher) feed(p []byte) {
	w.mu.Lock()
	w.pending = append(w.pending, p...)
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Wait blocks until the watch resolves or ctx is done. There is no built-in timeout.
func (w *Watcher) Wait(ctx context.Context) (Outcome, error) {
	for {
		if out, ok := w.scan(); ok {
			return w.resolve(out), nil
		}

		select {
		case <-w.notify:
		case <-w.shell.Done():
			// All output is delivered before Done closes.
			if out, ok := w.scan(); ok {
				return w.resolve(out), nil
			}
			return w.resolve(Outcome{State: ProcessExited, Index: -1, Mode: domain.ModeDone}), nil
		case <-ctx.Done():
			return Outcome{State: AwaitingMatch, Index: -1}, ctx.Err()
		}
	}
}

func (w *Watcher) resolve(out Outcome) Outcome {
	w.state = out.State
	w.logger.Debug("watch resolved",
		"session", w.shell.ID(),
		"state", out.State.String(),
		"trigger", out.Index,
		"mode", out.Mode,
	)
	return out
}

func (w *Watcher) scan() (Outcome, bool) {
	w.mu.Lock()
	data := w.pending
	w.pending = nil
	w.mu.Unlock()

	if len(data) == 0 {
		return Outcome{}, false
	}
	w.window = append(w.window, data...)
	if over := len(w.window) - maxWindow; over > 0 {
		w.window = append([]byte(nil), w.window[over:]...)
	}
	return w.match(normalize(w.window))
}

// normalize drops terminal escapes and CRLF line endings.
func normalize(p []byte) []byte {
	if bytes.IndexByte(p, 0x1b) >= 0 {
		p = ansi.ReplaceAll(p, nil)
	}
	if bytes.IndexByte(p, '\r') >= 0 {
		p = bytes.ReplaceAll(p, []byte("\r\n"), []byte("\n"))
	}
	return p
}

func (w *Watcher) match(text []byte) (Outcome, bool) {
	best := Outcome{Index: -1}
	bestLine := -1
	for i := range w.triggers {
		t := &w.triggers[i]
		loc := t.Pattern.FindIndex(text)
		if loc == nil {
			continue
		}
		// The line holding the last matched byte orders competing triggers.
		end := max(loc[1]-1, loc[0])
		line := bytes.Count(text[:end], []byte("\n"))
		if bestLine >= 0 && line >= bestLine {
			continue
		}
		bestLine = line
		best = Outcome{
			State:   Matched,
			Index:   i,
			Trigger: t,
			Mode:    t.Mode,
			Match:   string(text[loc[0]:loc[1]]),
		}
	}
	return best, bestLine >= 0
}
