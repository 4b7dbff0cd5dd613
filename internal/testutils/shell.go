// Package testutils holds fakes shared by package tests.
package testutils

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/ports"
)

// FakeShell is a scriptable ports.Shell. Tests drive its output with Emit
// and its lifetime with Exit.
type FakeShell struct {
	id    string
	pid   int
	ec    domain.ExecutionContext
	start time.Time

	// OnSend, if set, runs after each Send with the normalized line.
	OnSend func(f *FakeShell, line string)
	// OnCloseInput, if set, runs after CloseInput.
	OnCloseInput func(f *FakeShell)

	mu        sync.Mutex
	sent      []string
	out       strings.Builder
	listeners map[int]func([]byte)
	next      int
	inClosed  bool
	killed    bool
	code      int
	done      chan struct{}
	closeOnce sync.Once
}

// NewFakeShell creates a running fake.
func NewFakeShell(id string, pid int, ec domain.ExecutionContext) *FakeShell {
	return &FakeShell{
		id:        id,
		pid:       pid,
		ec:        ec.Clone(),
		start:     time.Now(),
		listeners: make(map[int]func([]byte)),
		code:      -1,
		done:      make(chan struct{}),
	}
}

func (f *FakeShell) ID() string                       { return f.id }
func (f *FakeShell) PID() int                         { return f.pid }
func (f *FakeShell) Context() domain.ExecutionContext { return f.ec.Clone() }
func (f *FakeShell) StartedAt() time.Time             { return f.start }
func (f *FakeShell) Done() <-chan struct{}            { return f.done }

func (f *FakeShell) Send(cmd string) error {
	f.mu.Lock()
	if f.inClosed || f.exitedLocked() {
		f.mu.Unlock()
		return &domain.SessionIOError{SessionID: f.id, Op: "write", Err: fmt.Errorf("closed")}
	}
	if !strings.HasSuffix(cmd, "\n") {
		cmd += "\n"
	}
	f.sent = append(f.sent, cmd)
	hook := f.OnSend
	f.mu.Unlock()

	if hook != nil {
		hook(f, cmd)
	}
	return nil
}

func (f *FakeShell) CloseInput() error {
	f.mu.Lock()
	f.inClosed = true
	hook := f.OnCloseInput
	f.mu.Unlock()

	if hook != nil {
		hook(f)
	}
	return nil
}

// InputClosed reports whether CloseInput was called.
func (f *FakeShell) InputClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inClosed
}

// Sent returns the lines written so far.
func (f *FakeShell) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *FakeShell) Output() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return []byte(f.out.String())
}

func (f *FakeShell) Subscribe(fn func([]byte)) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.listeners[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

// Emit appends output and pushes it to subscribers.
func (f *FakeShell) Emit(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out.WriteString(s)
	for _, fn := range f.listeners {
		fn([]byte(s))
	}
}

// Exit marks the process as exited with code.
func (f *FakeShell) Exit(code int) {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.code = code
		f.mu.Unlock()
		close(f.done)
	})
}

func (f *FakeShell) exitedLocked() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *FakeShell) Exited() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exitedLocked()
}

func (f *FakeShell) ExitCode() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code
}

func (f *FakeShell) Killed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.killed
}

func (f *FakeShell) Terminate(ctx context.Context) error {
	f.mu.Lock()
	f.killed = true
	f.inClosed = true
	f.mu.Unlock()
	f.Exit(-1)
	return nil
}

// FakeSpawner hands out FakeShells and remembers them.
type FakeSpawner struct {
	// Setup, if set, configures each new shell before it is returned.
	Setup func(f *FakeShell)
	// Err, if set, is returned instead of a shell.
	Err error

	mu     sync.Mutex
	shells []*FakeShell
}

// Start implements ports.Spawner.
func (s *FakeSpawner) Start(ctx context.Context, id string, ec domain.ExecutionContext) (ports.Shell, error) {
	if s.Err != nil {
		return nil, &domain.SessionSpawnError{SessionID: id, Dir: ec.Dir, Err: s.Err}
	}
	s.mu.Lock()
	f := NewFakeShell(id, 1000+len(s.shells), ec)
	s.shells = append(s.shells, f)
	s.mu.Unlock()
	if s.Setup != nil {
		s.Setup(f)
	}
	return f, nil
}

// Spawned returns every shell started so far.
func (s *FakeSpawner) Spawned() []*FakeShell {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*FakeShell(nil), s.shells...)
}

// Count returns how many shells were started for id.
func (s *FakeSpawner) Count(id string) int {
	n := 0
	for _, f := range s.Spawned() {
		if f.ID() == id {
			n++
		}
	}
	return n
}

// EchoShell gives a FakeShell a minimal command vocabulary:
// "echo X" prints X, "exit N" exits, closing stdin exits 0.
func EchoShell(f *FakeShell) {
	f.OnSend = func(f *FakeShell, line string) {
		cmd := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(cmd, "echo "):
			f.Emit(strings.TrimPrefix(cmd, "echo ") + "\n")
		case strings.HasPrefix(cmd, "exit"):
			code, _ := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(cmd, "exit")))
			f.Exit(code)
		}
	}
	f.OnCloseInput = func(f *FakeShell) { f.Exit(0) }
}
