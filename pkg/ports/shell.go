package ports

import (
	"context"
	"time"

	"github.com/aretw0/launchpad/pkg/domain"
)

// Shell is a live session process as seen by the registry and the watcher.
type Shell interface {
	ID() string
	PID() int
	Context() domain.ExecutionContext
	StartedAt() time.Time

	// Send writes one command line to stdin.
	Send(cmd string) error
	// CloseInput closes stdin so the shell exits after its last command.
	CloseInput() error

	// Output returns the retained output.
	Output() []byte
	// Subscribe registers fn for output produced after the call.
	Subscribe(fn func(p []byte)) (cancel func())

	// Done is closed after the process exited and all its output was delivered.
	Done() <-chan struct{}
	Exited() bool
	ExitCode() int
	Killed() bool

	// Terminate stops the whole process tree and returns once it is gone.
	Terminate(ctx context.Context) error
}

// Spawner starts shells.
type Spawner interface {
	Start(ctx context.Context, id string, ec domain.ExecutionContext) (Shell, error)
}
