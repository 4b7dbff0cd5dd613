// Package runtime sequences script steps.
//
// An Engine is long-lived and holds the collaborators. Each top-level run
// happens inside an Invocation, which owns the session registry: sessions are
// addressed by id within one invocation and never leak across invocations.
//
// Sessions are terminated when their owning script finishes (unless it is a
// daemon) and when a run aborts. A host crash can still orphan processes;
// session records left in the store are how operators find them.
package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/launchpad/internal/compiler"
	"github.com/aretw0/launchpad/internal/logging"
	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/ports"
	"github.com/aretw0/launchpad/pkg/session"
	"github.com/google/uuid"
)

// DefaultMaxDepth bounds script.start nesting.
const DefaultMaxDepth = 32

// Engine runs scripts.
type Engine struct {
	loader      *compiler.Loader
	spawner     ports.Spawner
	records     *session.Manager
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	stepTimeout time.Duration
	maxDepth    int
	lock        bool
	base        domain.ExecutionContext
	newID       func() string
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithRecords persists session records through m.
func WithRecords(m *session.Manager) EngineOption {
	return func(e *Engine) {
		e.records = m
	}
}

// WithScriptLock serializes top-level runs of the same script reference
// through the records manager's locks. It requires WithRecords.
func WithScriptLock(enabled bool) EngineOption {
	return func(e *Engine) {
		e.lock = enabled
	}
}

// WithStepTimeout arms a watchdog on every shell step. Zero disables it.
func WithStepTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.stepTimeout = d
	}
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// WithBaseContext sets the context top-level scripts inherit.
func WithBaseContext(ec domain.ExecutionContext) EngineOption {
	return func(e *Engine) {
		e.base = ec.Clone()
	}
}

// WithIDGenerator replaces the generator used for session ids a step leaves
// out and for invocation ids.
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEngine creates an engine resolving scripts through loader and starting
// shells through spawner.
func NewEngine(loader *compiler.Loader, spawner ports.Spawner, opts ...EngineOption) *Engine {
	e := &Engine{
		loader:   loader,
		spawner:  spawner,
		logger:   logging.NewNop(),
		maxDepth: DefaultMaxDepth,
		base:     domain.ExecutionContext{}.Clone(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Loader returns the script loader.
func (e *Engine) Loader() *compiler.Loader { return e.loader }

// NewInvocation prepares a fresh top-level invocation with an empty registry.
func (e *Engine) NewInvocation() *Invocation {
	id := e.newID()
	return &Invocation{
		id:     id,
		engine: e,
		logger: e.logger.With("run", id),
		registry: session.NewRegistry(id, e.spawner,
			session.WithRecords(e.records),
			session.WithHooks(e.hooks),
			session.WithRegistryLogger(e.logger),
		),
	}
}
