package launchpad

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/launchpad/internal/compiler"
	"github.com/aretw0/launchpad/internal/logging"
	"github.com/aretw0/launchpad/internal/runtime"
	"github.com/aretw0/launchpad/internal/validator"
	"github.com/aretw0/launchpad/pkg/adapters/file"
	"github.com/aretw0/launchpad/pkg/adapters/process"
	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/ports"
	"github.com/aretw0/launchpad/pkg/session"
)

// Invocation is one top-level run and the sessions it owns.
type Invocation = runtime.Invocation

// ValidationReport is the outcome of Validate.
type ValidationReport = validator.Report

// Engine is the high-level entry point for the launchpad library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime *runtime.Engine
	loader  ports.ScriptLoader
	scripts *compiler.Loader
	spawner ports.Spawner
	records *session.Manager

	store       ports.SessionStore
	locker      ports.DistributedLocker
	lockScripts bool
	shell       *process.ShellConfig
	sink        ports.OutputSink
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	stepTimeout time.Duration
	maxDepth    int
	base        domain.ExecutionContext

	// Name is the base name of the script root.
	Name string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks. Repeated calls accumulate.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLoader injects a custom ScriptLoader, bypassing the filesystem loader.
func WithLoader(l ports.ScriptLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithSpawner injects a custom Spawner, bypassing the process supervisor.
func WithSpawner(s ports.Spawner) Option {
	return func(e *Engine) {
		e.spawner = s
	}
}

// WithShell configures the shell program of the default supervisor.
func WithShell(cfg process.ShellConfig) Option {
	return func(e *Engine) {
		e.shell = &cfg
	}
}

// WithOutputSink receives every byte sessions produce (default supervisor only).
func WithOutputSink(sink ports.OutputSink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStore persists session records.
func WithStore(store ports.SessionStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker allows only one top-level run per script reference across
// processes sharing the locker. It requires WithStore.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
		e.lockScripts = locker != nil
	}
}

// WithStepTimeout arms a watchdog on every shell step. Zero disables it.
func WithStepTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.stepTimeout = d
	}
}

// WithMaxDepth bounds script.start nesting.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		e.maxDepth = n
	}
}

// WithBaseContext sets the context top-level scripts inherit.
// By default sessions start in the script root.
func WithBaseContext(ec domain.ExecutionContext) Option {
	return func(e *Engine) {
		e.base = ec
	}
}

// New initializes a new Engine.
// By default, scripts are read from the directory root and sessions are
// backed by the platform shell.
func New(root string, opts ...Option) (*Engine, error) {
	eng := &Engine{}

	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	if eng.loader == nil {
		fl, err := file.NewLoader(root)
		if err != nil {
			return nil, err
		}
		eng.loader = fl
		eng.Name = filepath.Base(fl.Root)
		if eng.base.Dir == "" {
			eng.base.Dir = fl.Root
		}
	} else if root != "" {
		eng.Name = filepath.Base(root)
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("root", eng.Name)
	}

	if eng.spawner == nil {
		cfg := process.DefaultShell()
		if eng.shell != nil {
			cfg = *eng.shell
		}
		grace, err := cfg.GraceDuration()
		if err != nil {
			return nil, err
		}
		eng.spawner = process.NewSupervisor(
			process.WithShell(cfg),
			process.WithGrace(grace),
			process.WithSink(eng.sink),
			process.WithLogger(eng.logger),
		)
	}

	if eng.store != nil {
		eng.records = session.NewManager(eng.store,
			session.WithLocker(eng.locker),
			session.WithLogger(eng.logger),
		)
	} else if eng.locker != nil {
		return nil, errors.New("a locker requires a session store")
	}

	eng.scripts = compiler.NewLoader(eng.loader)
	eng.runtime = runtime.NewEngine(eng.scripts, eng.spawner,
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithRecords(eng.records),
		runtime.WithScriptLock(eng.lockScripts),
		runtime.WithStepTimeout(eng.stepTimeout),
		runtime.WithMaxDepth(eng.maxDepth),
		runtime.WithBaseContext(eng.base),
	)
	return eng, nil
}

// Run executes ref in a fresh invocation. The invocation is returned even on
// error so that callers can inspect or shut down what the run left behind;
// for daemon scripts it owns the sessions that are still alive.
func (e *Engine) Run(ctx context.Context, ref string, params map[string]any) (*Invocation, domain.Result, error) {
	inv := e.NewInvocation()
	res, err := inv.RunRef(ctx, ref, params)
	return inv, res, err
}

// NewInvocation prepares an empty invocation for callers that need its id
// before the run starts.
func (e *Engine) NewInvocation() *Invocation {
	return e.runtime.NewInvocation()
}

// Load resolves and parses ref without running it.
func (e *Engine) Load(ctx context.Context, ref string) (*domain.Script, error) {
	return e.scripts.Load(ctx, ref, "")
}

// Validate checks ref and every script it statically reaches.
func (e *Engine) Validate(ctx context.Context, ref string) *ValidationReport {
	return validator.ValidateTree(ctx, e.scripts, ref)
}

// Scripts lists the references the loader knows about.
func (e *Engine) Scripts(ctx context.Context) ([]string, error) {
	l, ok := e.loader.(ports.Lister)
	if !ok {
		return nil, fmt.Errorf("loader %T cannot list scripts", e.loader)
	}
	return l.List(ctx)
}

// Sessions returns the persisted session records, or nil without a store.
func (e *Engine) Sessions(ctx context.Context) ([]domain.SessionRecord, error) {
	if e.records == nil {
		return nil, nil
	}
	return e.records.List(ctx)
}

// Records returns the session record manager, or nil without a store.
func (e *Engine) Records() *session.Manager {
	return e.records
}

// Loader returns the underlying ScriptLoader used by the engine.
func (e *Engine) Loader() ports.ScriptLoader {
	return e.loader
}
