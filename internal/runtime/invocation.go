package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/launchpad/internal/compiler"
	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/env"
	"github.com/aretw0/launchpad/pkg/session"
	"github.com/aretw0/launchpad/pkg/watch"
)

// Invocation is one top-level run and the sessions it spawned.
type Invocation struct {
	id       string
	engine   *Engine
	registry *session.Registry
	logger   *slog.Logger

	mu     sync.Mutex
	frames int
	steps  int
}

// frame is one executing script.
type frame struct {
	script *domain.Script
	owner  session.Owner
	ec     domain.ExecutionContext
	// root is the directory the script was started from, before its params
	// narrowed ec.
	root   string
	vars   map[string]any
	chain  []string
	depth  int
}

// ID returns the invocation id.
func (inv *Invocation) ID() string { return inv.id }

// Registry returns the invocation's session registry.
func (inv *Invocation) Registry() *session.Registry { return inv.registry }

// RunRef loads ref and runs it.
func (inv *Invocation) RunRef(ctx context.Context, ref string, params map[string]any) (domain.Result, error) {
	script, err := inv.engine.loader.Load(ctx, ref, "")
	if err != nil {
		return domain.Result{RunID: inv.id, Ref: ref}, err
	}
	return inv.Run(ctx, script, params)
}

// Run executes script to completion. params is exposed to the script as
// args and its path, venv and env keys seed the script's default context.
//
// On return every session owned by a non-daemon script is gone. An error
// aborts the whole invocation without rolling back earlier steps.
func (inv *Invocation) Run(ctx context.Context, script *domain.Script, params map[string]any) (domain.Result, error) {
	run := func(ctx context.Context) error {
		return inv.runScript(ctx, script, params, inv.engine.base, nil, 0)
	}

	var err error
	if inv.engine.lock && inv.engine.records != nil {
		err = inv.engine.records.WithLock(ctx, "script:"+script.Ref, run)
	} else {
		err = run(ctx)
	}

	inv.mu.Lock()
	steps := inv.steps
	inv.mu.Unlock()

	res := domain.Result{
		RunID: inv.id,
		Ref:   script.Ref,
		Steps: steps,
		Alive: inv.registry.IDs(),
	}
	if err != nil {
		inv.logger.Debug("run aborted", "script", script.Ref, "err", err)
	}
	return res, err
}

// Shutdown terminates every session, daemon ones included, and waits for
// their exits to be recorded.
func (inv *Invocation) Shutdown(ctx context.Context) error {
	err := inv.registry.KillAll(ctx)
	inv.registry.WaitExits()
	return err
}

// Wait blocks until every session has exited or ctx is done.
func (inv *Invocation) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		inv.registry.WaitExits()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (inv *Invocation) nextFrame() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.frames++
	return inv.frames
}

func (inv *Invocation) countStep() {
	inv.mu.Lock()
	inv.steps++
	inv.mu.Unlock()
}

func (inv *Invocation) runScript(ctx context.Context, script *domain.Script, params map[string]any, parent domain.ExecutionContext, chain []string, depth int) (err error) {
	if slices.Contains(chain, script.Ref) {
		return &domain.ScriptResolutionError{
			Ref: script.Ref,
			Err: fmt.Errorf("%w: %s", domain.ErrCyclicScript, strings.Join(append(chain, script.Ref), " -> ")),
		}
	}
	if depth > inv.engine.maxDepth {
		return &domain.ScriptResolutionError{
			Ref: script.Ref,
			Err: fmt.Errorf("nesting depth %d exceeds %d", depth, inv.engine.maxDepth),
		}
	}

	ov, err := overridesFrom(params)
	if err != nil {
		return &domain.ScriptFormatError{Ref: script.Ref, Step: -1, Reason: "params", Err: err}
	}
	ec := env.Resolve(parent, ov)

	f := &frame{
		script: script,
		owner:  session.Owner{Frame: inv.nextFrame(), Ref: script.Ref, Daemon: script.Daemon},
		ec:     ec,
		root:   parent.Dir,
		vars:   templateVars(params, ec),
		chain:  append(chain[:len(chain):len(chain)], script.Ref),
		depth:  depth,
	}

	hooks := inv.engine.hooks
	if hooks.OnScriptEnter != nil {
		hooks.OnScriptEnter(ctx, inv.scriptEvent(domain.EventScriptEnter, f, nil))
	}
	inv.logger.Debug("script enter", "script", script.Ref, "depth", depth, "daemon", script.Daemon)

	defer func() {
		// Unwinding must complete even when ctx is already cancelled.
		cleanup := context.WithoutCancel(ctx)
		if kerr := inv.registry.KillAllUnlessDaemon(cleanup, f.owner); kerr != nil {
			inv.logger.Warn("failed to terminate sessions", "script", script.Ref, "err", kerr)
			if err == nil {
				err = kerr
			}
		}
		if hooks.OnScriptLeave != nil {
			hooks.OnScriptLeave(cleanup, inv.scriptEvent(domain.EventScriptLeave, f, err))
		}
		inv.logger.Debug("script leave", "script", script.Ref, "depth", depth, "err", err)
	}()

	for i, step := range script.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := inv.runStep(ctx, f, i, step); err != nil {
			return err
		}
	}
	return nil
}

func (inv *Invocation) runStep(ctx context.Context, f *frame, index int, step domain.Step) (err error) {
	hooks := inv.engine.hooks
	start := time.Now()
	if hooks.OnStepStart != nil {
		hooks.OnStepStart(ctx, inv.stepEvent(domain.EventStepStart, f, index, step, 0, nil))
	}
	inv.logger.Debug("step start", "script", f.script.Ref, "step", index, "method", step.Method())

	defer func() {
		inv.countStep()
		d := time.Since(start)
		if hooks.OnStepEnd != nil {
			hooks.OnStepEnd(context.WithoutCancel(ctx), inv.stepEvent(domain.EventStepEnd, f, index, step, d, err))
		}
		inv.logger.Debug("step end", "script", f.script.Ref, "step", index, "duration", d, "err", err)
	}()

	bound, err := compiler.Bind(step, f.vars)
	if err != nil {
		return &domain.ScriptFormatError{Ref: f.script.Ref, Step: index, Reason: "template", Err: err}
	}

	switch s := bound.(type) {
	case *domain.ShellStep:
		return inv.runShell(ctx, f, s)
	case *domain.ScriptStep:
		return inv.runNested(ctx, f, s)
	default:
		return &domain.ScriptFormatError{Ref: f.script.Ref, Step: index, Reason: fmt.Sprintf("unsupported step %T", step)}
	}
}

func (inv *Invocation) runNested(ctx context.Context, f *frame, s *domain.ScriptStep) error {
	nested, err := inv.engine.loader.Load(ctx, s.URI, f.script.Ref)
	if err != nil {
		return err
	}
	return inv.runScript(ctx, nested, s.Params, f.ec, f.chain, f.depth+1)
}

func (inv *Invocation) runShell(ctx context.Context, f *frame, s *domain.ShellStep) error {
	id := s.SessionID
	if id == "" {
		id = inv.engine.newID()
	}
	ec := f.stepContext(s.Overrides)

	sh, spawned, err := inv.registry.Acquire(ctx, id, ec, f.owner)
	if err != nil {
		return err
	}
	if !spawned && !s.Overrides.IsZero() {
		inv.logger.Debug("session reused, context overrides ignored", "session", id)
	}

	stepCtx, cancel := inv.watchdog(ctx)
	defer cancel()

	// Subscribe before writing so output produced by these commands is seen.
	var w *watch.Watcher
	if s.Awaits() {
		w = watch.New(sh, s.Triggers, watch.WithLogger(inv.logger))
		defer w.Close()
	}

	for _, cmd := range s.Commands {
		if err := sh.Send(cmd); err != nil {
			return err
		}
	}

	if w == nil {
		if !spawned {
			// Input for a session an earlier step started; it keeps running.
			inv.logger.Debug("input sent to live session", "session", id)
			return nil
		}
		// Run to completion: no more input will come for this session.
		if err := sh.CloseInput(); err != nil {
			return err
		}
		select {
		case <-sh.Done():
			inv.logger.Debug("session completed", "session", id, "code", sh.ExitCode())
			return nil
		case <-stepCtx.Done():
			return inv.interrupted(ctx, id)
		}
	}

	out, err := w.Wait(stepCtx)
	if err != nil {
		return inv.interrupted(ctx, id)
	}
	inv.trigger(ctx, id, out)

	if out.Kill() {
		// kill wins over daemon: the session is gone before the next step.
		if err := inv.registry.Kill(context.WithoutCancel(ctx), id); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return err
		}
	}
	return nil
}

// stepContext resolves a step's overrides over the script context. A relative
// step path is taken from the script's root, not from the directory its params
// narrowed to, so {{ args.path }} and an omitted path agree.
func (f *frame) stepContext(ov domain.Overrides) domain.ExecutionContext {
	ec := env.Resolve(f.ec, ov)
	if ov.Path != "" && !filepath.IsAbs(ov.Path) {
		ec.Dir = env.Resolve(domain.ExecutionContext{Dir: f.root}, domain.Overrides{Path: ov.Path}).Dir
	}
	return ec
}

func (inv *Invocation) watchdog(ctx context.Context) (context.Context, context.CancelFunc) {
	if inv.engine.stepTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, inv.engine.stepTimeout)
}

// interrupted tells a watchdog expiry apart from the caller cancelling.
func (inv *Invocation) interrupted(ctx context.Context, id string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: session %q after %s", domain.ErrWatchdog, id, inv.engine.stepTimeout)
}

func (inv *Invocation) trigger(ctx context.Context, id string, out watch.Outcome) {
	ev := &domain.TriggerEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventTrigger, RunID: inv.id},
		SessionID: id,
		Mode:      out.Mode,
		Exited:    out.State == watch.ProcessExited,
	}
	if out.Trigger != nil {
		ev.Pattern = out.Trigger.Source
	}
	inv.logger.Debug("trigger", "session", id, "pattern", ev.Pattern, "mode", ev.Mode, "exited", ev.Exited)
	if inv.engine.hooks.OnTrigger != nil {
		inv.engine.hooks.OnTrigger(ctx, ev)
	}
}

func (inv *Invocation) scriptEvent(t domain.EventType, f *frame, err error) *domain.ScriptEvent {
	return &domain.ScriptEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: t, RunID: inv.id},
		Ref:       f.script.Ref,
		Depth:     f.depth,
		Daemon:    f.script.Daemon,
		Err:       err,
	}
}

func (inv *Invocation) stepEvent(t domain.EventType, f *frame, index int, step domain.Step, d time.Duration, err error) *domain.StepEvent {
	return &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: t, RunID: inv.id},
		Ref:       f.script.Ref,
		Index:     index,
		Method:    step.Method(),
		Duration:  d,
		Err:       err,
	}
}
