package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/launchpad/internal/logging"
	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/ports"
)

// Owner identifies the script frame that spawned a session.
type Owner struct {
	// Frame is unique per script execution within an invocation.
	Frame  int
	Ref    string
	Daemon bool
}

type entry struct {
	shell ports.Shell
	owner Owner
}

// Registry maps session ids to live shells for one invocation.
// Safe for concurrent use.
type Registry struct {
	runID   string
	spawner ports.Spawner
	records *Manager
	hooks   domain.LifecycleHooks
	logger  *slog.Logger

	locks   *keyedMutex
	mu      sync.Mutex
	entries map[string]*entry
	exits   sync.WaitGroup
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRecords persists a record for every session through m.
func WithRecords(m *Manager) RegistryOption {
	return func(r *Registry) {
		r.records = m
	}
}

// WithHooks sets spawn and exit callbacks.
func WithHooks(h domain.LifecycleHooks) RegistryOption {
	return func(r *Registry) {
		r.hooks = h
	}
}

// WithRegistryLogger sets the logger.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry for the invocation runID.
func NewRegistry(runID string, spawner ports.Spawner, opts ...RegistryOption) *Registry {
	r := &Registry{
		runID:   runID,
		spawner: spawner,
		logger:  logging.NewNop(),
		locks:   newKeyedMutex(),
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunID returns the invocation id.
func (r *Registry) RunID() string { return r.runID }

// Acquire returns the live shell registered under id, or spawns one rooted at ec.
// spawned reports whether a new process was started. A reused session keeps
// its original owner and context.
func (r *Registry) Acquire(ctx context.Context, id string, ec domain.ExecutionContext, owner Owner) (sh ports.Shell, spawned bool, err error) {
	unlock := r.locks.Lock(id)
	defer unlock()

	if sh, ok := r.Get(id); ok {
		return sh, false, nil
	}

	sh, err = r.spawner.Start(ctx, id, ec)
	if err != nil {
		return nil, false, err
	}
	r.Put(ctx, id, sh, owner)
	return sh, true, nil
}

// Get returns the live shell registered under id.
func (r *Registry) Get(id string) (ports.Shell, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.shell.Exited() {
		return nil, false
	}
	return e.shell, true
}

// Owner returns the frame that spawned id.
func (r *Registry) Owner(id string) (Owner, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return Owner{}, false
	}
	return e.owner, true
}

// Put registers sh under id and watches it for exit. A natural exit removes the entry.
func (r *Registry) Put(ctx context.Context, id string, sh ports.Shell, owner Owner) {
	r.mu.Lock()
	r.entries[id] = &entry{shell: sh, owner: owner}
	r.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	r.logger.Debug("session registered", "session", id, "pid", sh.PID(), "script", owner.Ref)
	r.records.Record(bg, r.record(id, sh, owner))
	if r.hooks.OnSessionSpawn != nil {
		r.hooks.OnSessionSpawn(bg, &domain.SessionEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventSessionSpawn, RunID: r.runID},
			SessionID: id,
			PID:       sh.PID(),
		})
	}

	r.exits.Add(1)
	go func() {
		defer r.exits.Done()
		<-sh.Done()
		r.removeShell(id, sh)

		r.logger.Debug("session gone", "session", id, "code", sh.ExitCode(), "killed", sh.Killed())
		r.records.Record(bg, r.record(id, sh, owner))
		if r.hooks.OnSessionExit != nil {
			r.hooks.OnSessionExit(bg, &domain.SessionEvent{
				EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventSessionExit, RunID: r.runID},
				SessionID: id,
				PID:       sh.PID(),
				ExitCode:  sh.ExitCode(),
			})
		}
	}()
}

// Remove forgets id without touching its process.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

func (r *Registry) removeShell(id string, sh ports.Shell) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok && e.shell == sh {
		delete(r.entries, id)
	}
}

// Kill terminates id and removes it. On return the id is absent from the registry.
func (r *Registry) Kill(ctx context.Context, id string) error {
	unlock := r.locks.Lock(id)
	defer unlock()

	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}

	err := e.shell.Terminate(ctx)
	r.removeShell(id, e.shell)
	return err
}

// KillAllUnlessDaemon terminates the sessions spawned by owner's frame,
// unless that frame belongs to a daemon script.
func (r *Registry) KillAllUnlessDaemon(ctx context.Context, owner Owner) error {
	if owner.Daemon {
		return nil
	}
	return r.killWhere(ctx, func(o Owner) bool { return o.Frame == owner.Frame })
}

// KillAll terminates every registered session, daemon or not.
func (r *Registry) KillAll(ctx context.Context) error {
	return r.killWhere(ctx, func(Owner) bool { return true })
}

func (r *Registry) killWhere(ctx context.Context, match func(Owner) bool) error {
	r.mu.Lock()
	var ids []string
	for id, e := range r.entries {
		if match(e.owner) {
			ids = append(ids, id)
		}
	}
	r.mu.Unlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Kill(ctx, id); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// IDs returns the registered ids in lexical order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Snapshot describes the registered sessions.
func (r *Registry) Snapshot() []domain.SessionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.SessionRecord, 0, len(r.entries))
	for id, e := range r.entries {
		out = append(out, r.record(id, e.shell, e.owner))
	}
	slices.SortFunc(out, func(a, b domain.SessionRecord) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// WaitExits blocks until every registered shell has exited and been accounted for.
func (r *Registry) WaitExits() {
	r.exits.Wait()
}

func (r *Registry) record(id string, sh ports.Shell, owner Owner) domain.SessionRecord {
	ec := sh.Context()
	rec := domain.SessionRecord{
		ID:        id,
		RunID:     r.runID,
		Script:    owner.Ref,
		PID:       sh.PID(),
		Dir:       ec.Dir,
		Venv:      ec.Venv,
		Daemon:    owner.Daemon,
		Status:    domain.SessionRunning,
		StartedAt: sh.StartedAt(),
	}
	if sh.Exited() {
		now := time.Now()
		rec.EndedAt = &now
		rec.ExitCode = sh.ExitCode()
		rec.Status = domain.SessionExited
		if sh.Killed() {
			rec.Status = domain.SessionKilled
		}
	}
	return rec
}
