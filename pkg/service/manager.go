package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/launchpad"
	"github.com/aretw0/launchpad/internal/logging"
	"github.com/aretw0/launchpad/pkg/domain"
)

// RunStatus is the state of a managed run.
type RunStatus string

const (
	// RunRunning means the script is still stepping.
	RunRunning RunStatus = "running"
	// RunFinished means the step list completed. Daemon sessions may still be alive.
	RunFinished RunStatus = "finished"
	// RunFailed means the run aborted with an error.
	RunFailed RunStatus = "failed"
	// RunStopped means every session of the run was terminated by an operator.
	RunStopped RunStatus = "stopped"
)

var (
	ErrRunNotFound = errors.New("run not found")
	ErrRunStopped  = errors.New("run already stopped")
)

// RunInfo is a point-in-time view of a managed run.
type RunInfo struct {
	ID        string                 `json:"id"`
	Ref       string                 `json:"ref"`
	Params    map[string]any         `json:"params,omitempty"`
	Status    RunStatus              `json:"status"`
	Error     string                 `json:"error,omitempty"`
	Steps     int                    `json:"steps"`
	Sessions  []domain.SessionRecord `json:"sessions"`
	StartedAt time.Time              `json:"started_at"`
	EndedAt   *time.Time             `json:"ended_at,omitempty"`
}

type run struct {
	id     string
	ref    string
	params map[string]any
	inv    *launchpad.Invocation
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	status  RunStatus
	err     error
	result  domain.Result
	started time.Time
	ended   *time.Time
}

func (r *run) info() RunInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	info := RunInfo{
		ID:        r.id,
		Ref:       r.ref,
		Params:    r.params,
		Status:    r.status,
		Steps:     r.result.Steps,
		Sessions:  r.inv.Registry().Snapshot(),
		StartedAt: r.started,
		EndedAt:   r.ended,
	}
	if r.err != nil {
		info.Error = r.err.Error()
	}
	return info
}

// Manager runs scripts in the background and keeps their invocations
// addressable by run id.
type Manager struct {
	engine *launchpad.Engine
	logger *slog.Logger

	mu   sync.Mutex
	runs map[string]*run
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager over engine.
func NewManager(engine *launchpad.Engine, opts ...Option) *Manager {
	m := &Manager{
		engine: engine,
		logger: logging.NewNop(),
		runs:   make(map[string]*run),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Engine returns the engine runs are started on.
func (m *Manager) Engine() *launchpad.Engine { return m.engine }

// Start launches ref in the background and returns immediately.
// The script is loaded first so that resolution and format errors are
// reported to the caller instead of surfacing as a failed run.
func (m *Manager) Start(ctx context.Context, ref string, params map[string]any) (RunInfo, error) {
	script, err := m.engine.Load(ctx, ref)
	if err != nil {
		return RunInfo{}, err
	}

	inv := m.engine.NewInvocation()
	runCtx, cancel := context.WithCancel(context.Background())
	r := &run{
		id:      inv.ID(),
		ref:     script.Ref,
		params:  params,
		inv:     inv,
		cancel:  cancel,
		done:    make(chan struct{}),
		status:  RunRunning,
		started: time.Now(),
	}

	m.mu.Lock()
	m.runs[r.id] = r
	m.mu.Unlock()

	logger := m.logger.With("run", r.id, "script", r.ref)
	logger.Info("run started")

	go func() {
		defer close(r.done)
		res, err := inv.Run(runCtx, script, params)

		r.mu.Lock()
		defer r.mu.Unlock()
		now := time.Now()
		r.result = res
		r.ended = &now
		if r.status == RunStopped {
			return
		}
		if err != nil {
			r.status, r.err = RunFailed, err
			logger.Warn("run failed", "err", err)
			return
		}
		r.status = RunFinished
		logger.Info("run finished", "steps", res.Steps, "alive", len(res.Alive))
	}()

	return r.info(), nil
}

// Wait blocks until the run's step list is done or ctx ends.
func (m *Manager) Wait(ctx context.Context, id string) (RunInfo, error) {
	r, err := m.get(id)
	if err != nil {
		return RunInfo{}, err
	}
	select {
	case <-r.done:
		return r.info(), nil
	case <-ctx.Done():
		return r.info(), ctx.Err()
	}
}

// Get returns the run's current state.
func (m *Manager) Get(id string) (RunInfo, error) {
	r, err := m.get(id)
	if err != nil {
		return RunInfo{}, err
	}
	return r.info(), nil
}

// List returns every run, oldest first.
func (m *Manager) List() []RunInfo {
	m.mu.Lock()
	runs := make([]*run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	m.mu.Unlock()

	out := make([]RunInfo, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.info())
	}
	slices.SortFunc(out, func(a, b RunInfo) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Stop aborts the run and terminates all of its sessions, daemon ones included.
func (m *Manager) Stop(ctx context.Context, id string) (RunInfo, error) {
	r, err := m.get(id)
	if err != nil {
		return RunInfo{}, err
	}

	r.mu.Lock()
	if r.status == RunStopped {
		r.mu.Unlock()
		return r.info(), ErrRunStopped
	}
	r.status = RunStopped
	r.mu.Unlock()

	r.cancel()
	select {
	case <-r.done:
	case <-ctx.Done():
		return r.info(), ctx.Err()
	}
	err = r.inv.Shutdown(ctx)
	m.logger.Info("run stopped", "run", id)
	return r.info(), err
}

// Remove forgets a run that is no longer running and has no live sessions.
func (m *Manager) Remove(id string) error {
	r, err := m.get(id)
	if err != nil {
		return err
	}
	info := r.info()
	if info.Status == RunRunning || len(info.Sessions) > 0 {
		return fmt.Errorf("run %s is still active", id)
	}
	m.mu.Lock()
	delete(m.runs, id)
	m.mu.Unlock()
	return nil
}

// Output returns the retained output of a live session.
func (m *Manager) Output(id, session string) ([]byte, error) {
	r, err := m.get(id)
	if err != nil {
		return nil, err
	}
	sh, ok := r.inv.Registry().Get(session)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, session)
	}
	return sh.Output(), nil
}

// Subscribe streams output produced by a live session after the call.
// The returned channel is closed when the session exits or cancel is called.
func (m *Manager) Subscribe(id, session string) (<-chan []byte, func(), error) {
	r, err := m.get(id)
	if err != nil {
		return nil, nil, err
	}
	sh, ok := r.inv.Registry().Get(session)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, session)
	}

	ch := make(chan []byte, 64)
	var once sync.Once
	var mu sync.Mutex
	closed := false
	stop := sh.Subscribe(func(p []byte) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- slices.Clone(p):
		default:
			m.logger.Warn("output subscriber too slow, dropping chunk", "run", id, "session", session)
		}
	})
	cancel := func() {
		once.Do(func() {
			stop()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}
	go func() {
		<-sh.Done()
		cancel()
	}()
	return ch, cancel, nil
}

// Send writes operator input to a live session, one command per line.
func (m *Manager) Send(id, session, input string) error {
	lines, err := InputLines(input)
	if err != nil {
		return err
	}
	r, err := m.get(id)
	if err != nil {
		return err
	}
	sh, ok := r.inv.Registry().Get(session)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, session)
	}
	for _, line := range lines {
		if err := sh.Send(line); err != nil {
			return err
		}
	}
	return nil
}

// Kill terminates one session of the run.
func (m *Manager) Kill(ctx context.Context, id, session string) error {
	r, err := m.get(id)
	if err != nil {
		return err
	}
	if _, ok := r.inv.Registry().Get(session); !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, session)
	}
	return r.inv.Registry().Kill(ctx, session)
}

// Close stops every run.
func (m *Manager) Close(ctx context.Context) error {
	var errs []error
	for _, info := range m.List() {
		if _, err := m.Stop(ctx, info.ID); err != nil && !errors.Is(err, ErrRunStopped) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) get(id string) (*run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, nil
}
