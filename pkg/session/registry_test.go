package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/launchpad/internal/testutils"
	"github.com/aretw0/launchpad/pkg/adapters/memory"
	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var root = session.Owner{Frame: 0, Ref: "install.json"}

func TestRegistry_AcquireReusesLiveSession(t *testing.T) {
	spawner := &testutils.FakeSpawner{}
	reg := session.NewRegistry("run-1", spawner)
	ctx := context.Background()

	first, spawned, err := reg.Acquire(ctx, "c", domain.ExecutionContext{Dir: "app"}, root)
	require.NoError(t, err)
	assert.True(t, spawned)

	second, spawned, err := reg.Acquire(ctx, "c", domain.ExecutionContext{Dir: "elsewhere"}, session.Owner{Frame: 1})
	require.NoError(t, err)
	assert.False(t, spawned)
	assert.Same(t, first, second)
	assert.Equal(t, "app", second.Context().Dir, "a reused session keeps its original context")

	owner, ok := reg.Owner("c")
	require.True(t, ok)
	assert.Equal(t, 0, owner.Frame, "a reused session keeps its original owner")
	assert.Equal(t, 1, spawner.Count("c"))
}

func TestRegistry_ConcurrentAcquireNeverDoubleSpawns(t *testing.T) {
	spawner := &testutils.FakeSpawner{}
	reg := session.NewRegistry("run-1", spawner)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := reg.Acquire(context.Background(), "shared", domain.ExecutionContext{}, root)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, spawner.Count("shared"))
}

func TestRegistry_NaturalExitRemovesEntry(t *testing.T) {
	spawner := &testutils.FakeSpawner{}
	reg := session.NewRegistry("run-1", spawner)
	ctx := context.Background()

	sh, _, err := reg.Acquire(ctx, "c", domain.ExecutionContext{}, root)
	require.NoError(t, err)

	sh.(*testutils.FakeShell).Exit(0)
	reg.WaitExits()

	_, ok := reg.Get("c")
	assert.False(t, ok)
	assert.Zero(t, reg.Len())

	// A dead id is respawned on reuse.
	_, spawned, err := reg.Acquire(ctx, "c", domain.ExecutionContext{}, root)
	require.NoError(t, err)
	assert.True(t, spawned)
	assert.Equal(t, 2, spawner.Count("c"))
}

func TestRegistry_KillRemovesBeforeReturning(t *testing.T) {
	reg := session.NewRegistry("run-1", &testutils.FakeSpawner{})
	ctx := context.Background()

	sh, _, err := reg.Acquire(ctx, "c", domain.ExecutionContext{}, root)
	require.NoError(t, err)

	require.NoError(t, reg.Kill(ctx, "c"))
	_, ok := reg.Get("c")
	assert.False(t, ok)
	assert.NotContains(t, reg.IDs(), "c")
	assert.True(t, sh.Killed())

	assert.ErrorIs(t, reg.Kill(ctx, "c"), domain.ErrSessionNotFound)
}

func TestRegistry_KillAllUnlessDaemon(t *testing.T) {
	reg := session.NewRegistry("run-1", &testutils.FakeSpawner{})
	ctx := context.Background()

	parent := session.Owner{Frame: 0, Ref: "install.json"}
	nested := session.Owner{Frame: 1, Ref: "torch.json"}
	daemon := session.Owner{Frame: 2, Ref: "client.json", Daemon: true}

	for id, owner := range map[string]session.Owner{"p": parent, "n": nested, "d": daemon} {
		_, _, err := reg.Acquire(ctx, id, domain.ExecutionContext{}, owner)
		require.NoError(t, err)
	}

	require.NoError(t, reg.KillAllUnlessDaemon(ctx, daemon))
	assert.Equal(t, []string{"d", "n", "p"}, reg.IDs())

	require.NoError(t, reg.KillAllUnlessDaemon(ctx, nested))
	assert.Equal(t, []string{"d", "p"}, reg.IDs(), "only the finishing frame's sessions go")

	require.NoError(t, reg.KillAll(ctx))
	assert.Empty(t, reg.IDs())
}

func TestRegistry_SpawnErrorPropagates(t *testing.T) {
	reg := session.NewRegistry("run-1", &testutils.FakeSpawner{Err: errors.New("no shell")})

	_, _, err := reg.Acquire(context.Background(), "c", domain.ExecutionContext{}, root)
	assert.ErrorIs(t, err, domain.ErrSessionSpawn)
	assert.Zero(t, reg.Len())
}

func TestRegistry_RecordsAndHooks(t *testing.T) {
	store := memory.NewStore()
	var mu sync.Mutex
	var events []domain.EventType
	hooks := domain.LifecycleHooks{
		OnSessionSpawn: func(_ context.Context, e *domain.SessionEvent) {
			mu.Lock()
			events = append(events, e.Type)
			mu.Unlock()
		},
		OnSessionExit: func(_ context.Context, e *domain.SessionEvent) {
			mu.Lock()
			events = append(events, e.Type)
			mu.Unlock()
		},
	}
	reg := session.NewRegistry("run-9", &testutils.FakeSpawner{},
		session.WithRecords(session.NewManager(store)),
		session.WithHooks(hooks),
	)
	ctx := context.Background()

	_, _, err := reg.Acquire(ctx, "client", domain.ExecutionContext{Dir: "app", Venv: "env"}, session.Owner{Ref: "client.json", Daemon: true})
	require.NoError(t, err)

	rec, err := store.Load(ctx, "run-9/client")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionRunning, rec.Status)
	assert.Equal(t, "app", rec.Dir)
	assert.Equal(t, "env", rec.Venv)
	assert.True(t, rec.Daemon)

	snap := reg.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "client", snap[0].ID)

	require.NoError(t, reg.Kill(ctx, "client"))
	reg.WaitExits()

	rec, err = store.Load(ctx, "run-9/client")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionKilled, rec.Status)
	assert.NotNil(t, rec.EndedAt)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.EventType{domain.EventSessionSpawn, domain.EventSessionExit}, events)
}

func TestRegistry_KillHonorsContext(t *testing.T) {
	reg := session.NewRegistry("run-1", &testutils.FakeSpawner{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, _, err := reg.Acquire(ctx, "c", domain.ExecutionContext{}, root)
	require.NoError(t, err)
	assert.NoError(t, reg.KillAll(ctx))
}
