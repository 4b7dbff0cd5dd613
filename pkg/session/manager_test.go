package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/launchpad/pkg/adapters/memory"
	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/ports"
	"github.com/aretw0/launchpad/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLocker struct {
	mu     sync.Mutex
	locked map[string]int
	fail   error
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.fail != nil {
		return nil, l.fail
	}
	l.mu.Lock()
	if l.locked == nil {
		l.locked = map[string]int{}
	}
	l.locked[key]++
	l.mu.Unlock()
	return func(context.Context) error {
		l.mu.Lock()
		l.locked[key]--
		l.mu.Unlock()
		return nil
	}, nil
}

func TestManager_WithLock_Distributed(t *testing.T) {
	locker := &countingLocker{}
	mgr := session.NewManager(memory.NewStore(), session.WithLocker(locker))

	err := mgr.WithLock(context.Background(), "install.json", func(context.Context) error {
		assert.Equal(t, 1, locker.locked["install.json"])
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, locker.locked["install.json"])
}

func TestManager_WithLock_LockerFailure(t *testing.T) {
	boom := errors.New("redis down")
	mgr := session.NewManager(memory.NewStore(), session.WithLocker(&countingLocker{fail: boom}))

	called := false
	err := mgr.WithLock(context.Background(), "k", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestManager_Prune(t *testing.T) {
	store := memory.NewStore()
	mgr := session.NewManager(store)
	ctx := context.Background()

	mgr.Record(ctx, domain.SessionRecord{ID: "live", RunID: "r", Status: domain.SessionRunning})
	mgr.Record(ctx, domain.SessionRecord{ID: "gone", RunID: "r", Status: domain.SessionExited})
	mgr.Record(ctx, domain.SessionRecord{ID: "shot", RunID: "r", Status: domain.SessionKilled})

	n, err := mgr.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := mgr.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "live", records[0].ID)
}

func TestManager_NilStore(t *testing.T) {
	mgr := session.NewManager(nil)
	mgr.Record(context.Background(), domain.SessionRecord{ID: "x"})

	_, err := mgr.Load(context.Background(), "r/x")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
