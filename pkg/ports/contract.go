package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	runID := "contract-" + time.Now().Format("20060102150405")

	newRecord := func(id string) domain.SessionRecord {
		return domain.SessionRecord{
			ID:        id,
			RunID:     runID,
			Script:    "client.json",
			PID:       4242,
			Dir:       "app",
			Venv:      "env",
			Daemon:    true,
			Status:    domain.SessionRunning,
			StartedAt: time.Now().UTC().Truncate(time.Second),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		rec := newRecord("client")
		require.NoError(t, store.Save(ctx, rec), "Save should not return error")

		loaded, err := store.Load(ctx, rec.Key())
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, rec.ID, loaded.ID)
		assert.Equal(t, rec.PID, loaded.PID)
		assert.Equal(t, domain.SessionRunning, loaded.Status)
		assert.True(t, rec.StartedAt.Equal(loaded.StartedAt))
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		rec := newRecord("client")
		rec.Status = domain.SessionExited
		rec.ExitCode = 3
		require.NoError(t, store.Save(ctx, rec))

		loaded, err := store.Load(ctx, rec.Key())
		require.NoError(t, err)
		assert.Equal(t, domain.SessionExited, loaded.Status)
		assert.Equal(t, 3, loaded.ExitCode)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, runID+"/missing")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		rec := newRecord("to-delete")
		require.NoError(t, store.Save(ctx, rec))
		require.NoError(t, store.Delete(ctx, rec.Key()), "Delete should not return error")

		_, err := store.Load(ctx, rec.Key())
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, rec.Key()), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		a, b := newRecord("a"), newRecord("b")
		require.NoError(t, store.Save(ctx, a))
		require.NoError(t, store.Save(ctx, b))
		defer func() {
			_ = store.Delete(ctx, a.Key())
			_ = store.Delete(ctx, b.Key())
		}()

		records, err := store.List(ctx)
		require.NoError(t, err)

		keys := make([]string, 0, len(records))
		for _, r := range records {
			keys = append(keys, r.Key())
		}
		assert.Contains(t, keys, a.Key())
		assert.Contains(t, keys, b.Key())
	})
}
