package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/launchpad/pkg/adapters/file"
	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, file.NewStore(t.TempDir()))
}

func TestFileStore_Atomicity(t *testing.T) {
	dir := t.TempDir()
	store := file.NewStore(dir)
	ctx := context.Background()

	rec := domain.SessionRecord{ID: "client", RunID: "run-1", Status: domain.SessionRunning}
	require.NoError(t, store.Save(ctx, rec))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not survive a successful save")
	assert.Equal(t, ".json", filepath.Ext(entries[0].Name()))
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.NewStore(filepath.Join(t.TempDir(), "absent"))
	records, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}
