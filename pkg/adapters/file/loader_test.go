package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/launchpad/pkg/adapters/file"
	contract "github.com/aretw0/launchpad/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestFileLoader_Contract(t *testing.T) {
	dir := t.TempDir()
	data := map[string][]byte{
		"install.json": []byte(`{"run":[]}`),
		"client.yaml":  []byte("daemon: true\nrun: []\n"),
	}
	for name, content := range data {
		writeFile(t, dir, name, string(content))
	}

	loader, err := file.NewLoader(dir)
	require.NoError(t, err)
	contract.ScriptLoaderContractTest(t, loader, data)
}

func TestFileLoader_NestedRelativeToParent(t *testing.T) {
	dir := t.TempDir()
	parent := writeFile(t, dir, "apps/comfy/install.json", `{"run":[]}`)
	torch := writeFile(t, dir, "apps/comfy/torch.json", `{"run":[]}`)

	loader, err := file.NewLoader(dir)
	require.NoError(t, err)

	src, err := loader.Resolve(context.Background(), "torch.json", parent)
	require.NoError(t, err)
	assert.Equal(t, torch, src.Ref)
	assert.Equal(t, "json", src.Format)
}

func TestFileLoader_ProbesExtensions(t *testing.T) {
	dir := t.TempDir()
	torch := writeFile(t, dir, "torch.yaml", "run: []\n")

	loader, err := file.NewLoader(dir)
	require.NoError(t, err)

	for _, ref := range []string{"torch", "torch.js"} {
		src, err := loader.Resolve(context.Background(), ref, "")
		require.NoError(t, err, ref)
		assert.Equal(t, torch, src.Ref)
		assert.Equal(t, "yaml", src.Format)
	}
}

func TestFileLoader_List(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "install.json", `{}`)
	writeFile(t, dir, "sub/start.yml", `{}`)
	writeFile(t, dir, "README.md", `#`)
	writeFile(t, dir, ".launchpad/sessions/x.json", `{}`)

	loader, err := file.NewLoader(dir)
	require.NoError(t, err)

	refs, err := loader.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"install.json", "sub/start.yml"}, refs)
}
