package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/launchpad/pkg/adapters/memory"
	contract "github.com/aretw0/launchpad/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLoader_Contract(t *testing.T) {
	data := map[string]string{
		"install.json": `{"run":[]}`,
		"client.yaml":  "daemon: true\nrun: []\n",
	}

	bytesData := make(map[string][]byte)
	for k, v := range data {
		bytesData[k] = []byte(v)
	}

	contract.ScriptLoaderContractTest(t, memory.NewLoader(data), bytesData)
}

func TestInMemoryLoader_RelativeToBase(t *testing.T) {
	loader := memory.NewLoader(map[string]string{
		"apps/comfy/install.json": `{"run":[]}`,
		"apps/comfy/torch.json":   `{"run":[]}`,
		"shared/torch.json":       `{"run":[]}`,
	})
	ctx := context.Background()

	src, err := loader.Resolve(ctx, "torch.json", "apps/comfy/install.json")
	require.NoError(t, err)
	assert.Equal(t, "apps/comfy/torch.json", src.Ref)

	src, err = loader.Resolve(ctx, "../../shared/torch.json", "apps/comfy/install.json")
	require.NoError(t, err)
	assert.Equal(t, "shared/torch.json", src.Ref)
}

func TestNewFromDocuments(t *testing.T) {
	loader, err := memory.NewFromDocuments(map[string]any{
		"a.json": map[string]any{"daemon": true, "run": []any{}},
	})
	require.NoError(t, err)

	src, err := loader.Resolve(context.Background(), "a.json", "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"daemon":true,"run":[]}`, string(src.Data))

	refs, err := loader.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json"}, refs)
}
