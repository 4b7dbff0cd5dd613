package compiler_test

import (
	"context"
	"testing"

	"github.com/aretw0/launchpad/internal/compiler"
	"github.com/aretw0/launchpad/pkg/adapters/memory"
	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader(t *testing.T) {
	loader := compiler.NewLoader(memory.NewLoader(map[string]string{
		"apps/install.json": `{"run":[{"method":"script.start","params":{"uri":"torch.json"}}]}`,
		"apps/torch.json":   `{"run":[{"method":"shell.run","params":{"message":"pip install torch"}}]}`,
		"apps/broken.json":  `{"run":"nope"}`,
	}))
	ctx := context.Background()

	script, err := loader.Load(ctx, "apps/install.json", "")
	require.NoError(t, err)
	assert.Equal(t, "apps/install.json", script.Ref)

	nested, err := loader.Load(ctx, "torch.json", script.Ref)
	require.NoError(t, err)
	assert.Equal(t, "apps/torch.json", nested.Ref)

	_, err = loader.Load(ctx, "missing.json", script.Ref)
	assert.ErrorIs(t, err, domain.ErrScriptResolution)
	var re *domain.ScriptResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "missing.json", re.Ref)

	_, err = loader.Load(ctx, "apps/broken.json", "")
	assert.ErrorIs(t, err, domain.ErrScriptFormat)
	assert.NotErrorIs(t, err, domain.ErrScriptResolution)
}
