package runtime_test

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/aretw0/launchpad/internal/compiler"
	"github.com/aretw0/launchpad/internal/runtime"
	"github.com/aretw0/launchpad/internal/testutils"
	"github.com/aretw0/launchpad/pkg/adapters/memory"
)

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("id-%d", n.Add(1)) }
}

func newEngine(t *testing.T, docs map[string]string, spawner *testutils.FakeSpawner, opts ...runtime.EngineOption) *runtime.Engine {
	t.Helper()
	if spawner.Setup == nil {
		spawner.Setup = testutils.EchoShell
	}
	opts = append([]runtime.EngineOption{runtime.WithIDGenerator(sequentialIDs())}, opts...)
	return runtime.NewEngine(compiler.NewLoader(memory.NewLoader(docs)), spawner, opts...)
}
