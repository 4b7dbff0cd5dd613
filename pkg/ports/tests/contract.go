package tests

import (
	"context"
	"testing"

	"github.com/aretw0/launchpad/pkg/ports"
)

// ScriptLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.ScriptLoader.
// setupData maps top-level references to the exact bytes the loader must return.
func ScriptLoaderContractTest(t *testing.T, loader ports.ScriptLoader, setupData map[string][]byte) {
	t.Helper()
	ctx := context.Background()

	t.Run("Resolve_Success", func(t *testing.T) {
		for ref, expected := range setupData {
			src, err := loader.Resolve(ctx, ref, "")
			if err != nil {
				t.Fatalf("unexpected error resolving %s: %v", ref, err)
			}
			if string(src.Data) != string(expected) {
				t.Errorf("content mismatch for %s. got %q, want %q", ref, src.Data, expected)
			}
			if src.Ref == "" {
				t.Errorf("resolved source for %s has empty Ref", ref)
			}
			if src.Format != "json" && src.Format != "yaml" {
				t.Errorf("unexpected format %q for %s", src.Format, ref)
			}
		}
	})

	t.Run("Resolve_Idempotent", func(t *testing.T) {
		for ref := range setupData {
			first, err := loader.Resolve(ctx, ref, "")
			if err != nil {
				t.Fatalf("resolve %s: %v", ref, err)
			}
			second, err := loader.Resolve(ctx, first.Ref, "")
			if err != nil {
				t.Fatalf("re-resolve %s: %v", first.Ref, err)
			}
			if first.Ref != second.Ref {
				t.Errorf("canonical ref not stable: %q then %q", first.Ref, second.Ref)
			}
		}
	})

	t.Run("Resolve_NotFound", func(t *testing.T) {
		_, err := loader.Resolve(ctx, "non-existent-script.json", "")
		if err == nil {
			t.Error("expected error for non-existent script, got nil")
		}
	})
}
