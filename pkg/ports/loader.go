package ports

import "context"

// Source is a raw script definition located by a ScriptLoader.
type Source struct {
	// Ref is the canonical reference of the script. Nested references are
	// resolved relative to it and cycle detection compares it.
	Ref string

	// Data holds the raw document.
	Data []byte

	// Format is "json" or "yaml".
	Format string
}

// ScriptLoader defines how the engine retrieves script definitions.
type ScriptLoader interface {
	// Resolve locates ref. base is the Ref of the referencing script,
	// or "" for a top-level invocation.
	Resolve(ctx context.Context, ref, base string) (Source, error)
}

// Lister is implemented by loaders that can enumerate their scripts.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}
