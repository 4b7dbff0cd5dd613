package domain

import "maps"

// ExecutionContext is the resolved environment of a shell step.
// Once resolved it is not mutated; use Clone before deriving a new one.
type ExecutionContext struct {
	// Dir is the working directory of the session. Empty inherits the host's.
	Dir string

	// Venv is the virtual environment path, relative to Dir unless absolute.
	Venv string

	// Env is overlaid key-by-key on the inherited process environment.
	Env map[string]string
}

// Clone returns a deep copy of the context.
func (c ExecutionContext) Clone() ExecutionContext {
	out := c
	out.Env = maps.Clone(c.Env)
	if out.Env == nil {
		out.Env = map[string]string{}
	}
	return out
}

// Overrides are the context fields a step (or a nested script overlay) declares.
// Empty strings mean "inherit".
type Overrides struct {
	Path string
	Venv string
	Env  map[string]string
}

// IsZero reports whether the overrides change nothing.
func (o Overrides) IsZero() bool {
	return o.Path == "" && o.Venv == "" && len(o.Env) == 0
}
