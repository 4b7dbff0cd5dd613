package domain

// Method names used by script definitions.
const (
	MethodShellRun    = "shell.run"
	MethodScriptStart = "script.start"
)

// Script is a parsed, immutable step list.
type Script struct {
	// Ref is the resolved reference the script was loaded from.
	// It is used to resolve relative nested references and to detect cycles.
	Ref string

	// Daemon keeps sessions alive after the step list is exhausted.
	Daemon bool

	Steps []Step
}

// Step is either a *ShellStep or a *ScriptStep.
type Step interface {
	// Method returns the discriminant as written in the definition.
	Method() string
	isStep()
}

// ShellStep feeds commands into a session and waits for its continuation condition.
type ShellStep struct {
	// SessionID addresses the session. Steps sharing an ID share a process.
	SessionID string

	// Overrides are applied over the inherited context by the resolver.
	Overrides Overrides

	// Commands are written to the session in order.
	Commands []string

	// Triggers are evaluated in declaration order. Empty means "run to exit".
	Triggers []Trigger
}

// Method implements Step.
func (s *ShellStep) Method() string { return MethodShellRun }
func (s *ShellStep) isStep()        {}

// Awaits reports whether the step blocks on output patterns instead of exit.
func (s *ShellStep) Awaits() bool { return len(s.Triggers) > 0 }

// ScriptStep runs a nested script.
type ScriptStep struct {
	// URI references the nested script, relative to the parent script's location.
	URI string

	// Params is the overlay forwarded to the nested script.
	// Keys "path", "venv" and "env" seed the nested default context;
	// every key is readable from the nested script as args.<key>.
	Params map[string]any
}

// Method implements Step.
func (s *ScriptStep) Method() string { return MethodScriptStart }
func (s *ScriptStep) isStep()        {}
