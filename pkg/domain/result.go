package domain

// Result is the terminal state of a top-level run.
type Result struct {
	RunID string
	Ref   string

	// Steps counts executed steps across the whole invocation, nested ones included.
	Steps int

	// Alive lists the sessions still running when the run returned.
	// Only daemon scripts (or daemon nested scripts) leave entries here.
	Alive []string
}
