package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrScriptFormat is returned when a definition is malformed.
	ErrScriptFormat = errors.New("invalid script format")

	// ErrScriptResolution is returned when a script reference cannot be located.
	ErrScriptResolution = errors.New("script cannot be resolved")

	// ErrCyclicScript is returned when a nested reference points back into its own chain.
	ErrCyclicScript = errors.New("cyclic script reference")

	// ErrSessionSpawn is returned when a shell process fails to start.
	ErrSessionSpawn = errors.New("session spawn failed")

	// ErrSessionIO is returned when writing to or reading from a live session fails.
	ErrSessionIO = errors.New("session io failed")

	// ErrSessionNotFound is returned when a session ID is not registered.
	ErrSessionNotFound = errors.New("session not found")

	// ErrWatchdog is returned when an opt-in step timeout expires.
	ErrWatchdog = errors.New("step watchdog expired")
)

// ScriptFormatError describes a malformed script definition.
type ScriptFormatError struct {
	Ref    string
	Step   int // -1 when the error concerns the document itself
	Reason string
	Err    error // optional cause
}

func (e *ScriptFormatError) Error() string {
	reason := e.Reason
	if e.Err != nil {
		if reason == "" {
			reason = e.Err.Error()
		} else {
			reason += ": " + e.Err.Error()
		}
	}
	if e.Step < 0 {
		return fmt.Sprintf("%s: %s: %s", ErrScriptFormat, e.Ref, reason)
	}
	return fmt.Sprintf("%s: %s: run[%d]: %s", ErrScriptFormat, e.Ref, e.Step, reason)
}

func (e *ScriptFormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrScriptFormat}
	}
	return []error{ErrScriptFormat, e.Err}
}

// ScriptResolutionError describes a reference that could not be loaded.
type ScriptResolutionError struct {
	Ref string
	Err error
}

func (e *ScriptResolutionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrScriptResolution, e.Ref, e.Err)
}

func (e *ScriptResolutionError) Unwrap() []error { return []error{ErrScriptResolution, e.Err} }

// SessionSpawnError describes a shell process that could not be started.
type SessionSpawnError struct {
	SessionID string
	Dir       string
	Err       error
}

func (e *SessionSpawnError) Error() string {
	return fmt.Sprintf("%s: session %q (dir %q): %v", ErrSessionSpawn, e.SessionID, e.Dir, e.Err)
}

func (e *SessionSpawnError) Unwrap() []error { return []error{ErrSessionSpawn, e.Err} }

// SessionIOError describes a failed read or write on a live session.
type SessionIOError struct {
	SessionID string
	Op        string
	Err       error
}

func (e *SessionIOError) Error() string {
	return fmt.Sprintf("%s: session %q: %s: %v", ErrSessionIO, e.SessionID, e.Op, e.Err)
}

func (e *SessionIOError) Unwrap() []error { return []error{ErrSessionIO, e.Err} }
