package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventScriptEnter  EventType = "script_enter"
	EventScriptLeave  EventType = "script_leave"
	EventStepStart    EventType = "step_start"
	EventStepEnd      EventType = "step_end"
	EventSessionSpawn EventType = "session_spawn"
	EventSessionExit  EventType = "session_exit"
	EventTrigger      EventType = "trigger"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// ScriptEvent represents entry into or exit from a (possibly nested) script.
type ScriptEvent struct {
	EventBase
	Ref    string `json:"ref"`
	Depth  int    `json:"depth"`
	Daemon bool   `json:"daemon"`
	Err    error  `json:"-"`
}

// StepEvent represents the start or end of a step.
type StepEvent struct {
	EventBase
	Ref      string        `json:"ref"`
	Index    int           `json:"index"`
	Method   string        `json:"method"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// SessionEvent represents a session spawn or exit.
type SessionEvent struct {
	EventBase
	SessionID string `json:"session_id"`
	PID       int    `json:"pid,omitempty"`
	ExitCode  int    `json:"exit_code,omitempty"`
}

// TriggerEvent represents a resolved watch on a shell step.
type TriggerEvent struct {
	EventBase
	SessionID string `json:"session_id"`
	Pattern   string `json:"pattern,omitempty"`
	Mode      Mode   `json:"mode"`
	Exited    bool   `json:"exited"`
}

// LifecycleHooks defines callbacks for engine observability.
// Nil callbacks are skipped.
type LifecycleHooks struct {
	OnScriptEnter  func(context.Context, *ScriptEvent)
	OnScriptLeave  func(context.Context, *ScriptEvent)
	OnStepStart    func(context.Context, *StepEvent)
	OnStepEnd      func(context.Context, *StepEvent)
	OnSessionSpawn func(context.Context, *SessionEvent)
	OnSessionExit  func(context.Context, *SessionEvent)
	OnTrigger      func(context.Context, *TriggerEvent)
}

// Merge returns hooks that invoke h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnScriptEnter:  chain(h.OnScriptEnter, other.OnScriptEnter),
		OnScriptLeave:  chain(h.OnScriptLeave, other.OnScriptLeave),
		OnStepStart:    chain(h.OnStepStart, other.OnStepStart),
		OnStepEnd:      chain(h.OnStepEnd, other.OnStepEnd),
		OnSessionSpawn: chain(h.OnSessionSpawn, other.OnSessionSpawn),
		OnSessionExit:  chain(h.OnSessionExit, other.OnSessionExit),
		OnTrigger:      chain(h.OnTrigger, other.OnTrigger),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
