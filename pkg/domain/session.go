package domain

import "time"

// SessionStatus is the lifecycle state of a supervised shell.
type SessionStatus string

const (
	SessionRunning SessionStatus = "running"
	SessionExited  SessionStatus = "exited"
	SessionKilled  SessionStatus = "killed"
)

// SessionRecord is the persisted description of a session, used for
// introspection by operator tools. It never carries the process handle.
type SessionRecord struct {
	ID        string        `json:"id"`
	RunID     string        `json:"run_id"`
	Script    string        `json:"script"`
	PID       int           `json:"pid"`
	Dir       string        `json:"dir,omitempty"`
	Venv      string        `json:"venv,omitempty"`
	Daemon    bool          `json:"daemon"`
	Status    SessionStatus `json:"status"`
	ExitCode  int           `json:"exit_code"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
}

// Key identifies the record across runs.
func (r SessionRecord) Key() string {
	return r.RunID + "/" + r.ID
}
