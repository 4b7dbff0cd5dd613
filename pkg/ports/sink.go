package ports

// OutputSink receives session output as it is produced.
// Implementations must not retain p after returning.
type OutputSink interface {
	Write(sessionID string, p []byte)
}

// OutputSinkFunc adapts a function to OutputSink.
type OutputSinkFunc func(sessionID string, p []byte)

// Write implements OutputSink.
func (f OutputSinkFunc) Write(sessionID string, p []byte) { f(sessionID, p) }

// Discard is an OutputSink that drops everything.
var Discard OutputSink = OutputSinkFunc(func(string, []byte) {})
