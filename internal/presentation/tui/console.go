package tui

import (
	"bytes"
	"hash/fnv"
	"io"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/aretw0/launchpad/pkg/ports"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var palette = []string{"#38bdf8", "#a78bfa", "#f472b6", "#fb923c", "#4ade80", "#facc15", "#2dd4bf", "#f87171"}

// Console is an OutputSink that writes session output line by line, each
// line prefixed with its session id.
type Console struct {
	out     *termenv.Output
	colored bool

	mu      sync.Mutex
	w       io.Writer
	partial map[string][]byte
}

var _ ports.OutputSink = (*Console)(nil)

// NewConsole writes to w. Prefixes are colored only when w is a terminal.
func NewConsole(w io.Writer) *Console {
	return &Console{
		out:     termenv.NewOutput(w),
		colored: IsTerminal(w),
		w:       w,
		partial: make(map[string][]byte),
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Write implements ports.OutputSink.
func (c *Console) Write(sessionID string, p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := append(c.partial[sessionID], p...)
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		c.line(sessionID, buf[:i])
		buf = buf[i+1:]
	}
	if len(buf) == 0 {
		delete(c.partial, sessionID)
		return
	}
	c.partial[sessionID] = bytes.Clone(buf)
}

// Flush writes every pending unterminated line.
func (c *Console) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range slices.Sorted(maps.Keys(c.partial)) {
		c.line(id, c.partial[id])
	}
	clear(c.partial)
}

func (c *Console) line(sessionID string, line []byte) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	prefix := "[" + sessionID + "]"
	if c.colored {
		prefix = c.out.String(prefix).Foreground(c.out.Color(colorFor(sessionID))).String()
	}
	_, _ = io.WriteString(c.w, prefix+" "+string(line)+"\n")
}

func colorFor(id string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return palette[h.Sum32()%uint32(len(palette))]
}
