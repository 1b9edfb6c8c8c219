// Package runlog builds the per-run logger and captures its output so the
// full log can be embedded into the descriptor as an audit trail.
package runlog

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Capture is an io.Writer accumulating formatted log lines in memory.
type Capture struct {
	mu    sync.Mutex
	lines []string
}

// Write appends the formatted event, one stored line per log line.
func (c *Capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			c.lines = append(c.lines, line)
		}
	}
	return len(p), nil
}

// Lines returns a copy of everything captured so far.
func (c *Capture) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

// New returns a run logger that writes human-readable lines both to out and
// to the returned capture.
func New(out io.Writer) (zerolog.Logger, *Capture) {
	capture := &Capture{}
	console := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	captured := zerolog.ConsoleWriter{Out: capture, NoColor: true, TimeFormat: time.RFC3339}
	logger := zerolog.New(zerolog.MultiLevelWriter(console, captured)).With().Timestamp().Logger()
	return logger, capture
}
