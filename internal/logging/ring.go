// internal/logging/ring.go
package logging

import (
	"strings"
	"sync"
)

// DefaultRingLines matches the diagnostics page depth of the original device.
const DefaultRingLines = 50

// Ring keeps the last N log lines for the /serial_log endpoint.
// It is an io.Writer: each Write call is one line.
type Ring struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

// NewRing returns a ring holding at most n lines (n <= 0 uses DefaultRingLines).
func NewRing(n int) *Ring {
	if n <= 0 {
		n = DefaultRingLines
	}
	return &Ring{lines: make([]string, n)}
}

// Write stores p as one line, trailing newline stripped.
func (r *Ring) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")

	r.mu.Lock()
	r.lines[r.next] = line
	r.next = (r.next + 1) % len(r.lines)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()

	return len(p), nil
}

// Lines returns the stored lines, oldest first.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]string, r.next)
		copy(out, r.lines[:r.next])
		return out
	}

	out := make([]string, 0, len(r.lines))
	out = append(out, r.lines[r.next:]...)
	out = append(out, r.lines[:r.next]...)
	return out
}
