package display

import (
	"fmt"
	"io"
	"sync"

	"VIXBar/internal/model"
	"VIXBar/internal/state"
)

// ConsoleSink writes a status line whenever the rendered value or update time changes.
type ConsoleSink struct {
	Label string
	out   io.Writer

	mu        sync.Mutex
	lastLine  string
	sub       *state.Subscription
}

// NewConsoleSink creates a sink writing to out.
func NewConsoleSink(label string, out io.Writer) *ConsoleSink {
	return &ConsoleSink{Label: label, out: out}
}

// Attach renders the current state once and then follows store updates.
func (c *ConsoleSink) Attach(store *state.Store) {
	c.Render(store.Latest())
	c.sub = store.Subscribe(func(e state.Event) {
		c.Render(e.Snapshot.State)
	})
}

// Detach stops following the store.
func (c *ConsoleSink) Detach() {
	c.sub.Unsubscribe()
}

// Render writes st if its line differs from the last one written.
func (c *ConsoleSink) Render(st model.State) {
	line := fmt.Sprintf("%s %s", c.Label, FormatValue(st.LatestValue))
	if ts := FormatTime(st.LastUpdated); ts != "" {
		line += fmt.Sprintf(" (updated %s)", ts)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if line == c.lastLine {
		return
	}
	c.lastLine = line
	fmt.Fprintln(c.out, line)
}
