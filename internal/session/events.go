// Package session drives the two camera-holding workflows: enrollment
// capture and live attendance. Sessions report to their caller through an
// ordered event channel and observe cancellation once per frame.
package session

import "fmt"

// EventKind discriminates session events.
type EventKind int

const (
	// EventStatus carries a human-readable status message.
	EventStatus EventKind = iota
	// EventProgress carries a 0..1 completion value. Consumers may
	// coalesce consecutive progress events.
	EventProgress
)

// Event is one update from a running session. Events from a single session
// arrive in emission order; the channel is closed exactly once when the
// session has released its resources, on every exit path.
type Event struct {
	Kind     EventKind
	Message  string
	Progress float64
}

// emitter wraps the optional event channel so sessions can report without
// nil checks at every call site.
type emitter struct {
	ch chan<- Event
}

func (e emitter) status(format string, args ...any) {
	if e.ch == nil {
		return
	}
	e.ch <- Event{Kind: EventStatus, Message: fmt.Sprintf(format, args...)}
}

func (e emitter) progress(v float64) {
	if e.ch == nil {
		return
	}
	e.ch <- Event{Kind: EventProgress, Progress: v}
}

// close signals completion. Exactly one close per session run.
func (e emitter) close() {
	if e.ch != nil {
		close(e.ch)
	}
}
