// Package debug bridges an external debugger backend to the orchestrator:
// it observes session lifecycle events and resumes breakpoint pauses so the
// spawned process never deadlocks in a suspended state.
package debug

import "context"

// SuspendHandle is the debugger's token for a paused execution point.
// It is valid only until a resume is issued for it.
type SuspendHandle struct {
	ID string
}

// Priority orders a resume relative to other pending debugger work.
// Automatic resumes go out at PriorityLow so they never starve session
// bookkeeping the backend may be doing.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return "low"
	}
}

// EventKind classifies a session lifecycle notification.
type EventKind int

const (
	// EventAttached means the debugger connected to the spawned process.
	EventAttached EventKind = iota
	// EventPaused means execution stopped at a breakpoint; the event
	// carries the suspend handle to resume with.
	EventPaused
	// EventDetached means the session ended (process exit or disconnect).
	EventDetached
)

// Event is one session lifecycle notification from the backend.
type Event struct {
	Kind   EventKind
	Handle SuspendHandle // set for EventPaused
}

// Breakpoint is a (file, line) position arranged before launch.
type Breakpoint struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// Backend is the narrow debugger contract the coordinator depends on:
// a stream of lifecycle events and a resume command. Nothing else of the
// debugger is used.
type Backend interface {
	// Events delivers session notifications in order. The channel closes
	// when the session is gone.
	Events() <-chan Event
	// Resume releases a paused execution point at the given priority.
	Resume(ctx context.Context, h SuspendHandle, p Priority) error
	Close() error
}
