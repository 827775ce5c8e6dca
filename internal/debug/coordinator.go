package debug

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ourobouros/samlocal/internal/apperror"
)

// State is the coordinator's position in the session lifecycle.
type State int

const (
	StateIdle State = iota
	StateAttached
	StateSuspended
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateAttached:
		return "attached"
	case StateSuspended:
		return "suspended"
	case StateTerminal:
		return "terminal"
	default:
		return "idle"
	}
}

// Coordinator drives the debug session state machine:
//
//	Idle → Attached → Suspended → Attached (looping) → Terminal
//
// On every pause it records the breakpoint hit and issues a low-priority
// resume, so a suspended process is never left hanging. Attach is attempted
// exactly once; if nothing attaches within the grace period the run fails
// with apperror.ErrDebugAttach.
type Coordinator struct {
	backend Backend
	grace   time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	state State

	hit      atomic.Bool
	failed   chan error
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewCoordinator wires a coordinator to a backend. grace bounds how long
// the session may take to attach after the process starts.
func NewCoordinator(backend Backend, grace time.Duration, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		backend: backend,
		grace:   grace,
		logger:  logger,
		state:   StateIdle,
		failed:  make(chan error, 1),
		stopped: make(chan struct{}),
	}
}

// Start runs the state machine in its own goroutine. Events arrive on the
// backend's channel independently of process I/O; the coordinator shares no
// mutable state with the output path.
func (c *Coordinator) Start(ctx context.Context) {
	go c.run(ctx)
}

// Stop ends the session from the orchestrator's side, typically because the
// process terminated. Safe to call more than once.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.stopped) })
}

// BreakpointHit reports whether execution paused at a breakpoint at least
// once. The flag is set before the corresponding resume is issued, so it is
// observably true before the run's result can resolve.
func (c *Coordinator) BreakpointHit() bool {
	return c.hit.Load()
}

// Failed delivers at most one terminal session error (attach timeout or a
// resume failure). Nothing is ever sent on a clean session.
func (c *Coordinator) Failed() <-chan error {
	return c.failed
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Coordinator) fail(err error) {
	c.setState(StateTerminal)
	select {
	case c.failed <- err:
	default:
	}
}

func (c *Coordinator) run(ctx context.Context) {
	graceTimer := time.NewTimer(c.grace)
	defer graceTimer.Stop()

	// Idle: the only acceptable first event is attach.
	select {
	case ev, ok := <-c.backend.Events():
		if !ok {
			c.fail(apperror.AttachTimedOut(c.grace))
			return
		}
		if ev.Kind != EventAttached {
			c.fail(apperror.AttachFailed(errUnexpectedEvent(ev.Kind)))
			return
		}
		c.setState(StateAttached)
		c.logger.Debug("debug session attached")
	case <-graceTimer.C:
		c.fail(apperror.AttachTimedOut(c.grace))
		return
	case <-c.stopped:
		c.setState(StateTerminal)
		return
	case <-ctx.Done():
		c.setState(StateTerminal)
		return
	}

	for {
		select {
		case ev, ok := <-c.backend.Events():
			if !ok {
				c.setState(StateTerminal)
				return
			}
			switch ev.Kind {
			case EventPaused:
				c.setState(StateSuspended)
				// Flag first, resume second: a caller that observes the
				// resolved result must already see the hit.
				c.hit.Store(true)
				c.logger.Debug("breakpoint hit, resuming",
					slog.String("frame", ev.Handle.ID),
					slog.String("priority", PriorityLow.String()),
				)
				if err := c.backend.Resume(ctx, ev.Handle, PriorityLow); err != nil {
					c.fail(apperror.AttachFailed(err))
					return
				}
				c.setState(StateAttached)
			case EventDetached:
				c.setState(StateTerminal)
				return
			}
		case <-c.stopped:
			c.setState(StateTerminal)
			return
		case <-ctx.Done():
			c.setState(StateTerminal)
			return
		}
	}
}

type errUnexpectedEvent EventKind

func (e errUnexpectedEvent) Error() string {
	return "unexpected session event before attach"
}
