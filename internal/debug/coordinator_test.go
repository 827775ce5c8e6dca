package debug

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ourobouros/samlocal/internal/apperror"
)

type resumeCall struct {
	handle   SuspendHandle
	priority Priority
	hitSeen  bool // coordinator's hit flag at the moment resume was issued
}

type fakeBackend struct {
	events    chan Event
	resumes   chan resumeCall
	resumeErr error
	hitProbe  func() bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		events:  make(chan Event, 8),
		resumes: make(chan resumeCall, 8),
	}
}

func (f *fakeBackend) Events() <-chan Event { return f.events }

func (f *fakeBackend) Resume(_ context.Context, h SuspendHandle, p Priority) error {
	call := resumeCall{handle: h, priority: p}
	if f.hitProbe != nil {
		call.hitSeen = f.hitProbe()
	}
	f.resumes <- call
	return f.resumeErr
}

func (f *fakeBackend) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitState(t *testing.T, c *Coordinator, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State() == want },
		2*time.Second, 5*time.Millisecond, "expected state %s", want)
}

func TestCoordinatorAttachThenDetach(t *testing.T) {
	backend := newFakeBackend()
	c := NewCoordinator(backend, time.Second, testLogger())
	c.Start(context.Background())

	backend.events <- Event{Kind: EventAttached}
	waitState(t, c, StateAttached)

	backend.events <- Event{Kind: EventDetached}
	waitState(t, c, StateTerminal)

	assert.False(t, c.BreakpointHit())
	select {
	case err := <-c.Failed():
		t.Fatalf("unexpected session failure: %v", err)
	default:
	}
}

func TestCoordinatorResumesEveryPause(t *testing.T) {
	backend := newFakeBackend()
	c := NewCoordinator(backend, time.Second, testLogger())
	backend.hitProbe = c.BreakpointHit
	c.Start(context.Background())

	backend.events <- Event{Kind: EventAttached}
	backend.events <- Event{Kind: EventPaused, Handle: SuspendHandle{ID: "frame-1"}}

	call := <-backend.resumes
	assert.Equal(t, "frame-1", call.handle.ID)
	assert.Equal(t, PriorityLow, call.priority)
	// The hit flag is set strictly before the resume goes out.
	assert.True(t, call.hitSeen)

	// A second pause loops Suspended -> Attached again.
	backend.events <- Event{Kind: EventPaused, Handle: SuspendHandle{ID: "frame-2"}}
	call = <-backend.resumes
	assert.Equal(t, "frame-2", call.handle.ID)

	backend.events <- Event{Kind: EventDetached}
	waitState(t, c, StateTerminal)
	assert.True(t, c.BreakpointHit())
}

func TestCoordinatorAttachGraceTimeout(t *testing.T) {
	backend := newFakeBackend()
	c := NewCoordinator(backend, 30*time.Millisecond, testLogger())
	c.Start(context.Background())

	select {
	case err := <-c.Failed():
		assert.True(t, errors.Is(err, apperror.ErrDebugAttach))
	case <-time.After(2 * time.Second):
		t.Fatal("attach grace period never fired")
	}
	assert.Equal(t, StateTerminal, c.State())
}

func TestCoordinatorEventsClosedBeforeAttach(t *testing.T) {
	backend := newFakeBackend()
	close(backend.events)

	c := NewCoordinator(backend, time.Second, testLogger())
	c.Start(context.Background())

	select {
	case err := <-c.Failed():
		assert.True(t, errors.Is(err, apperror.ErrDebugAttach))
	case <-time.After(2 * time.Second):
		t.Fatal("expected a session failure")
	}
}

func TestCoordinatorResumeFailureIsTerminal(t *testing.T) {
	backend := newFakeBackend()
	backend.resumeErr = errors.New("connection reset")

	c := NewCoordinator(backend, time.Second, testLogger())
	c.Start(context.Background())

	backend.events <- Event{Kind: EventAttached}
	backend.events <- Event{Kind: EventPaused, Handle: SuspendHandle{ID: "frame-1"}}

	select {
	case err := <-c.Failed():
		assert.True(t, errors.Is(err, apperror.ErrDebugAttach))
	case <-time.After(2 * time.Second):
		t.Fatal("expected a session failure")
	}
}

func TestCoordinatorStop(t *testing.T) {
	backend := newFakeBackend()
	c := NewCoordinator(backend, time.Minute, testLogger())
	c.Start(context.Background())

	backend.events <- Event{Kind: EventAttached}
	waitState(t, c, StateAttached)

	c.Stop()
	c.Stop() // idempotent
	waitState(t, c, StateTerminal)
}
