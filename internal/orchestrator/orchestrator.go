package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/xid"

	"github.com/ourobouros/samlocal/internal/apperror"
	"github.com/ourobouros/samlocal/internal/debug"
	"github.com/ourobouros/samlocal/internal/launcher"
	"github.com/ourobouros/samlocal/internal/output"
)

// DefaultAttachGrace bounds how long a debug session may take to attach
// when the RunConfig does not say otherwise.
const DefaultAttachGrace = 10 * time.Second

// BackendDialer connects to the debugger backend for a debug-mode run.
type BackendDialer func(ctx context.Context, cfg RunConfig) (debug.Backend, error)

// Orchestrator turns RunConfigs into running processes and single-delivery
// results.
type Orchestrator struct {
	launcher launcher.Launcher
	logger   *slog.Logger

	// Dialer is how debug-mode runs reach the debugger backend. Defaults
	// to dialing the CLI's TCP debug port; tests substitute their own.
	Dialer BackendDialer
}

// New creates an orchestrator on top of the given launcher.
func New(l launcher.Launcher, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{launcher: l, logger: logger}
	o.Dialer = o.dialWirePort
	return o
}

// Run is the live handle for one invocation.
type Run struct {
	ID     string
	future *Future
	coord  atomic.Pointer[debug.Coordinator]
}

// Await blocks until the result is ready or timeout elapses. See
// Future.Await for the exact contract.
func (r *Run) Await(timeout time.Duration) (*ExecutionResult, error) {
	return r.future.Await(timeout)
}

// BreakpointHit reports whether this run paused at a breakpoint at least
// once. Guaranteed true before Await can deliver the result of a run whose
// breakpoint fired.
func (r *Run) BreakpointHit() bool {
	c := r.coord.Load()
	return c != nil && c.BreakpointHit()
}

// Execute launches the process described by cfg and returns the live run.
// Launch failures surface here immediately as apperror.ErrLaunch; every
// later outcome (result, attach failure) is delivered through Await.
//
// Execute never blocks on the process: output pumping, termination, and
// debug supervision all run on their own goroutines and communicate over
// channels.
func (o *Orchestrator) Execute(ctx context.Context, cfg RunConfig) (*Run, error) {
	run := &Run{
		ID:     xid.New().String(),
		future: NewFuture(),
	}

	cmd := buildCommand(cfg)
	handle, err := o.launcher.Launch(ctx, cmd)
	if err != nil {
		return nil, err
	}

	o.logger.Info("run started",
		slog.String("runID", run.ID),
		slog.String("handler", cfg.Request.Handler),
		slog.String("mode", cfg.Request.Mode.String()),
	)

	if cfg.Request.Mode == ModeDebug {
		go o.superviseDebug(ctx, cfg, run)
	}

	go o.pump(run, handle, time.Now())

	return run, nil
}

// pump drains the output channel into the aggregator, then reads the exit
// code and resolves the future. The ordering here is the happens-after
// guarantee: the aggregate is frozen only after the output channel closed
// and the termination notification arrived, and resolution comes last.
func (o *Orchestrator) pump(run *Run, handle launcher.Handle, start time.Time) {
	agg := output.NewAggregator()
	for chunk := range handle.Output() {
		agg.Append(chunk)
	}
	exitCode := <-handle.Done()
	final := agg.Finalize()

	if c := run.coord.Load(); c != nil {
		c.Stop()
	}

	resolved := run.future.Resolve(&ExecutionResult{
		ExitCode: exitCode,
		Stdout:   final.Stdout,
		Stderr:   final.Stderr,
		Duration: time.Since(start),
	})

	o.logger.Info("run finished",
		slog.String("runID", run.ID),
		slog.Int("exitCode", exitCode),
		slog.Bool("resolved", resolved),
		slog.Duration("duration", time.Since(start)),
	)
}

// superviseDebug connects the backend, starts the coordinator, and fails
// the future if the session fails. Attach is attempted exactly once.
func (o *Orchestrator) superviseDebug(ctx context.Context, cfg RunConfig, run *Run) {
	grace := cfg.AttachGrace
	if grace <= 0 {
		grace = DefaultAttachGrace
	}

	backend, err := o.Dialer(ctx, cfg)
	if err != nil {
		run.future.Fail(apperror.AttachFailed(err))
		return
	}
	defer backend.Close()

	coord := debug.NewCoordinator(backend, grace, o.logger)
	run.coord.Store(coord)
	coord.Start(ctx)

	select {
	case err := <-coord.Failed():
		o.logger.Warn("debug session failed",
			slog.String("runID", run.ID),
			slog.String("error", err.Error()),
		)
		run.future.Fail(err)
	case <-run.future.Done():
		coord.Stop()
	}
}

// dialWirePort is the default BackendDialer: it retries the CLI's TCP debug
// port until a connection is made or the attach grace elapses.
func (o *Orchestrator) dialWirePort(ctx context.Context, cfg RunConfig) (debug.Backend, error) {
	grace := cfg.AttachGrace
	if grace <= 0 {
		grace = DefaultAttachGrace
	}
	addr := "127.0.0.1:" + strconv.Itoa(cfg.DebugPort)
	deadline := time.Now().Add(grace)

	var lastErr error
	for time.Now().Before(deadline) {
		backend, err := debug.DialWire(ctx, addr, cfg.Breakpoints, o.logger)
		if err == nil {
			return backend, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("debug port %s never opened: %w", addr, lastErr)
}

// buildCommand translates a RunConfig into the CLI invocation. The payload
// always travels over stdin ("--event -"); debug mode adds the debug port.
func buildCommand(cfg RunConfig) launcher.Command {
	args := []string{"local", "invoke", cfg.Request.Handler, "--event", "-"}
	if cfg.TemplatePath != "" {
		args = append(args, "--template", cfg.TemplatePath)
	}
	if cfg.Request.Mode == ModeDebug {
		args = append(args, "-d", strconv.Itoa(cfg.DebugPort))
	}
	return launcher.Command{
		Path:  cfg.Executable,
		Args:  args,
		Dir:   cfg.WorkingDir,
		Stdin: cfg.Request.Payload,
	}
}
