// Package service contains the business logic layer: it turns invoke
// parameters into run configurations, drives the orchestrator, and records
// completed runs.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ourobouros/samlocal/internal/apperror"
	"github.com/ourobouros/samlocal/internal/config"
	"github.com/ourobouros/samlocal/internal/debug"
	"github.com/ourobouros/samlocal/internal/model"
	"github.com/ourobouros/samlocal/internal/orchestrator"
	"github.com/ourobouros/samlocal/internal/repository"
)

const (
	// DefaultInvokeTimeout bounds an invocation when the caller gives none.
	DefaultInvokeTimeout = 2 * time.Minute
	DefaultListLimit     = 20
	MaxListLimit         = 100
)

// InvokeParams describes one invocation as received from a caller.
type InvokeParams struct {
	Handler     string
	Payload     string
	Mode        orchestrator.Mode
	Timeout     time.Duration
	Breakpoints []debug.Breakpoint
}

// InvokeService executes handlers and keeps their history.
type InvokeService struct {
	orch   *orchestrator.Orchestrator
	repo   repository.RunRepository
	logger *slog.Logger
}

// NewInvokeService creates the service. repo may be nil, in which case
// history is disabled and invocations are not recorded.
func NewInvokeService(orch *orchestrator.Orchestrator, repo repository.RunRepository, logger *slog.Logger) *InvokeService {
	return &InvokeService{
		orch:   orch,
		repo:   repo,
		logger: logger,
	}
}

// Invoke runs the handler once, awaits the result within the timeout, and
// returns the recorded run. Launch, attach, and timeout failures propagate
// with their apperror kinds; a nonzero exit code is a normal outcome.
func (s *InvokeService) Invoke(ctx context.Context, params InvokeParams) (*model.Run, error) {
	cfg := config.RunConfigFromEnv(orchestrator.RunRequest{
		Handler: params.Handler,
		Payload: params.Payload,
		Mode:    params.Mode,
	})
	cfg.Breakpoints = params.Breakpoints

	if err := config.ValidateRun(cfg); err != nil {
		return nil, err
	}

	run, err := s.orch.Execute(ctx, cfg)
	if err != nil {
		return nil, err
	}

	timeout := params.Timeout
	if timeout <= 0 {
		timeout = DefaultInvokeTimeout
	}

	res, err := run.Await(timeout)
	if err != nil {
		return nil, fmt.Errorf("awaiting run %s: %w", run.ID, err)
	}

	rec := &model.Run{
		ID:            run.ID,
		Handler:       params.Handler,
		Mode:          params.Mode.String(),
		ExitCode:      res.ExitCode,
		Stdout:        res.Stdout,
		Stderr:        res.Stderr,
		BreakpointHit: run.BreakpointHit(),
		DurationMS:    res.Duration.Milliseconds(),
		CreatedAt:     time.Now().UTC(),
	}

	if s.repo != nil {
		if err := s.repo.Create(ctx, rec); err != nil {
			// The invocation itself succeeded; a history write failure
			// should not turn it into an error.
			s.logger.Warn("failed to record run",
				slog.String("runID", rec.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return rec, nil
}

// GetRun fetches one recorded run.
func (s *InvokeService) GetRun(ctx context.Context, id string) (*model.Run, error) {
	if s.repo == nil {
		return nil, apperror.NotFound("run", id)
	}
	return s.repo.GetByID(ctx, id)
}

// ListRuns returns recorded runs, newest first, with the limit clamped.
func (s *InvokeService) ListRuns(ctx context.Context, limit, offset int) ([]model.Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.List(ctx, repository.ListOptions{Limit: limit, Offset: offset})
}
