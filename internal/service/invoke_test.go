package service

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
	"github.com/ourobouros/samlocal/internal/launcher"
	"github.com/ourobouros/samlocal/internal/model"
	"github.com/ourobouros/samlocal/internal/orchestrator"
	"github.com/ourobouros/samlocal/internal/repository"
)

type stubHandle struct {
	chunks chan launcher.Chunk
	done   chan int
}

// scriptedHandle returns a handle that plays back stdout and exits.
func scriptedHandle(stdout string, code int) *stubHandle {
	h := &stubHandle{
		chunks: make(chan launcher.Chunk, 4),
		done:   make(chan int, 1),
	}
	if stdout != "" {
		h.chunks <- launcher.Chunk{Stream: launcher.Stdout, Text: stdout}
	}
	close(h.chunks)
	h.done <- code
	return h
}

// hangingHandle never emits and never terminates.
func hangingHandle() *stubHandle {
	return &stubHandle{
		chunks: make(chan launcher.Chunk),
		done:   make(chan int, 1),
	}
}

func (h *stubHandle) Output() <-chan launcher.Chunk { return h.chunks }
func (h *stubHandle) Done() <-chan int              { return h.done }

type stubLauncher struct {
	handle   launcher.Handle
	err      error
	launches int
}

func (s *stubLauncher) Launch(_ context.Context, _ launcher.Command) (launcher.Handle, error) {
	s.launches++
	if s.err != nil {
		return nil, s.err
	}
	return s.handle, nil
}

type memRepo struct {
	runs     []model.Run
	lastOpts repository.ListOptions
}

func (m *memRepo) Create(_ context.Context, run *model.Run) error {
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*model.Run, error) {
	for i := range m.runs {
		if m.runs[i].ID == id {
			return &m.runs[i], nil
		}
	}
	return nil, apperror.NotFound("run", id)
}

func (m *memRepo) List(_ context.Context, opts repository.ListOptions) ([]model.Run, error) {
	m.lastOpts = opts
	return m.runs, nil
}

func newService(l launcher.Launcher, repo repository.RunRepository) *InvokeService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewInvokeService(orchestrator.New(l, logger), repo, logger)
}

func TestInvokeRecordsCompletedRun(t *testing.T) {
	repo := &memRepo{}
	svc := newService(&stubLauncher{handle: scriptedHandle("HELLO WORLD\n", 0)}, repo)

	rec, err := svc.Invoke(context.Background(), InvokeParams{
		Handler: "UppercaseFn",
		Payload: `"hello world"`,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, rec.ExitCode)
	assert.Contains(t, rec.Stdout, "HELLO WORLD")
	assert.Equal(t, "run", rec.Mode)
	assert.False(t, rec.BreakpointHit)

	require.Len(t, repo.runs, 1)
	assert.Equal(t, rec.ID, repo.runs[0].ID)
}

func TestInvokeNonzeroExitIsNotAnError(t *testing.T) {
	svc := newService(&stubLauncher{handle: scriptedHandle("", 1)}, &memRepo{})

	rec, err := svc.Invoke(context.Background(), InvokeParams{
		Handler: "FailingFn",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.ExitCode)
}

func TestInvokeValidationStopsBeforeLaunch(t *testing.T) {
	l := &stubLauncher{handle: scriptedHandle("", 0)}
	svc := newService(l, &memRepo{})

	_, err := svc.Invoke(context.Background(), InvokeParams{Handler: ""})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
	assert.Zero(t, l.launches)
}

func TestInvokeLaunchErrorPropagates(t *testing.T) {
	launchErr := apperror.LaunchFailed("sam", errors.New("executable file not found"))
	repo := &memRepo{}
	svc := newService(&stubLauncher{err: launchErr}, repo)

	_, err := svc.Invoke(context.Background(), InvokeParams{Handler: "Fn"})
	assert.True(t, errors.Is(err, apperror.ErrLaunch))
	assert.Empty(t, repo.runs, "a failed launch yields no recorded run")
}

func TestInvokeTimeout(t *testing.T) {
	repo := &memRepo{}
	svc := newService(&stubLauncher{handle: hangingHandle()}, repo)

	_, err := svc.Invoke(context.Background(), InvokeParams{
		Handler: "SlowFn",
		Timeout: 50 * time.Millisecond,
	})
	assert.True(t, errors.Is(err, apperror.ErrExecutionTimeout))
	assert.Empty(t, repo.runs)
}

func TestInvokeWithoutRepository(t *testing.T) {
	svc := newService(&stubLauncher{handle: scriptedHandle("ok\n", 0)}, nil)

	rec, err := svc.Invoke(context.Background(), InvokeParams{
		Handler: "Fn",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, rec.ExitCode)
}

func TestListRunsClampsLimit(t *testing.T) {
	repo := &memRepo{}
	svc := newService(&stubLauncher{handle: scriptedHandle("", 0)}, repo)

	_, err := svc.ListRuns(context.Background(), 1000, -5)
	require.NoError(t, err)
	assert.Equal(t, MaxListLimit, repo.lastOpts.Limit)
	assert.Zero(t, repo.lastOpts.Offset)

	_, err = svc.ListRuns(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultListLimit, repo.lastOpts.Limit)
}
