package orchestrator

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ourobouros/samlocal/internal/apperror"
)

func TestFutureResolveAndAwait(t *testing.T) {
	f := NewFuture()
	want := &ExecutionResult{ExitCode: 0, Stdout: "HELLO WORLD"}

	assert.True(t, f.Resolve(want))

	got, err := f.Await(time.Second)
	require.NoError(t, err)
	assert.Same(t, want, got)

	// Awaiting again returns the identical cached result without blocking.
	again, err := f.Await(time.Nanosecond)
	require.NoError(t, err)
	assert.Same(t, want, again)
}

func TestFutureFirstWriterWins(t *testing.T) {
	f := NewFuture()
	want := &ExecutionResult{ExitCode: 2}

	assert.True(t, f.Resolve(want))
	assert.False(t, f.Resolve(&ExecutionResult{ExitCode: 99}))
	assert.False(t, f.Fail(errors.New("too late")))

	got, err := f.Await(time.Second)
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestFutureFailWins(t *testing.T) {
	f := NewFuture()
	attachErr := apperror.AttachTimedOut(time.Second)

	assert.True(t, f.Fail(attachErr))
	assert.False(t, f.Resolve(&ExecutionResult{ExitCode: 0}))

	got, err := f.Await(time.Second)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, apperror.ErrDebugAttach))
}

func TestFutureAwaitTimeout(t *testing.T) {
	f := NewFuture()

	start := time.Now()
	got, err := f.Await(50 * time.Millisecond)
	elapsed := time.Since(start)

	assert.Nil(t, got)
	assert.True(t, errors.Is(err, apperror.ErrExecutionTimeout))
	// Bounded margin: well past the configured timeout counts as a failure.
	assert.Less(t, elapsed, time.Second)

	// Timeout does not consume the future; a later Await still resolves.
	want := &ExecutionResult{ExitCode: 0}
	f.Resolve(want)
	got, err = f.Await(time.Second)
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestFutureConcurrentResolvers(t *testing.T) {
	f := NewFuture()

	var wins int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if f.Resolve(&ExecutionResult{ExitCode: n}) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins)
	got, err := f.Await(time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
}
