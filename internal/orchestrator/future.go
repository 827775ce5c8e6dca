package orchestrator

import (
	"sync"
	"time"

	"github.com/ourobouros/samlocal/internal/apperror"
)

// Future is the write-once cell holding the eventual ExecutionResult. The
// resolution is exclusive: the first writer (result or failure) wins and
// later writes are no-ops. Resolution is signalled by closing done, so the
// value written before the close is visible to every waiter.
type Future struct {
	mu       sync.Mutex
	resolved bool
	result   *ExecutionResult
	err      error
	done     chan struct{}
}

// NewFuture returns an unresolved future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolve delivers the result. Returns false if the future was already
// resolved or failed.
func (f *Future) Resolve(res *ExecutionResult) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolved {
		return false
	}
	f.resolved = true
	f.result = res
	close(f.done)
	return true
}

// Fail delivers a terminal error instead of a result. Returns false if the
// future was already resolved or failed.
func (f *Future) Fail(err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolved {
		return false
	}
	f.resolved = true
	f.err = err
	close(f.done)
	return true
}

// Done is closed once the future is resolved or failed.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until resolution or until timeout elapses, whichever is
// first. A timeout is apperror.ErrExecutionTimeout and does not consume the
// future: a later Await can still observe the eventual result. After
// resolution every Await returns the identical cached value without
// blocking.
func (f *Future) Await(timeout time.Duration) (*ExecutionResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.result, f.err
	case <-timer.C:
		return nil, apperror.ExecutionTimedOut(timeout)
	}
}
