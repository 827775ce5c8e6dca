// Package output collects process output chunks into a final aggregate.
package output

import (
	"strings"
	"sync"

	"github.com/ourobouros/samlocal/internal/launcher"
)

// Aggregate is the frozen view of everything the process wrote.
type Aggregate struct {
	Stdout string
	Stderr string
}

// Aggregator accumulates chunks during the process lifetime. Append-only
// while live, frozen exactly once by Finalize after termination.
type Aggregator struct {
	mu     sync.Mutex
	stdout strings.Builder
	stderr strings.Builder
	frozen bool
}

// NewAggregator returns an empty live aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Append records one chunk, preserving arrival order per stream. It never
// blocks and is safe to call from the I/O pump goroutines.
func (a *Aggregator) Append(c launcher.Chunk) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.frozen {
		// The orchestrator drains the output channel before it finalizes,
		// so a late append is a bug in the caller, not a runtime condition.
		panic("output: Append after Finalize")
	}
	switch c.Stream {
	case launcher.Stderr:
		a.stderr.WriteString(c.Text)
	default:
		a.stdout.WriteString(c.Text)
	}
}

// Finalize freezes the buffers and returns the aggregate. Only called after
// the termination notification; the result never changes afterwards.
func (a *Aggregator) Finalize() Aggregate {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frozen = true
	return Aggregate{
		Stdout: a.stdout.String(),
		Stderr: a.stderr.String(),
	}
}
