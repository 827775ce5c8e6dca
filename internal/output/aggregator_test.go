package output

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ourobouros/samlocal/internal/launcher"
)

func TestAppendPreservesPerStreamOrder(t *testing.T) {
	a := NewAggregator()
	a.Append(launcher.Chunk{Stream: launcher.Stdout, Text: "hel"})
	a.Append(launcher.Chunk{Stream: launcher.Stderr, Text: "warn: "})
	a.Append(launcher.Chunk{Stream: launcher.Stdout, Text: "lo"})
	a.Append(launcher.Chunk{Stream: launcher.Stderr, Text: "cold start"})

	agg := a.Finalize()
	assert.Equal(t, "hello", agg.Stdout)
	assert.Equal(t, "warn: cold start", agg.Stderr)
}

func TestChunkBoundariesDoNotMatter(t *testing.T) {
	a := NewAggregator()
	// Chunks split mid-line; the aggregate only cares about byte order.
	for _, piece := range []string{"HELLO", " WOR", "LD\n"} {
		a.Append(launcher.Chunk{Stream: launcher.Stdout, Text: piece})
	}
	assert.Equal(t, "HELLO WORLD\n", a.Finalize().Stdout)
}

func TestConcurrentAppendsAllLand(t *testing.T) {
	a := NewAggregator()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				a.Append(launcher.Chunk{Stream: launcher.Stdout, Text: "x"})
			}
			_ = n
		}(i)
	}
	wg.Wait()
	assert.Len(t, a.Finalize().Stdout, 800)
}

func TestAppendAfterFinalizePanics(t *testing.T) {
	a := NewAggregator()
	a.Append(launcher.Chunk{Stream: launcher.Stdout, Text: "done"})
	_ = a.Finalize()

	assert.Panics(t, func() {
		a.Append(launcher.Chunk{Stream: launcher.Stdout, Text: "late"})
	})
}

func TestFinalizeIsStable(t *testing.T) {
	a := NewAggregator()
	for i := 0; i < 3; i++ {
		a.Append(launcher.Chunk{Stream: launcher.Stdout, Text: fmt.Sprintf("%d", i)})
	}
	first := a.Finalize()
	second := a.Finalize()
	assert.Equal(t, first, second)
}
