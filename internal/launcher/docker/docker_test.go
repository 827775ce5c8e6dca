package docker_test

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ourobouros/samlocal/internal/launcher"
	"github.com/ourobouros/samlocal/internal/launcher/docker"
)

func TestDockerLauncher(t *testing.T) {
	// Skip in CI environments if docker is not available
	if os.Getenv("CI") != "" {
		t.Skip("Skipping docker test in CI environment")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := docker.DefaultConfig()
	// A tiny image keeps the test fast; the launcher does not care which
	// binary it execs.
	cfg.Image = "alpine:3.20"
	cfg.PoolSize = 1

	l, err := docker.New(cfg, logger)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	defer l.Close()

	// Wait a moment for the pool manager to warm a container
	time.Sleep(2 * time.Second)

	t.Run("stdin payload and tagged streams", func(t *testing.T) {
		h, err := l.Launch(context.Background(), launcher.Command{
			Path:  "sh",
			Args:  []string{"-c", `tr '[:lower:]' '[:upper:]'; echo oops 1>&2`},
			Stdin: "hello world",
		})
		require.NoError(t, err)

		var stdout, stderr strings.Builder
		for c := range h.Output() {
			if c.Stream == launcher.Stderr {
				stderr.WriteString(c.Text)
			} else {
				stdout.WriteString(c.Text)
			}
		}
		code := <-h.Done()

		assert.Equal(t, 0, code)
		assert.Contains(t, stdout.String(), "HELLO WORLD")
		assert.Contains(t, stderr.String(), "oops")
	})
}
