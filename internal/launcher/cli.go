package launcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/ourobouros/samlocal/internal/apperror"
)

const (
	// EnvCLIPath overrides the executable name/path used when the Command
	// does not carry one.
	EnvCLIPath = "SAMLOCAL_CLI"
	// DefaultExecutable is the fallback CLI name looked up on $PATH.
	DefaultExecutable = "sam"

	readBufferSize = 4096
)

// CLILauncher spawns the external CLI as a direct subprocess.
type CLILauncher struct {
	logger *slog.Logger
}

// NewCLILauncher creates a subprocess launcher.
func NewCLILauncher(logger *slog.Logger) *CLILauncher {
	return &CLILauncher{logger: logger}
}

// ResolveExecutable picks the CLI binary: the configured path if set, else
// the SAMLOCAL_CLI environment variable, else "sam" on $PATH.
func ResolveExecutable(configured string) (string, error) {
	candidate := configured
	if candidate == "" {
		candidate = os.Getenv(EnvCLIPath)
	}
	if candidate == "" {
		candidate = DefaultExecutable
	}
	path, err := exec.LookPath(candidate)
	if err != nil {
		return "", apperror.LaunchFailed(candidate, err)
	}
	return path, nil
}

// Launch resolves the executable, starts the process, and wires two pump
// goroutines that read the pipes into the chunk channel. The process is
// deliberately not bound to ctx: an Await timeout leaves the process
// running ("result unknown" contract), so nothing here kills it.
func (l *CLILauncher) Launch(ctx context.Context, cmd Command) (Handle, error) {
	path, err := ResolveExecutable(cmd.Path)
	if err != nil {
		return nil, err
	}

	c := exec.Command(path, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.Stdin = strings.NewReader(cmd.Stdin)

	stdout, err := c.StdoutPipe()
	if err != nil {
		return nil, apperror.LaunchFailed(path, err)
	}
	stderr, err := c.StderrPipe()
	if err != nil {
		return nil, apperror.LaunchFailed(path, err)
	}

	if err := c.Start(); err != nil {
		return nil, apperror.LaunchFailed(path, err)
	}

	l.logger.Debug("process started",
		slog.String("path", path),
		slog.Int("pid", c.Process.Pid),
	)

	h := &processHandle{
		chunks: make(chan Chunk, 64),
		done:   make(chan int, 1),
	}

	var pumps sync.WaitGroup
	pumps.Add(2)
	go h.pump(&pumps, Stdout, stdout)
	go h.pump(&pumps, Stderr, stderr)

	go func() {
		// Both pipes must be drained before Wait releases them. The chunk
		// channel closes first so the exit code is the happens-after signal.
		pumps.Wait()
		close(h.chunks)

		code := 0
		if err := c.Wait(); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				code = exitErr.ExitCode()
			} else {
				l.logger.Error("process wait failed", slog.String("error", err.Error()))
				code = -1
			}
		}
		h.done <- code
	}()

	return h, nil
}

type processHandle struct {
	chunks chan Chunk
	done   chan int
}

func (h *processHandle) Output() <-chan Chunk { return h.chunks }
func (h *processHandle) Done() <-chan int     { return h.done }

// pump copies one pipe into the chunk channel until EOF. Chunk boundaries
// are whatever Read returned; no line alignment is attempted.
func (h *processHandle) pump(wg *sync.WaitGroup, stream Stream, r io.Reader) {
	defer wg.Done()
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.chunks <- Chunk{Stream: stream, Text: string(buf[:n])}
		}
		if err != nil {
			return
		}
	}
}
