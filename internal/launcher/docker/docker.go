// Package docker runs the external CLI inside pre-warmed containers, for
// hosts where the build toolchain only exists as an image. It implements
// the same launcher contract as the plain subprocess path.
package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/ourobouros/samlocal/internal/apperror"
	"github.com/ourobouros/samlocal/internal/launcher"
)

// Launcher implements launcher.Launcher on top of Docker.
type Launcher struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pool   *Pool
}

// New creates a containerized launcher and ensures the build image exists.
func New(cfg Config, logger *slog.Logger) (*Launcher, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger.Info("ensuring build image is available", slog.String("image", cfg.Image))
	reader, err := cli.ImagePull(ctx, cfg.Image, image.PullOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()
	// Read everything to block until the pull is complete
	io.Copy(io.Discard, reader)
	logger.Info("build image is ready")

	l := &Launcher{
		cli:    cli,
		config: cfg,
		logger: logger,
	}

	l.pool = NewPool(cli, cfg, logger)
	l.pool.Start()

	return l, nil
}

// Close shuts down the container pool and docker client.
func (l *Launcher) Close() error {
	l.pool.Stop()
	return l.cli.Close()
}

// Launch executes the CLI inside a pre-warmed container. The container is
// removed once the exec finishes, on every path.
func (l *Launcher) Launch(ctx context.Context, cmd launcher.Command) (launcher.Handle, error) {
	containerID, err := l.pool.Get(ctx)
	if err != nil {
		return nil, apperror.LaunchFailed(l.config.Image, fmt.Errorf("no container available: %w", err))
	}

	execPath := cmd.Path
	if execPath == "" {
		if env := os.Getenv(launcher.EnvCLIPath); env != "" {
			execPath = env
		} else {
			execPath = launcher.DefaultExecutable
		}
	}

	execResp, err := l.cli.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   cmd.Dir,
		Env:          cmd.Env,
		Cmd:          append([]string{execPath}, cmd.Args...),
	})
	if err != nil {
		l.removeContainer(containerID)
		return nil, apperror.LaunchFailed(execPath, err)
	}

	attachResp, err := l.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		l.removeContainer(containerID)
		return nil, apperror.LaunchFailed(execPath, err)
	}

	// Deliver the payload over stdin and signal EOF.
	go func() {
		if cmd.Stdin != "" {
			if _, err := attachResp.Conn.Write([]byte(cmd.Stdin)); err != nil {
				l.logger.Warn("failed to write payload to container", slog.String("error", err.Error()))
			}
		}
		if err := attachResp.CloseWrite(); err != nil {
			l.logger.Warn("failed to close container stdin", slog.String("error", err.Error()))
		}
	}()

	h := &containerHandle{
		chunks: make(chan launcher.Chunk, 64),
		done:   make(chan int, 1),
	}

	go func() {
		defer l.removeContainer(containerID)

		// stdcopy demultiplexes the attached stream; the writers forward
		// each demuxed write as one chunk.
		_, _ = stdcopy.StdCopy(
			&streamWriter{ch: h.chunks, stream: launcher.Stdout},
			&streamWriter{ch: h.chunks, stream: launcher.Stderr},
			attachResp.Reader,
		)
		attachResp.Close()
		close(h.chunks)

		code := -1
		inspectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if inspect, err := l.cli.ContainerExecInspect(inspectCtx, execResp.ID); err == nil {
			code = inspect.ExitCode
		} else {
			l.logger.Error("failed to inspect exec", slog.String("error", err.Error()))
		}
		h.done <- code
	}()

	return h, nil
}

// removeContainer force removes an acquired container once its run is over.
func (l *Launcher) removeContainer(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := l.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
	if err != nil {
		l.logger.Error("failed to remove container", slog.String("id", id), slog.String("error", err.Error()))
	}
}

type containerHandle struct {
	chunks chan launcher.Chunk
	done   chan int
}

func (h *containerHandle) Output() <-chan launcher.Chunk { return h.chunks }
func (h *containerHandle) Done() <-chan int              { return h.done }

type streamWriter struct {
	ch     chan launcher.Chunk
	stream launcher.Stream
}

func (w *streamWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		w.ch <- launcher.Chunk{Stream: w.stream, Text: string(p)}
	}
	return len(p), nil
}
