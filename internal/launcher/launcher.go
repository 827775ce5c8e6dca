// Package launcher starts the external build/invoke CLI and exposes its
// output and termination as channels.
package launcher

import "context"

// Stream identifies which output pipe a chunk arrived on.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Chunk is one piece of process output. Chunk boundaries carry no meaning;
// they are whatever the pipe read returned and do not align with lines.
type Chunk struct {
	Stream Stream
	Text   string
}

// Command describes one invocation of the external CLI.
type Command struct {
	// Path is the resolved executable. Empty means the launcher resolves it
	// from the environment and its default.
	Path string
	Args []string
	Dir  string
	Env  []string
	// Stdin is written to the child's standard input and then closed.
	// The payload travels this way (the CLI is invoked with "--event -").
	Stdin string
}

// Handle is the live spawned process. It has a single owner (the launcher
// goroutines), which releases pipes and closes channels on every exit path.
//
// Ordering contract: Output is closed after both pipes reach EOF, and the
// exit code is published on Done strictly after Output closes. Consumers
// that drain Output and then receive from Done observe a complete aggregate.
type Handle interface {
	// Output delivers chunks in arrival order per stream. Closed at EOF.
	Output() <-chan Chunk
	// Done delivers the process exit code exactly once, after Output closes.
	Done() <-chan int
}

// Launcher turns a Command into a running process.
type Launcher interface {
	// Launch starts the process. Failure to resolve or spawn the executable
	// is an apperror.ErrLaunch; no Handle exists in that case.
	Launch(ctx context.Context, cmd Command) (Handle, error)
}
