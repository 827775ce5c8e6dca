// Package orchestrator runs a function handler locally through the external
// CLI: it launches the process, aggregates its output, optionally keeps a
// debug session moving past breakpoints, and resolves exactly one result
// per run.
package orchestrator

import (
	"fmt"
	"time"

	"github.com/ourobouros/samlocal/internal/debug"
)

// Mode selects plain execution or execution with debug support.
type Mode int

const (
	ModeRun Mode = iota
	ModeDebug
)

func (m Mode) String() string {
	if m == ModeDebug {
		return "debug"
	}
	return "run"
}

// MarshalText encodes the mode as "run" or "debug".
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts "run", "debug", or "" (defaults to run).
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "run":
		return ModeRun, nil
	case "debug":
		return ModeDebug, nil
	default:
		return ModeRun, fmt.Errorf("unknown mode %q", s)
	}
}

// RunRequest is the immutable description of one invocation: which handler,
// what input, and how. The payload is opaque text, passed through untouched.
type RunRequest struct {
	Handler string `json:"handler" validate:"required"`
	Payload string `json:"payload"`
	Mode    Mode   `json:"mode"`
}

// RunConfig owns a RunRequest plus the environment resolution for one
// invocation. A config is built per run; it is not reused across runs with
// different payloads.
type RunConfig struct {
	Request RunRequest `validate:"required"`

	// Executable overrides the CLI binary. Empty falls back to the
	// SAMLOCAL_CLI environment variable and then "sam" on $PATH.
	Executable   string
	WorkingDir   string
	TemplatePath string

	// Debug-mode fields.
	DebugPort   int `validate:"omitempty,min=1,max=65535"`
	AttachGrace time.Duration
	Breakpoints []debug.Breakpoint
}

// ExecutionResult is the single outcome of a run. A nonzero exit code is
// data here, not an error; interpretation belongs to the caller.
type ExecutionResult struct {
	ExitCode int           `json:"exitCode"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"duration"`
}
