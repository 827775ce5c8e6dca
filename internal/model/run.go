// Package model defines the data structures persisted and served by samlocal.
package model

import "time"

// Run is the stored record of a completed local invocation.
type Run struct {
	ID            string    `json:"id"`
	Handler       string    `json:"handler"`
	Mode          string    `json:"mode"`
	ExitCode      int       `json:"exitCode"`
	Stdout        string    `json:"stdout"`
	Stderr        string    `json:"stderr"`
	BreakpointHit bool      `json:"breakpointHit"`
	DurationMS    int64     `json:"durationMs"`
	CreatedAt     time.Time `json:"createdAt"`
}
