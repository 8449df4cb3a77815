// Package pty spawns child processes under pseudo terminals and exposes
// the non-blocking master-side operations the supervision loop needs:
// chunked reads, input writes, resizes, signals and liveness polling.
package pty

import (
	"fmt"

	"github.com/google/shlex"
)

// Spec describes one child to spawn.
type Spec struct {
	// Command is the argv to run. It must not be empty.
	Command []string
	// Dir is the working directory; empty means inherit.
	Dir string
	// Env is appended to the inherited environment and wins over both
	// the parent environment and the forced terminal variables.
	Env []string
	// Cols and Rows size the PTY at spawn time.
	Cols, Rows int
}

// ParseCommand splits a shell-like command line into an argv,
// respecting quotes.
func ParseCommand(line string) ([]string, error) {
	argv, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", line, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("parse command %q: empty command", line)
	}
	return argv, nil
}
