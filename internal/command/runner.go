package command

import (
	"context"
	"time"
)

// Spec describes one external command invocation. The process inherits the
// runner's environment unless Env is set.
type Spec struct {
	Argv []string // Argv[0] is the program, the rest its arguments
	Dir  string   // Working directory; empty means inherit
	Env  []string // Extra environment entries appended to os.Environ
}

// Result is the outcome of a completed command.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// LineFunc receives one line of combined process output as it is produced.
type LineFunc func(line string)

// Runner executes external commands to completion.
//
// A non-zero exit returns both a Result carrying the exit code and a non-nil
// error; the caller decides how to propagate it.
type Runner interface {
	Run(ctx context.Context, spec Spec, onLine LineFunc) (Result, error)
}
