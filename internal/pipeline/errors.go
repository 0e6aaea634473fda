package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/taskpipe/taskpipe/internal/task"
)

// CommandFailedError reports the first failing command of a run. Execution of
// the remaining plan stops at this point and the failing command's exit code
// becomes the run's result. The runner adds no diagnostic output of its own;
// whatever the tool printed is the error detail.
type CommandFailedError struct {
	Task     string
	Argv     []string
	ExitCode int
	Err      error
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("task %q: command %q exited with status %d",
		e.Task, strings.Join(e.Argv, " "), e.ExitCode)
}

func (e *CommandFailedError) Unwrap() error { return e.Err }

// ExitCode maps a run's error to the process exit code the CLI should return:
// 0 on success, the failing command's own code on CommandFailedError, 2 for
// an unknown task, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var cf *CommandFailedError
	if errors.As(err, &cf) {
		if cf.ExitCode > 0 {
			return cf.ExitCode
		}
		return 1
	}

	var unknown *task.UnknownTaskError
	if errors.As(err, &unknown) {
		return 2
	}

	return 1
}
