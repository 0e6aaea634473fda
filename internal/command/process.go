package command

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// ProcessRunner executes commands as real subprocesses with process-group
// isolation, so a whole subprocess tree can be terminated at once.
type ProcessRunner struct {
	pm *ProcessManager
}

// NewProcessRunner creates a ProcessRunner. pm may be nil if subprocess
// tracking is not needed.
func NewProcessRunner(pm *ProcessManager) *ProcessRunner {
	return &ProcessRunner{pm: pm}
}

// Run executes the command and waits for it to exit.
//
// Both pipes are drained concurrently before Wait is called, so a command
// whose output exceeds the pipe buffer cannot deadlock the runner. Each line
// of either stream is forwarded to onLine as it arrives.
func (r *ProcessRunner) Run(ctx context.Context, spec Spec, onLine LineFunc) (Result, error) {
	if len(spec.Argv) == 0 {
		return Result{ExitCode: -1}, errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true, // New process group, see KillAll
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("creating stderr pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("starting %q: %w", spec.Argv[0], err)
	}

	if r.pm != nil {
		r.pm.Track(cmd)
		defer r.pm.Untrack(cmd)
	}

	var wg sync.WaitGroup
	var stdout, stderr bytes.Buffer

	wg.Add(2)
	go drain(&wg, stdoutPipe, &stdout, onLine)
	go drain(&wg, stderrPipe, &stderr, onLine)
	wg.Wait()

	waitErr := cmd.Wait()

	res := Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if waitErr != nil {
		return res, fmt.Errorf("%q exited with status %d: %w", spec.Argv[0], res.ExitCode, waitErr)
	}

	return res, nil
}

// drain copies a pipe into buf, forwarding complete lines to onLine.
func drain(wg *sync.WaitGroup, pipe io.Reader, buf *bytes.Buffer, onLine LineFunc) {
	defer wg.Done()

	scanner := bufio.NewScanner(io.TeeReader(pipe, buf))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}

	// If scanning stopped early (e.g. an over-long line), keep draining so
	// the subprocess can't block on a full pipe.
	io.Copy(buf, pipe)
}
