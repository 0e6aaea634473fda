package command

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
)

// ProcessManager tracks live subprocesses so shutdown can terminate them all.
//
// Typical wiring in main:
//
//	pm := command.NewProcessManager()
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	go func() { <-ctx.Done(); pm.KillAll() }()
type ProcessManager struct {
	mu    sync.Mutex
	procs map[int]*exec.Cmd
}

// NewProcessManager creates an empty ProcessManager.
func NewProcessManager() *ProcessManager {
	return &ProcessManager{procs: make(map[int]*exec.Cmd)}
}

// Track registers a started subprocess. Call after cmd.Start.
func (pm *ProcessManager) Track(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.procs[cmd.Process.Pid] = cmd
}

// Untrack removes a subprocess. Call after cmd.Wait returns.
func (pm *ProcessManager) Untrack(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.procs, cmd.Process.Pid)
}

// Count returns the number of tracked subprocesses.
func (pm *ProcessManager) Count() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return len(pm.procs)
}

// KillAll terminates every tracked subprocess's whole process group.
func (pm *ProcessManager) KillAll() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	var errs []error
	for pid := range pm.procs {
		// Negative PID signals the entire process group.
		if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
			errs = append(errs, fmt.Errorf("killing process group %d: %w", pid, err))
		}
	}

	return errors.Join(errs...)
}
