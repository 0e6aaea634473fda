package task

// Status represents the current state of a task within a run.
type Status int

const (
	StatusPending   Status = iota // Not yet executed
	StatusRunning                 // Currently executing
	StatusCompleted               // All commands exited zero
	StatusFailed                  // A command exited non-zero
)

// String returns the lowercase name used in logs, history rows, and the TUI.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Task is a named, ordered sequence of external command invocations plus the
// tasks that must complete before it runs.
type Task struct {
	Name        string
	Description string
	Needs       []string   // Task names that must complete first
	Commands    [][]string // Argv per command, in execution order
	Retries     int        // Extra attempts per failing command, 0 = fail fast
	Status      Status
}

// Clone returns a deep copy so callers can mutate execution state without
// affecting the graph's definition.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}

	cp := *t
	if t.Needs != nil {
		cp.Needs = append([]string(nil), t.Needs...)
	}
	if t.Commands != nil {
		cp.Commands = make([][]string, len(t.Commands))
		for i, argv := range t.Commands {
			cp.Commands[i] = append([]string(nil), argv...)
		}
	}
	return &cp
}
