package events

import "time"

// Event is the base interface for all events.
type Event interface {
	EventType() string
	TaskName() string
}

// Topic constants
const (
	TopicTask = "task"
	TopicPlan = "plan"
)

// Event type constants
const (
	EventTypeTaskStarted   = "task.started"
	EventTypeTaskOutput    = "task.output"
	EventTypeTaskCompleted = "task.completed"
	EventTypeTaskFailed    = "task.failed"
	EventTypePlanProgress  = "plan.progress"
	EventTypeRunFinished   = "plan.finished"
)

// TaskStartedEvent is published when a task's first command starts.
type TaskStartedEvent struct {
	Name      string
	Timestamp time.Time
}

func (e TaskStartedEvent) EventType() string { return EventTypeTaskStarted }
func (e TaskStartedEvent) TaskName() string  { return e.Name }

// TaskOutputEvent carries one line of a task's tool output.
type TaskOutputEvent struct {
	Name      string
	Line      string
	Timestamp time.Time
}

func (e TaskOutputEvent) EventType() string { return EventTypeTaskOutput }
func (e TaskOutputEvent) TaskName() string  { return e.Name }

// TaskCompletedEvent is published when every command of a task exited zero.
type TaskCompletedEvent struct {
	Name      string
	Duration  time.Duration
	Timestamp time.Time
}

func (e TaskCompletedEvent) EventType() string { return EventTypeTaskCompleted }
func (e TaskCompletedEvent) TaskName() string  { return e.Name }

// TaskFailedEvent is published when a command of a task exits non-zero.
type TaskFailedEvent struct {
	Name      string
	ExitCode  int
	Err       error
	Duration  time.Duration
	Timestamp time.Time
}

func (e TaskFailedEvent) EventType() string { return EventTypeTaskFailed }
func (e TaskFailedEvent) TaskName() string  { return e.Name }

// PlanProgressEvent reports how far through the plan a run is.
type PlanProgressEvent struct {
	Total     int
	Done      int
	Failed    int
	Running   int
	Timestamp time.Time
}

func (e PlanProgressEvent) EventType() string { return EventTypePlanProgress }
func (e PlanProgressEvent) TaskName() string  { return "" }

// RunFinishedEvent is published once per run, after the plan either completed
// or aborted at its first failure.
type RunFinishedEvent struct {
	ExitCode  int
	Err       error
	Timestamp time.Time
}

func (e RunFinishedEvent) EventType() string { return EventTypeRunFinished }
func (e RunFinishedEvent) TaskName() string  { return "" }
