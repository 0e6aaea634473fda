package pipeline

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/taskpipe/taskpipe/internal/command"
	"github.com/taskpipe/taskpipe/internal/events"
	"github.com/taskpipe/taskpipe/internal/history"
	"github.com/taskpipe/taskpipe/internal/task"
)

// Executor resolves a task to its execution plan and runs the plan's
// commands, one at a time, stopping at the first failure.
type Executor struct {
	graph    *task.Graph
	runner   command.Runner
	bus      *events.Bus
	store    history.Store // nil disables run history
	vars     task.Vars
	target   string
	retry    RetryPolicy
	breakers *BreakerRegistry // nil outside watch mode
}

// Options configures an Executor.
type Options struct {
	Graph  *task.Graph
	Runner command.Runner
	Bus    *events.Bus     // nil disables event publication
	Store  history.Store   // nil disables run history
	Vars   task.Vars       // placeholder values for command expansion
	Target string          // recorded in run history
	Retry  RetryPolicy     // zero value means DefaultRetryPolicy
}

// New creates an Executor.
func New(opts Options) *Executor {
	retry := opts.Retry
	if retry.InitialInterval == 0 {
		retry = DefaultRetryPolicy()
	}

	return &Executor{
		graph:  opts.Graph,
		runner: opts.Runner,
		bus:    opts.Bus,
		store:  opts.Store,
		vars:   opts.Vars,
		target: opts.Target,
		retry:  retry,
	}
}

// Execute runs the named task and its prerequisites.
//
// The plan executes strictly sequentially: each command is waited on before
// the next begins. The first non-zero exit aborts the remainder and is
// returned as a CommandFailedError. An undeclared name returns
// UnknownTaskError without spawning anything.
func (e *Executor) Execute(ctx context.Context, name string) error {
	plan, err := e.graph.Plan(name)
	if err != nil {
		return err
	}

	runID := e.startRun(ctx, name)
	e.publishProgress(plan)

	var runErr error
	for _, t := range plan {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		if err := e.executeTask(ctx, t, runID); err != nil {
			t.Status = task.StatusFailed
			e.publishProgress(plan)
			runErr = err
			break
		}

		t.Status = task.StatusCompleted
		e.publishProgress(plan)
	}

	e.finishRun(ctx, runID, runErr)

	if e.bus != nil {
		e.bus.Publish(events.TopicPlan, events.RunFinishedEvent{
			ExitCode:  ExitCode(runErr),
			Err:       runErr,
			Timestamp: time.Now(),
		})
	}

	return runErr
}

// executeTask runs one task's commands in order.
func (e *Executor) executeTask(ctx context.Context, t *task.Task, runID string) error {
	t.Status = task.StatusRunning
	start := time.Now()

	if e.bus != nil {
		e.bus.Publish(events.TopicTask, events.TaskStartedEvent{Name: t.Name, Timestamp: start})
	}

	var output strings.Builder
	onLine := func(line string) {
		output.WriteString(line)
		output.WriteByte('\n')
		if e.bus != nil {
			e.bus.Publish(events.TopicTask, events.TaskOutputEvent{
				Name:      t.Name,
				Line:      line,
				Timestamp: time.Now(),
			})
		}
	}

	for _, argv := range t.Commands {
		expanded := task.Expand(argv, e.vars)
		spec := command.Spec{Argv: expanded}

		res, err := e.runCommand(ctx, spec, t.Retries, onLine)
		if err != nil {
			cf := &CommandFailedError{
				Task:     t.Name,
				Argv:     expanded,
				ExitCode: res.ExitCode,
				Err:      err,
			}
			duration := time.Since(start)

			if e.bus != nil {
				e.bus.Publish(events.TopicTask, events.TaskFailedEvent{
					Name:      t.Name,
					ExitCode:  res.ExitCode,
					Err:       cf,
					Duration:  duration,
					Timestamp: time.Now(),
				})
			}
			e.saveTaskRun(ctx, runID, history.TaskRun{
				Task:     t.Name,
				Status:   task.StatusFailed.String(),
				Duration: duration,
				Output:   output.String(),
			})

			return cf
		}
	}

	duration := time.Since(start)
	if e.bus != nil {
		e.bus.Publish(events.TopicTask, events.TaskCompletedEvent{
			Name:      t.Name,
			Duration:  duration,
			Timestamp: time.Now(),
		})
	}
	e.saveTaskRun(ctx, runID, history.TaskRun{
		Task:     t.Name,
		Status:   task.StatusCompleted.String(),
		Duration: duration,
		Output:   output.String(),
	})

	return nil
}

// runCommand dispatches a single command through the retry policy and, in
// watch mode, the per-tool circuit breaker.
func (e *Executor) runCommand(ctx context.Context, spec command.Spec, retries int, onLine command.LineFunc) (command.Result, error) {
	if e.breakers != nil {
		return e.breakers.Run(ctx, spec, func(ctx context.Context) (command.Result, error) {
			return e.retry.Run(ctx, e.runner, spec, retries, onLine)
		})
	}
	return e.retry.Run(ctx, e.runner, spec, retries, onLine)
}

func (e *Executor) publishProgress(plan []*task.Task) {
	if e.bus == nil {
		return
	}

	p := events.PlanProgressEvent{Total: len(plan), Timestamp: time.Now()}
	for _, t := range plan {
		switch t.Status {
		case task.StatusCompleted:
			p.Done++
		case task.StatusFailed:
			p.Failed++
		case task.StatusRunning:
			p.Running++
		}
	}

	e.bus.Publish(events.TopicPlan, p)
}

func (e *Executor) startRun(ctx context.Context, name string) string {
	if e.store == nil {
		return ""
	}

	runID, err := e.store.StartRun(ctx, name, e.target)
	if err != nil {
		log.Printf("WARNING: failed to record run start: %v", err)
		return ""
	}
	return runID
}

func (e *Executor) finishRun(ctx context.Context, runID string, runErr error) {
	if e.store == nil || runID == "" {
		return
	}

	if err := e.store.FinishRun(ctx, runID, ExitCode(runErr)); err != nil {
		log.Printf("WARNING: failed to record run finish: %v", err)
	}
}

func (e *Executor) saveTaskRun(ctx context.Context, runID string, tr history.TaskRun) {
	if e.store == nil || runID == "" {
		return
	}

	if err := e.store.SaveTaskRun(ctx, runID, tr); err != nil {
		log.Printf("WARNING: failed to record task %q: %v", tr.Task, err)
	}
}
