package main

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taskpipe/taskpipe/internal/config"
	"github.com/taskpipe/taskpipe/internal/events"
	"github.com/taskpipe/taskpipe/internal/pipeline"
)

func TestPickTask(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "explicit task", args: []string{"lint"}, want: "lint"},
		{name: "no args uses default", args: nil, want: "run"},
		{name: "extra args ignored", args: []string{"fmt", "whatever"}, want: "fmt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickTask(tt.args, cfg); got != tt.want {
				t.Errorf("pickTask(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestListTasks(t *testing.T) {
	cfg := config.Default()
	graph, err := cfg.Graph()
	if err != nil {
		t.Fatalf("Graph failed: %v", err)
	}

	var buf strings.Builder
	listTasks(&buf, graph)
	out := buf.String()

	for _, name := range []string{"fmt", "lint", "run"} {
		if !strings.Contains(out, name) {
			t.Errorf("listing missing task %q:\n%s", name, out)
		}
	}
	if !strings.Contains(out, "needs") {
		t.Errorf("listing does not show prerequisites:\n%s", out)
	}
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	if code := run([]string{"--no-such-flag"}); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestInitWritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskpipe.toml")

	if code := run([]string{"--init", "--config", path}); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}

	cfg, err := config.Load("", path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Target != "mug.py" {
		t.Errorf("Target = %q, want mug.py", cfg.Target)
	}
	if cfg.LineWidth != 79 {
		t.Errorf("LineWidth = %d, want 79", cfg.LineWidth)
	}
	if _, ok := cfg.Tasks["run"]; !ok {
		t.Error("written config is missing the run task")
	}
}

func TestInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskpipe.toml")

	if code := run([]string{"--init", "--config", path}); code != 0 {
		t.Fatalf("first init exit code = %d, want 0", code)
	}
	if code := run([]string{"--init", "--config", path}); code != 2 {
		t.Errorf("second init exit code = %d, want 2", code)
	}
}

func TestEventLine(t *testing.T) {
	tests := []struct {
		name     string
		event    events.Event
		want     string
		wantEcho bool
	}{
		{
			name:     "tool output is echoed",
			event:    events.TaskOutputEvent{Name: "lint", Line: "mug.py:3:80: E501 line too long"},
			want:     "mug.py:3:80: E501 line too long",
			wantEcho: true,
		},
		{name: "task start is silent", event: events.TaskStartedEvent{Name: "fmt"}},
		{name: "task failure is silent", event: events.TaskFailedEvent{Name: "lint", ExitCode: 1}},
		{name: "run finish is silent", event: events.RunFinishedEvent{ExitCode: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := eventLine(tt.event)
			if ok != tt.wantEcho {
				t.Fatalf("eventLine echo = %v, want %v", ok, tt.wantEcho)
			}
			if got != tt.want {
				t.Errorf("eventLine = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil is silent", err: nil},
		{name: "cancellation is silent", err: context.Canceled},
		{
			name: "command failure is silent",
			err:  &pipeline.CommandFailedError{Task: "lint", Argv: []string{"flake8"}, ExitCode: 1},
		},
		{
			name: "other errors are reported",
			err:  errors.New("building task graph: cycle detected"),
			want: "Error: building task graph: cycle detected\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf strings.Builder
			reportError(&buf, tt.err)
			if buf.String() != tt.want {
				t.Errorf("reportError output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}
