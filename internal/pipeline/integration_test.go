package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/taskpipe/taskpipe/internal/command"
	"github.com/taskpipe/taskpipe/internal/history"
	"github.com/taskpipe/taskpipe/internal/task"
)

// TestEndToEndPipeline runs a real fmt -> lint -> run pipeline with shell
// stand-ins for the tools: fmt canonicalizes the file, lint checks the
// canonical form, run reads the file and exits with its own code.
func TestEndToEndPipeline(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "script")

	// "Unformatted" input.
	if err := os.WriteFile(target, []byte("b\na\n"), 0644); err != nil {
		t.Fatalf("writing target: %v", err)
	}

	g := task.NewGraph()
	g.Add(&task.Task{Name: "fmt", Commands: [][]string{
		{"sh", "-c", "sort -o {target} {target}"},
	}})
	g.Add(&task.Task{Name: "lint", Needs: []string{"fmt"}, Commands: [][]string{
		{"sh", "-c", "sort -c {target}"},
	}})
	g.Add(&task.Task{Name: "run", Needs: []string{"fmt", "lint"}, Commands: [][]string{
		{"sh", "-c", "grep -q a {target} && exit 5"},
	}})

	store, err := history.NewMemoryStore(context.Background())
	if err != nil {
		t.Fatalf("NewMemoryStore failed: %v", err)
	}
	defer store.Close()

	exec := New(Options{
		Graph:  g,
		Runner: command.NewProcessRunner(nil),
		Store:  store,
		Vars:   task.Vars{"target": target},
		Target: target,
	})

	err = exec.Execute(context.Background(), "run")

	// fmt sorted the file, lint passed, and the script's own exit code is
	// the run's result.
	if got := ExitCode(err); got != 5 {
		t.Fatalf("ExitCode = %d, want 5 (err: %v)", got, err)
	}

	data, _ := os.ReadFile(target)
	if string(data) != "a\nb\n" {
		t.Errorf("target not canonicalized: %q", data)
	}

	// History recorded the run and its tasks.
	runs, err := store.ListRuns(context.Background(), 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns = %v, %v", runs, err)
	}
	if runs[0].ExitCode != 5 {
		t.Errorf("recorded exit code = %d, want 5", runs[0].ExitCode)
	}

	taskRuns, err := store.TaskRuns(context.Background(), runs[0].ID)
	if err != nil {
		t.Fatalf("TaskRuns failed: %v", err)
	}
	if len(taskRuns) != 3 {
		t.Fatalf("recorded %d task rows, want 3", len(taskRuns))
	}
	if taskRuns[0].Task != "fmt" || taskRuns[1].Task != "lint" || taskRuns[2].Task != "run" {
		t.Errorf("task order = %v", taskRuns)
	}
	if taskRuns[2].Status != "failed" {
		t.Errorf("run status = %q, want failed", taskRuns[2].Status)
	}
}

// TestFmtIsIdempotent runs fmt twice; the second run must succeed and leave
// the file unchanged.
func TestFmtIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "script")

	if err := os.WriteFile(target, []byte("b\na\n"), 0644); err != nil {
		t.Fatalf("writing target: %v", err)
	}

	g := task.NewGraph()
	g.Add(&task.Task{Name: "fmt", Commands: [][]string{
		{"sh", "-c", "sort -o {target} {target}"},
	}})

	exec := New(Options{
		Graph:  g,
		Runner: command.NewProcessRunner(nil),
		Vars:   task.Vars{"target": target},
	})

	if err := exec.Execute(context.Background(), "fmt"); err != nil {
		t.Fatalf("first fmt failed: %v", err)
	}
	after1, _ := os.ReadFile(target)

	if err := exec.Execute(context.Background(), "fmt"); err != nil {
		t.Fatalf("second fmt failed: %v", err)
	}
	after2, _ := os.ReadFile(target)

	if string(after1) != string(after2) {
		t.Errorf("fmt not idempotent: %q then %q", after1, after2)
	}
}
