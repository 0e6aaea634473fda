package task

import (
	"errors"
	"strings"
	"testing"
)

// TestGraphValidate tests graph validation with various shapes.
func TestGraphValidate(t *testing.T) {
	tests := []struct {
		name        string
		setup       func() *Graph
		wantErr     bool
		errContains string
	}{
		{
			name: "valid linear chain",
			setup: func() *Graph {
				g := NewGraph()
				g.Add(&Task{Name: "fmt"})
				g.Add(&Task{Name: "lint", Needs: []string{"fmt"}})
				g.Add(&Task{Name: "run", Needs: []string{"fmt", "lint"}})
				return g
			},
		},
		{
			name: "independent tasks",
			setup: func() *Graph {
				g := NewGraph()
				g.Add(&Task{Name: "a"})
				g.Add(&Task{Name: "b"})
				return g
			},
		},
		{
			name: "direct cycle",
			setup: func() *Graph {
				g := NewGraph()
				g.Add(&Task{Name: "a", Needs: []string{"b"}})
				g.Add(&Task{Name: "b", Needs: []string{"a"}})
				return g
			},
			wantErr:     true,
			errContains: "cycle",
		},
		{
			name: "transitive cycle",
			setup: func() *Graph {
				g := NewGraph()
				g.Add(&Task{Name: "a", Needs: []string{"b"}})
				g.Add(&Task{Name: "b", Needs: []string{"c"}})
				g.Add(&Task{Name: "c", Needs: []string{"a"}})
				return g
			},
			wantErr:     true,
			errContains: "cycle",
		},
		{
			name: "self loop",
			setup: func() *Graph {
				g := NewGraph()
				g.Add(&Task{Name: "a", Needs: []string{"a"}})
				return g
			},
			wantErr:     true,
			errContains: "cycle",
		},
		{
			name: "undeclared prerequisite",
			setup: func() *Graph {
				g := NewGraph()
				g.Add(&Task{Name: "a", Needs: []string{"ghost"}})
				return g
			},
			wantErr:     true,
			errContains: "ghost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.setup()
			order, err := g.Validate()

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errContains)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(order) != g.Len() {
				t.Errorf("order has %d tasks, want %d", len(order), g.Len())
			}
		})
	}
}

func TestGraphValidateOrdering(t *testing.T) {
	g := NewGraph()
	g.Add(&Task{Name: "run", Needs: []string{"fmt", "lint"}})
	g.Add(&Task{Name: "lint", Needs: []string{"fmt"}})
	g.Add(&Task{Name: "fmt"})

	order, err := g.Validate()
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}

	if pos["fmt"] > pos["lint"] {
		t.Errorf("fmt (%d) should come before lint (%d)", pos["fmt"], pos["lint"])
	}
	if pos["lint"] > pos["run"] {
		t.Errorf("lint (%d) should come before run (%d)", pos["lint"], pos["run"])
	}
}

func TestGraphAddDuplicate(t *testing.T) {
	g := NewGraph()
	if err := g.Add(&Task{Name: "fmt"}); err != nil {
		t.Fatalf("first Add failed: %v", err)
	}
	if err := g.Add(&Task{Name: "fmt"}); err == nil {
		t.Fatal("expected error adding duplicate task name")
	}
}

// TestGraphPlan verifies plans are deduplicated and order-preserving.
func TestGraphPlan(t *testing.T) {
	tests := []struct {
		name    string
		setup   func() *Graph
		target  string
		want    []string
		wantErr bool
	}{
		{
			name: "default pipeline",
			setup: func() *Graph {
				g := NewGraph()
				g.Add(&Task{Name: "fmt"})
				g.Add(&Task{Name: "lint", Needs: []string{"fmt"}})
				g.Add(&Task{Name: "run", Needs: []string{"fmt", "lint"}})
				return g
			},
			target: "run",
			want:   []string{"fmt", "lint", "run"},
		},
		{
			name: "leaf task has no prerequisites",
			setup: func() *Graph {
				g := NewGraph()
				g.Add(&Task{Name: "fmt"})
				g.Add(&Task{Name: "lint", Needs: []string{"fmt"}})
				return g
			},
			target: "fmt",
			want:   []string{"fmt"},
		},
		{
			name: "diamond deduplicates the shared prerequisite",
			setup: func() *Graph {
				g := NewGraph()
				g.Add(&Task{Name: "base"})
				g.Add(&Task{Name: "left", Needs: []string{"base"}})
				g.Add(&Task{Name: "right", Needs: []string{"base"}})
				g.Add(&Task{Name: "top", Needs: []string{"left", "right"}})
				return g
			},
			target: "top",
			want:   []string{"base", "left", "right", "top"},
		},
		{
			name: "unknown task",
			setup: func() *Graph {
				g := NewGraph()
				g.Add(&Task{Name: "fmt"})
				return g
			},
			target:  "deploy",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.setup()
			plan, err := g.Plan(tt.target)

			if tt.wantErr {
				var unknown *UnknownTaskError
				if !errors.As(err, &unknown) {
					t.Fatalf("expected UnknownTaskError, got %v", err)
				}
				if unknown.Name != tt.target {
					t.Errorf("UnknownTaskError.Name = %q, want %q", unknown.Name, tt.target)
				}
				return
			}

			if err != nil {
				t.Fatalf("Plan failed: %v", err)
			}

			got := make([]string, len(plan))
			for i, pt := range plan {
				got[i] = pt.Name
			}
			if len(got) != len(tt.want) {
				t.Fatalf("plan = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("plan[%d] = %q, want %q (full plan %v)", i, got[i], tt.want[i], got)
				}
			}
		})
	}
}

// TestGraphPlanReturnsClones ensures mutating a plan does not leak into the
// graph's definitions.
func TestGraphPlanReturnsClones(t *testing.T) {
	g := NewGraph()
	g.Add(&Task{Name: "fmt", Commands: [][]string{{"black", "mug.py"}}})

	plan, err := g.Plan("fmt")
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	plan[0].Status = StatusFailed
	plan[0].Commands[0][0] = "mutated"

	fresh, _ := g.Get("fmt")
	if fresh.Status != StatusPending {
		t.Errorf("graph task status changed to %v", fresh.Status)
	}
	if fresh.Commands[0][0] != "black" {
		t.Errorf("graph task command mutated to %q", fresh.Commands[0][0])
	}
}
