package task

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gammazero/toposort"
)

// Graph holds the declared tasks and their prerequisite edges.
// Definitions are fixed once the graph is built; execution state lives on the
// cloned tasks a Plan returns, never on the graph itself.
type Graph struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	order []string // insertion order, for stable listings
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{tasks: make(map[string]*Task)}
}

// Add declares a task. Task names must be unique.
func (g *Graph) Add(t *Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.tasks[t.Name]; exists {
		return fmt.Errorf("task %q already declared", t.Name)
	}

	g.tasks[t.Name] = t
	g.order = append(g.order, t.Name)
	return nil
}

// Validate checks that every prerequisite names a declared task and that the
// prerequisite relation is acyclic. Returns a topological order of all task
// names.
func (g *Graph) Validate() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for name, t := range g.tasks {
		for _, need := range t.Needs {
			if _, ok := g.tasks[need]; !ok {
				return nil, fmt.Errorf("task %q needs undeclared task %q", name, need)
			}
		}
	}

	var edges []toposort.Edge
	for name, t := range g.tasks {
		if len(t.Needs) == 0 {
			// Edge from nil keeps isolated tasks in the sort result.
			edges = append(edges, toposort.Edge{nil, name})
			continue
		}
		for _, need := range t.Needs {
			edges = append(edges, toposort.Edge{need, name})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("task graph contains a cycle: %w", err)
	}

	order := make([]string, 0, len(g.tasks))
	for _, name := range sorted {
		if name != nil {
			order = append(order, name.(string))
		}
	}

	if len(order) != len(g.tasks) {
		var missing []string
		seen := make(map[string]bool, len(order))
		for _, name := range order {
			seen[name] = true
		}
		for name := range g.tasks {
			if !seen[name] {
				missing = append(missing, name)
			}
		}
		return nil, fmt.Errorf("topological sort dropped tasks: %s", strings.Join(missing, ", "))
	}

	return order, nil
}

// Plan resolves a task's prerequisites transitively into a deduplicated,
// order-preserving execution plan: every prerequisite appears before its
// dependents, each task at most once, with the requested task last.
// The returned tasks are clones.
func (g *Graph) Plan(name string) ([]*Task, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.tasks[name]; !ok {
		return nil, &UnknownTaskError{Name: name}
	}

	var plan []*Task
	visited := make(map[string]bool)
	onPath := make(map[string]bool)

	var visit func(string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		if onPath[name] {
			return fmt.Errorf("task graph contains a cycle through %q", name)
		}

		t := g.tasks[name]

		onPath[name] = true
		for _, need := range t.Needs {
			if _, ok := g.tasks[need]; !ok {
				return fmt.Errorf("task %q needs undeclared task %q", name, need)
			}
			if err := visit(need); err != nil {
				return err
			}
		}
		onPath[name] = false

		visited[name] = true
		plan = append(plan, g.tasks[name].Clone())
		return nil
	}

	if err := visit(name); err != nil {
		return nil, err
	}

	return plan, nil
}

// Get returns a clone of the named task.
func (g *Graph) Get(name string) (*Task, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, ok := g.tasks[name]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Tasks returns clones of all declared tasks in declaration order.
func (g *Graph) Tasks() []*Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Task, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.tasks[name].Clone())
	}
	return out
}

// Len returns the number of declared tasks.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.tasks)
}
