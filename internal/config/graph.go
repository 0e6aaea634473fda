package config

import (
	"sort"
	"strconv"

	"github.com/taskpipe/taskpipe/internal/task"
)

// Graph builds the task graph declared by this configuration and validates
// it. Tasks are added in a stable order so listings are deterministic.
func (c *Config) Graph() (*task.Graph, error) {
	names := make([]string, 0, len(c.Tasks))
	for name := range c.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	g := task.NewGraph()
	for _, name := range names {
		tc := c.Tasks[name]
		if err := g.Add(&task.Task{
			Name:        name,
			Description: tc.Description,
			Needs:       tc.Needs,
			Commands:    tc.Commands,
			Retries:     tc.Retries,
		}); err != nil {
			return nil, err
		}
	}

	if _, err := g.Validate(); err != nil {
		return nil, err
	}

	return g, nil
}

// Vars returns the placeholder values substituted into command argvs.
func (c *Config) Vars() task.Vars {
	return task.Vars{
		"target": c.Target,
		"width":  strconv.Itoa(c.LineWidth),
	}
}
