package task

import "fmt"

// UnknownTaskError is returned when a requested task name is not declared in
// the graph. No external command is spawned in this case.
type UnknownTaskError struct {
	Name string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task %q", e.Name)
}
