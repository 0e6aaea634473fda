package pipeline

import (
	"context"
	"log"
	"time"
)

// Watcher re-executes a task at a fixed interval until the context is
// cancelled. Iterations run back to back, never concurrently.
type Watcher struct {
	exec     *Executor
	interval time.Duration
}

// NewWatcher creates a Watcher around exec. Per-tool circuit breakers are
// enabled on the executor so a persistently broken tool is not re-invoked on
// every tick.
func NewWatcher(exec *Executor, interval time.Duration) *Watcher {
	exec.breakers = NewBreakerRegistry()
	return &Watcher{exec: exec, interval: interval}
}

// Watch runs the named task immediately and then once per interval.
// Failed iterations are logged and do not stop the loop; only context
// cancellation does, returning ctx.Err().
func (w *Watcher) Watch(ctx context.Context, name string) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.exec.Execute(ctx, name); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("watch: %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
