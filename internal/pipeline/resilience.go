package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/taskpipe/taskpipe/internal/command"
)

// RetryPolicy configures exponential backoff for tasks that opt into retries.
// Built-in tasks use zero retries, so a single failure aborts the run.
type RetryPolicy struct {
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// DefaultRetryPolicy returns the default backoff settings.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval:     200 * time.Millisecond,
		MaxInterval:         5 * time.Second,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}
}

// Run executes a command, re-running it up to retries extra times under
// exponential backoff. retries == 0 executes exactly once.
func (p RetryPolicy) Run(ctx context.Context, runner command.Runner, spec command.Spec, retries int, onLine command.LineFunc) (command.Result, error) {
	if retries <= 0 {
		return runner.Run(ctx, spec, onLine)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval
	bo.Multiplier = p.Multiplier
	bo.RandomizationFactor = p.RandomizationFactor

	var res command.Result
	op := func() error {
		var err error
		res, err = runner.Run(ctx, spec, onLine)
		return err
	}

	err := backoff.Retry(op, backoff.WithMaxRetries(backoff.WithContext(bo, ctx), uint64(retries)))
	return res, err
}

// BreakerRegistry keeps one circuit breaker per tool (argv[0]). It is only
// wired in watch mode, where the same tools run over and over: once a tool
// keeps failing, further invocations are skipped until the breaker half-opens.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewBreakerRegistry creates an empty registry.
func NewBreakerRegistry() *BreakerRegistry {
	return &BreakerRegistry{breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

// Run executes fn through the breaker for the spec's tool.
func (r *BreakerRegistry) Run(ctx context.Context, spec command.Spec, fn func(context.Context) (command.Result, error)) (command.Result, error) {
	cb := r.get(spec.Argv[0])

	out, err := cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	if out == nil {
		return command.Result{ExitCode: -1}, err
	}
	return out.(command.Result), err
}

func (r *BreakerRegistry) get(tool string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[tool]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        tool,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	r.breakers[tool] = cb
	return cb
}
