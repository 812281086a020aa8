package library

import (
	"context"
	"errors"
	"sync"
)

// ErrInFlight is returned when an action is started while the same action
// is still running.
var ErrInFlight = errors.New("action already in progress")

// Result is the outcome of one Task run.
type Result[T any] struct {
	Value T
	Err   error
}

// Task is an operator action.
type Task[T any] func(ctx context.Context) (T, error)

// Guard tracks which actions are running. Each key admits one run at a time.
type Guard struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{running: make(map[string]struct{})}
}

// Acquire marks key as running. The returned release func must be called
// exactly once when the run ends.
func (g *Guard) Acquire(key string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.running[key]; busy {
		return nil, false
	}
	g.running[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.running, key)
			g.mu.Unlock()
		})
	}, true
}

// Running reports whether key is currently held.
func (g *Guard) Running(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[key]
	return ok
}

// Start runs task in the background under key. The guard is taken before
// Start returns, so an overlapping call fails immediately with ErrInFlight.
// Once started a task is not cancelled by its caller's context.
func Start[T any](ctx context.Context, g *Guard, key string, task Task[T]) (<-chan Result[T], error) {
	release, ok := g.Acquire(key)
	if !ok {
		return nil, ErrInFlight
	}

	out := make(chan Result[T], 1)
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer release()
		v, err := task(runCtx)
		out <- Result[T]{Value: v, Err: err}
	}()
	return out, nil
}

// Run starts task and waits for its result.
func Run[T any](ctx context.Context, g *Guard, key string, task Task[T]) Result[T] {
	ch, err := Start(ctx, g, key, task)
	if err != nil {
		return Result[T]{Err: err}
	}
	return <-ch
}
