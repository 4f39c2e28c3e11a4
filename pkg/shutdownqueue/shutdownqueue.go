// Package shutdownqueue is a process-wide LIFO queue of cleanup tasks.
//
// Components register their teardown via Add as they start; main drains
// the queue once at exit:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//	_ = shutdownqueue.Shutdown(ctx)
//
// Tasks run once, in reverse order of registration, with panics recovered.
// Errors are aggregated with errors.Join.
package shutdownqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Task is a shutdown function. It should honor ctx and return an error
// if it cannot finish before ctx is done.
type Task func(ctx context.Context) error

var (
	mu     sync.Mutex
	tasks  []Task
	closed bool
)

// Add registers a task to run on Shutdown. Safe from any goroutine.
// Nil tasks, and tasks added after shutdown started, are dropped.
func Add(t Task) {
	if t == nil {
		return
	}

	mu.Lock()
	defer mu.Unlock()

	if closed {
		return
	}

	tasks = append(tasks, t)
}

// Shutdown drains registered tasks in LIFO order. Subsequent calls are
// no-ops. If ctx expires mid-drain, remaining tasks are skipped and the
// context error is included in the joined result.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	pending := tasks
	tasks = nil
	closed = true
	mu.Unlock()

	var errs []error

	for i := len(pending) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("shutdown canceled: %w", ctx.Err()))
			return errors.Join(errs...)
		default:
		}

		func(t Task) {
			defer func() {
				if r := recover(); r != nil {
					errs = append(errs, fmt.Errorf("panic in shutdown task: %v", r))
				}
			}()

			if err := t(ctx); err != nil {
				errs = append(errs, err)
			}
		}(pending[i])
	}

	return errors.Join(errs...)
}
