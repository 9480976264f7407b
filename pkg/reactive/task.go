package reactive

import (
	"context"
)

// TaskStatus is the lifecycle state of a Task.
type TaskStatus uint8

const (
	TaskIdle TaskStatus = iota
	TaskRunning
	TaskDone
	TaskFailed
)

func (s TaskStatus) String() string {
	switch s {
	case TaskIdle:
		return "idle"
	case TaskRunning:
		return "running"
	case TaskDone:
		return "done"
	case TaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type taskOutcome[T any] struct {
	value T
	err   error
}

// Task runs long work outside the reactive graph and lands its result
// back inside it. Invoke launches the function on its own goroutine
// with the scope's context; Result is a reactive read that returns
// ErrNotReady (a silent stop) until the work finishes, then the
// outcome. Effects reading Result re-run when the task completes.
type Task[T any] struct {
	scope  *Scope
	fn     func(context.Context) (T, error)
	status *Value[TaskStatus]
	result *Value[taskOutcome[T]]
}

// NewTask creates a task owned by scope. Nothing runs until Invoke.
func NewTask[T any](scope *Scope, fn func(context.Context) (T, error)) *Task[T] {
	return &Task[T]{
		scope:  scope,
		fn:     fn,
		status: NewValue(TaskIdle),
		result: NewEmptyValue[taskOutcome[T]](),
	}
}

// Invoke starts one execution of the task. A completion that arrives
// after the scope is destroyed is dropped: it neither writes the result
// nor enqueues further work.
func (t *Task[T]) Invoke() {
	t.status.Set(TaskRunning)
	go func() {
		value, err := t.fn(t.scope.ctx)
		if t.scope.ctx.Err() != nil {
			return
		}
		t.result.Set(taskOutcome[T]{value: value, err: err})
		if err != nil {
			t.status.Set(TaskFailed)
		} else {
			t.status.Set(TaskDone)
		}
	}()
}

// Status returns the task's lifecycle state as a reactive read.
func (t *Task[T]) Status() TaskStatus {
	st, _ := t.status.Get()
	return st
}

// Result returns the most recent outcome. While no run has finished it
// returns ErrNotReady, which effects treat as a silent stop.
func (t *Task[T]) Result() (T, error) {
	st, _ := t.status.Get()
	if st != TaskDone && st != TaskFailed {
		var zero T
		return zero, ErrNotReady
	}
	out, err := t.result.Get()
	if err != nil {
		var zero T
		return zero, err
	}
	return out.value, out.err
}
