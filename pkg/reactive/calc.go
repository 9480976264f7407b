package reactive

import (
	"sync"
	"sync/atomic"
)

// Calc is a memoized derived computation. It is both a consumer (its
// execution tracks reads under its own context) and a producer (readers
// of its result subscribe to it).
//
// A Calc is lazy: it computes on first Get and recomputes only after an
// invalidation, at most once per invalidation no matter how many
// readers ask. Errors are cached exactly like values, so a failing Calc
// returns the same error to every reader until a dependency changes.
type Calc[T any] struct {
	id    uint64
	fn    func() (T, error)
	label string

	mu    sync.Mutex
	value T
	err   error
	valid bool
	ctx   *Context // execution context of the cached run

	// running guards against re-entrant execution: a Get issued from
	// inside the computation (a dependency cycle) fails fast with
	// CycleError instead of deadlocking.
	running atomic.Bool

	deps *dependents
}

// NewCalc wraps fn as a reactive calc. fn is not run until the first Get.
func NewCalc[T any](fn func() (T, error)) *Calc[T] {
	return &Calc[T]{id: nextID(), fn: fn, deps: newDependents()}
}

// Named sets a label used in cycle errors and logs. Returns the calc
// for chaining.
func (c *Calc[T]) Named(label string) *Calc[T] {
	c.label = label
	return c
}

// ID returns the unique identifier for this calc.
func (c *Calc[T]) ID() uint64 {
	return c.id
}

// Get returns the cached result, recomputing first if the calc has been
// invalidated or never run. The calling computation is subscribed to
// this calc either way. A re-entrant Get during recomputation returns a
// CycleError and caches nothing.
func (c *Calc[T]) Get() (T, error) {
	if c.running.Load() {
		var zero T
		return zero, &CycleError{Label: c.label}
	}

	c.mu.Lock()
	valid := c.valid
	value, err := c.value, c.err
	c.mu.Unlock()

	if !valid {
		value, err = c.recompute()
	}

	c.deps.register()
	return value, err
}

// recompute executes fn under a fresh context and stores the outcome.
// If the fresh context is invalidated while fn is still executing (fn
// wrote one of its own dependencies), the result is stored but left
// marked stale so the next read recomputes.
func (c *Calc[T]) recompute() (T, error) {
	ctx := newContext()
	ctx.OnInvalidate(func() {
		c.mu.Lock()
		if c.ctx == ctx {
			c.valid = false
		}
		c.mu.Unlock()
		// Cascade: everything depending on this calc is stale too.
		c.deps.invalidate()
	})

	var value T
	var err error
	c.running.Store(true)
	withContext(ctx, func() {
		defer c.running.Store(false)
		value, err = c.fn()
	})

	c.mu.Lock()
	c.ctx = ctx
	c.value, c.err = value, err
	c.valid = !ctx.Invalidated()
	c.mu.Unlock()

	return value, err
}
