package reactive

import (
	"sync"
	"sync/atomic"
)

// Context is a single execution of a reactive computation. Producers
// read during that execution subscribe the context; when any of them
// changes, the context is invalidated and its callbacks fire.
//
// A context is one-shot: each re-execution of a Calc or Effect runs
// under a fresh Context, so the previous run's subscription edges die
// with the previous context. This clear-then-rebuild policy keeps the
// dependency graph minimal under conditional reads.
type Context struct {
	id uint64

	invalidated atomic.Bool

	mu        sync.Mutex
	callbacks []func()
}

func newContext() *Context {
	return &Context{id: nextID()}
}

// ID returns the unique identifier for this context.
func (c *Context) ID() uint64 {
	return c.id
}

// Invalidated reports whether the context has been invalidated.
func (c *Context) Invalidated() bool {
	return c.invalidated.Load()
}

// OnInvalidate registers fn to run when the context is invalidated.
// Callbacks fire exactly once. If the context is already invalidated,
// fn runs immediately.
func (c *Context) OnInvalidate(fn func()) {
	if c.invalidated.Load() {
		fn()
		return
	}
	c.mu.Lock()
	if c.invalidated.Load() {
		c.mu.Unlock()
		fn()
		return
	}
	c.callbacks = append(c.callbacks, fn)
	c.mu.Unlock()
}

// Invalidate marks the context stale and runs its callbacks in
// registration order. Calling it again is a no-op.
func (c *Context) Invalidate() {
	if c.invalidated.Swap(true) {
		return
	}
	c.mu.Lock()
	cbs := c.callbacks
	c.callbacks = nil
	c.mu.Unlock()
	for _, fn := range cbs {
		fn()
	}
}
