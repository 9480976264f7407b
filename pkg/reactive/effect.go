package reactive

import (
	"context"
	"sync"
	"sync/atomic"
)

// Effect is a terminal side-effecting observer. It has no cached value
// and no subscribers of its own; it exists to push reactive state out
// to the boundary (rendering, transport, logging).
//
// An effect runs once when created, establishing its first dependency
// set, and is enqueued into its scope's flush scheduler whenever any of
// those dependencies invalidates. Errors returned by the body are
// surfaced to the owning scope and do not destroy the effect: it stays
// subscribed and retries on the next invalidation.
type Effect struct {
	id  uint64
	seq uint64

	fn       func(context.Context) error
	scope    *Scope
	priority int
	label    string

	destroyed atomic.Bool
	pending   atomic.Bool

	mu  sync.Mutex
	ctx *Context // live execution context
}

// EffectOption configures an Effect at creation.
type EffectOption func(*Effect)

// WithPriority sets the effect's flush priority. Effects with higher
// priority run first within a flush pass; ties are broken by creation
// order. The default priority is 0.
func WithPriority(p int) EffectOption {
	return func(e *Effect) {
		e.priority = p
	}
}

// WithLabel names the effect in logs, errors, and metrics.
func WithLabel(label string) EffectOption {
	return func(e *Effect) {
		e.label = label
	}
}

// ID returns the unique identifier for this effect.
func (e *Effect) ID() uint64 {
	return e.id
}

// Label returns the effect's label, if any.
func (e *Effect) Label() string {
	return e.label
}

// Destroyed reports whether the effect has been destroyed.
func (e *Effect) Destroyed() bool {
	return e.destroyed.Load()
}

// run executes the body under a fresh tracking context. The previous
// run's subscriptions die with the previous context; the new context
// re-enqueues the effect when invalidated.
func (e *Effect) run() error {
	if e.destroyed.Load() {
		return nil
	}
	e.pending.Store(false)

	ctx := newContext()
	ctx.OnInvalidate(func() {
		e.schedule()
	})
	e.mu.Lock()
	e.ctx = ctx
	e.mu.Unlock()

	var err error
	withContext(ctx, func() {
		err = e.fn(e.scope.ctx)
	})

	// Destroyed while the body was suspended: sever whatever this run
	// subscribed so no producer can re-enqueue it.
	if e.destroyed.Load() {
		ctx.Invalidate()
	}
	return err
}

// schedule adds the effect to the scope's pending set, deduplicated: an
// effect invalidated from several directions is enqueued once.
func (e *Effect) schedule() {
	if e.destroyed.Load() {
		return
	}
	if e.pending.CompareAndSwap(false, true) {
		e.scope.sched.enqueue(e)
	}
}

// Destroy marks the effect inert, unsubscribes it from every producer
// it currently reads, and prevents any future execution, including a
// pending one. Destroying twice is a no-op.
func (e *Effect) Destroy() {
	if e.destroyed.Swap(true) {
		return
	}
	e.pending.Store(false)

	e.mu.Lock()
	ctx := e.ctx
	e.ctx = nil
	e.mu.Unlock()
	if ctx != nil {
		ctx.Invalidate()
	}

	e.scope.removeEffect(e)
}
