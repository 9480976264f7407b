package reactive

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// dependents is the per-producer subscriber registry: the set of
// contexts that read this producer since its last invalidation.
//
// Edges are severed from both ends: invalidate clears the whole set,
// and each subscribed context removes itself when it is invalidated
// through any other path. A producer therefore never keeps a destroyed
// consumer alive.
type dependents struct {
	subs mapset.Set[*Context]
}

func newDependents() *dependents {
	return &dependents{subs: mapset.NewSet[*Context]()}
}

// register subscribes the current tracking context, if any. Subscribing
// is idempotent, and contexts that are already invalidated are not
// accepted: a cancelled computation cannot resubscribe.
func (d *dependents) register() {
	ctx, ok := currentContext()
	if !ok || ctx.Invalidated() {
		return
	}
	if d.subs.Add(ctx) {
		ctx.OnInvalidate(func() {
			d.subs.Remove(ctx)
		})
	}
}

// invalidate invalidates every current subscriber exactly once and
// clears the set. Subscribers must re-subscribe on their next read.
func (d *dependents) invalidate() {
	subs := d.subs.ToSlice()
	d.subs.Clear()
	for _, ctx := range subs {
		ctx.Invalidate()
	}
}

func (d *dependents) count() int {
	return d.subs.Cardinality()
}
