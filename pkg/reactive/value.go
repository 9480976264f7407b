package reactive

import (
	"reflect"
	"sync"
)

// Value is a mutable reactive cell. Reading it during a tracked
// computation subscribes that computation; writing it invalidates every
// current subscriber exactly once and clears the subscriber set.
type Value[T any] struct {
	mu    sync.RWMutex
	value T
	set   bool

	// equal decides whether a write actually changed the value. nil
	// means defaultEquals.
	equal func(T, T) bool

	deps *dependents
}

// NewValue creates a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{value: initial, set: true, deps: newDependents()}
}

// NewEmptyValue creates a Value with no value yet. Get returns
// ErrNotSet until the first Set.
func NewEmptyValue[T any]() *Value[T] {
	return &Value[T]{deps: newDependents()}
}

// WithEquals configures a custom equality predicate for the
// equality-skip on Set. Returns the value for chaining.
func (v *Value[T]) WithEquals(fn func(T, T) bool) *Value[T] {
	v.equal = fn
	return v
}

// Get returns the current value, subscribing the current tracking
// context if one is active. May be called with no active computation,
// in which case it is a plain read. Returns ErrNotSet when the value
// has never been set or has been unset.
func (v *Value[T]) Get() (T, error) {
	v.deps.register()
	return v.Peek()
}

// Peek returns the current value without subscribing anything.
func (v *Value[T]) Peek() (T, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.set {
		var zero T
		return zero, ErrNotSet
	}
	return v.value, nil
}

// Set stores value and invalidates all subscribers. Writing a value
// equal (per the equality predicate) to the current one is a no-op:
// no write, no invalidation.
func (v *Value[T]) Set(value T) {
	v.mu.Lock()
	changed := !v.set || !v.equals(v.value, value)
	if changed {
		v.value = value
		v.set = true
	}
	v.mu.Unlock()

	if changed {
		v.deps.invalidate()
	}
}

// Update applies fn to the current value and stores the result, with
// the same equality-skip as Set. The value must be set.
func (v *Value[T]) Update(fn func(T) T) {
	v.mu.Lock()
	next := fn(v.value)
	changed := !v.set || !v.equals(v.value, next)
	if changed {
		v.value = next
		v.set = true
	}
	v.mu.Unlock()

	if changed {
		v.deps.invalidate()
	}
}

// Unset clears the value. Subsequent reads return ErrNotSet until the
// next Set. Unsetting an already-unset value is a no-op.
func (v *Value[T]) Unset() {
	v.mu.Lock()
	changed := v.set
	v.set = false
	var zero T
	v.value = zero
	v.mu.Unlock()

	if changed {
		v.deps.invalidate()
	}
}

// IsSet reports whether the value is set. This is a reactive read: the
// current computation re-runs when the set state flips.
func (v *Value[T]) IsSet() bool {
	v.deps.register()
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.set
}

func (v *Value[T]) equals(a, b T) bool {
	if v.equal != nil {
		return v.equal(a, b)
	}
	return defaultEquals(a, b)
}

// defaultEquals compares with == for the common scalar types and falls
// back to reflect.DeepEqual for everything else.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return av == any(b).(int)
	case int64:
		return av == any(b).(int64)
	case uint64:
		return av == any(b).(uint64)
	case float64:
		return av == any(b).(float64)
	case string:
		return av == any(b).(string)
	case bool:
		return av == any(b).(bool)
	default:
		return reflect.DeepEqual(a, b)
	}
}
