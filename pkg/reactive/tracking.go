package reactive

import (
	"sync"

	"github.com/petermattis/goid"
)

// trackingStacks holds the per-goroutine stack of tracking contexts.
// Keying by goroutine ID means a computation that blocks on I/O keeps
// its stack untouched until it resumes, and computations running for
// different scopes on different goroutines can never observe each
// other's tracking state.
var trackingStacks sync.Map // int64 -> *trackingStack

// trackingStack is only ever touched by its own goroutine.
type trackingStack struct {
	// frames is the stack of active contexts. A nil frame suppresses
	// tracking (Isolate/Untracked) without disturbing outer frames.
	frames []*Context
}

// currentContext returns the context currently tracking reads on this
// goroutine. ok is false when no computation is executing or tracking
// is suppressed.
func currentContext() (*Context, bool) {
	v, loaded := trackingStacks.Load(goid.Get())
	if !loaded {
		return nil, false
	}
	s := v.(*trackingStack)
	if len(s.frames) == 0 {
		return nil, false
	}
	top := s.frames[len(s.frames)-1]
	if top == nil {
		return nil, false
	}
	return top, true
}

// withContext executes fn with ctx pushed as the active tracking
// context. The frame is popped even if fn panics, and the goroutine's
// stack entry is dropped once empty so exiting goroutines leave nothing
// behind.
func withContext(ctx *Context, fn func()) {
	gid := goid.Get()
	var s *trackingStack
	if v, loaded := trackingStacks.Load(gid); loaded {
		s = v.(*trackingStack)
	} else {
		s = &trackingStack{}
		trackingStacks.Store(gid, s)
	}
	s.frames = append(s.frames, ctx)
	defer func() {
		s.frames = s.frames[:len(s.frames)-1]
		if len(s.frames) == 0 {
			trackingStacks.Delete(gid)
		}
	}()
	fn()
}

// Isolate runs fn with dependency tracking suppressed and returns its
// result. Reads inside fn never create subscription edges, and the
// isolation is transparent to the surrounding computation's own
// tracking.
func Isolate[T any](fn func() T) T {
	var out T
	withContext(nil, func() {
		out = fn()
	})
	return out
}

// IsolateErr is Isolate for functions that also return an error.
func IsolateErr[T any](fn func() (T, error)) (T, error) {
	var out T
	var err error
	withContext(nil, func() {
		out, err = fn()
	})
	return out, err
}

// Untracked runs fn with dependency tracking suppressed. Use Isolate
// when the result of fn is needed.
func Untracked(fn func()) {
	withContext(nil, fn)
}
