// Package reactive provides the dependency-tracking and invalidation
// engine at the heart of weft.
//
// The engine discovers dependencies at runtime: reading a Value or Calc
// while a computation executes subscribes that computation to the
// producer it read. Writing a Value invalidates everything that read it,
// invalidation cascades through derived Calcs, and stale Effects are
// collected by a per-scope flush scheduler that re-runs each of them
// exactly once per pass.
//
// # Core Types
//
// Value[T] is a mutable reactive cell:
//
//	count := reactive.NewValue(0)
//	n, _ := count.Get() // read (subscribes the current computation)
//	count.Set(5)        // write (invalidates subscribers, equality-skip)
//
// Calc[T] is a memoized derived computation. It recomputes lazily, at
// most once per invalidation, and caches errors as well as values:
//
//	doubled := reactive.NewCalc(func() (int, error) {
//	    n, err := count.Get()
//	    return n * 2, err
//	})
//
// Effect is a terminal side-effecting observer owned by a Scope. It runs
// once on creation and again after each flush that finds it stale:
//
//	scope := reactive.NewScope()
//	scope.Effect(func(ctx context.Context) error {
//	    n, err := doubled.Get()
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println("doubled:", n)
//	    return nil
//	})
//
// # Flushing
//
// Writes take effect immediately; only effect re-execution is deferred.
// The owning loop calls Scope.Flush after handling an input event to
// drain all pending effects in priority order to a fixed point.
//
// # Isolation
//
// Isolate and Untracked run code with dependency tracking suppressed, so
// reads inside never create subscription edges.
//
// # Concurrency
//
// The tracking context is a per-goroutine stack. A computation that
// blocks on I/O keeps its stack, and scopes flushing concurrently on
// different goroutines never observe each other's tracking state.
// Goroutines spawned inside a computation do not inherit tracking.
package reactive
