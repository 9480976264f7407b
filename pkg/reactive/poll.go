package reactive

import (
	"context"
	"os"
	"time"
)

// Poll builds a calc whose value tracks an external, non-reactive
// source. Every interval a cheap check function runs; only when its
// cookie changes does the (presumably expensive) fn re-run. Both check
// and fn execute without dependency tracking: time drives this calc,
// nothing else.
//
// The polling effect is owned by scope and stops when the scope is
// destroyed.
func Poll[T any](scope *Scope, check func() (any, error), fn func() (T, error), interval time.Duration) *Calc[T] {
	cookie := NewEmptyValue[any]()

	scope.Effect(func(context.Context) error {
		InvalidateLater(scope, interval)
		var v any
		var err error
		Untracked(func() {
			v, err = check()
		})
		if err != nil {
			return err
		}
		// Equality-skip keeps downstream quiet while the cookie holds.
		cookie.Set(v)
		return nil
	}, WithLabel("poll-check"))

	return NewCalc(func() (T, error) {
		if _, err := cookie.Get(); err != nil {
			var zero T
			return zero, err
		}
		return IsolateErr(fn)
	})
}

type fileStamp struct {
	modTime int64
	size    int64
}

// FileReader builds a calc holding the parsed contents of path,
// re-reading only when the file's mtime or size changes, checked every
// interval. A missing file propagates the stat error to readers until
// the file appears.
func FileReader[T any](scope *Scope, path string, read func(path string) (T, error), interval time.Duration) *Calc[T] {
	check := func() (any, error) {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		return fileStamp{modTime: fi.ModTime().UnixNano(), size: fi.Size()}, nil
	}
	return Poll(scope, check, func() (T, error) {
		return read(path)
	}, interval)
}
