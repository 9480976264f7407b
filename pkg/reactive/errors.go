package reactive

import (
	"errors"
	"fmt"
)

// ErrSilentStop is the abort signal a computation may return to mean
// "stop here, produce no output this cycle". It propagates through Calc
// readers like any other error but is swallowed at the effect boundary
// instead of being surfaced as a failure.
var ErrSilentStop = errors.New("reactive: silent stop")

// ErrNotSet is returned when reading a Value that has no value yet
// (created with NewEmptyValue, or after Unset). It wraps ErrSilentStop:
// an effect that reads an unset value simply skips this cycle.
var ErrNotSet = fmt.Errorf("reactive: value not set: %w", ErrSilentStop)

// ErrNotReady is returned by Task.Result while the task has not finished.
// Like ErrNotSet it is a silent stop, not a failure.
var ErrNotReady = fmt.Errorf("reactive: task result not ready: %w", ErrSilentStop)

// ErrFlushLimit is returned by Scope.Flush when the pending set keeps
// refilling and the flush fails to reach a fixed point within the
// configured step limit. This indicates runaway mutual invalidation and
// is fatal to the flush, not to the scope.
var ErrFlushLimit = errors.New("reactive: flush did not reach a fixed point")

// ErrScopeDestroyed is returned by operations on a destroyed Scope.
var ErrScopeDestroyed = errors.New("reactive: scope destroyed")

// CycleError reports a Calc that was re-entered while already executing,
// either directly or through mutual recursion. It is fatal to the read
// that triggered it and propagates to that reader only.
type CycleError struct {
	// Label names the calc whose execution was re-entered, when set.
	Label string
}

func (e *CycleError) Error() string {
	if e.Label == "" {
		return "reactive: dependency cycle detected"
	}
	return fmt.Sprintf("reactive: dependency cycle detected in calc %q", e.Label)
}

// Req returns ErrSilentStop if any condition is false. It is shorthand
// for guarding a computation on preconditions that are not yet met:
//
//	if err := reactive.Req(input > 0, ready); err != nil {
//	    return 0, err
//	}
func Req(conds ...bool) error {
	for _, ok := range conds {
		if !ok {
			return ErrSilentStop
		}
	}
	return nil
}
