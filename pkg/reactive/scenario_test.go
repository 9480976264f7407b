package reactive

import (
	"context"
	"testing"
)

// End-to-end walk through the canonical source -> derived -> observer
// pipeline: lazy first compute, propagation through a flush, and the
// equality-skip keeping redundant writes quiet.
func TestValueCalcEffectPipeline(t *testing.T) {
	scope := NewScope(WithName("pipeline"))
	defer scope.Destroy()

	v := NewValue(1)
	computes := 0
	double := NewCalc(func() (int, error) {
		computes++
		n, err := v.Get()
		return n * 2, err
	}).Named("double")

	var log []int
	scope.Effect(func(context.Context) error {
		n, err := double.Get()
		if err != nil {
			return err
		}
		log = append(log, n)
		return nil
	}, WithLabel("logger"))

	assertLog := func(want ...int) {
		t.Helper()
		if len(log) != len(want) {
			t.Fatalf("log = %v, want %v", log, want)
		}
		for i := range want {
			if log[i] != want[i] {
				t.Fatalf("log = %v, want %v", log, want)
			}
		}
	}

	assertLog(2)
	if computes != 1 {
		t.Errorf("computes = %d, want 1", computes)
	}

	v.Set(5)
	if err := scope.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	assertLog(2, 10)

	// Same value again: no invalidation, no recompute, no effect run.
	v.Set(5)
	if err := scope.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	assertLog(2, 10)
	if computes != 2 {
		t.Errorf("computes = %d, want 2", computes)
	}
}

// A calc whose output does not change still wakes its readers: only
// Value writes carry the equality-skip.
func TestCalcInvalidationIsUnconditional(t *testing.T) {
	scope := NewScope()
	defer scope.Destroy()

	v := NewValue(1)
	sign := NewCalc(func() (int, error) {
		n, err := v.Get()
		if err != nil {
			return 0, err
		}
		if n >= 0 {
			return 1, nil
		}
		return -1, nil
	})

	runs := 0
	scope.Effect(func(context.Context) error {
		runs++
		_, err := sign.Get()
		return err
	})

	v.Set(2) // sign still 1
	_ = scope.Flush()
	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
}
