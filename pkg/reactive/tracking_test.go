package reactive

import (
	"context"
	"sync"
	"testing"
)

func TestIsolateDoesNotSubscribe(t *testing.T) {
	scope := NewScope()
	defer scope.Destroy()

	tracked := NewValue(1)
	untracked := NewValue(100)
	runs := 0
	var sum int
	scope.Effect(func(context.Context) error {
		runs++
		n, err := tracked.Get()
		if err != nil {
			return err
		}
		m := Isolate(func() int {
			v, _ := untracked.Get()
			return v
		})
		sum = n + m
		return nil
	})

	if sum != 101 {
		t.Fatalf("sum = %d, want 101", sum)
	}

	untracked.Set(200)
	_ = scope.Flush()
	if runs != 1 {
		t.Errorf("runs after isolated-dep write = %d, want 1", runs)
	}

	tracked.Set(2)
	_ = scope.Flush()
	if runs != 2 {
		t.Errorf("runs after tracked-dep write = %d, want 2", runs)
	}
	if sum != 202 {
		t.Errorf("sum = %d, want 202", sum)
	}
}

func TestIsolateErr(t *testing.T) {
	v := NewEmptyValue[int]()
	_, err := IsolateErr(func() (int, error) {
		return v.Get()
	})
	if err == nil {
		t.Error("want error from isolated read of empty value")
	}
}

func TestIsolateRestoresOuterTracking(t *testing.T) {
	scope := NewScope()
	defer scope.Destroy()

	before := NewValue(1)
	inside := NewValue(2)
	after := NewValue(3)
	runs := 0
	scope.Effect(func(context.Context) error {
		runs++
		if _, err := before.Get(); err != nil {
			return err
		}
		Untracked(func() {
			_, _ = inside.Get()
		})
		_, err := after.Get()
		return err
	})

	// Reads after the isolated section still subscribe.
	after.Set(30)
	_ = scope.Flush()
	if runs != 2 {
		t.Errorf("runs after post-isolation write = %d, want 2", runs)
	}

	inside.Set(20)
	_ = scope.Flush()
	if runs != 2 {
		t.Errorf("runs after isolated write = %d, want 2", runs)
	}
}

func TestCalcInsideIsolateStillTracksItsOwnDeps(t *testing.T) {
	v := NewValue(1)
	computes := 0
	c := NewCalc(func() (int, error) {
		computes++
		n, err := v.Get()
		return n * 2, err
	})

	got := Isolate(func() int {
		n, _ := c.Get()
		return n
	})
	if got != 2 {
		t.Fatalf("got = %d, want 2", got)
	}

	// The calc's own subscription to v survives isolation: a write still
	// invalidates its cache.
	v.Set(5)
	got, _ = c.Get()
	if got != 10 {
		t.Errorf("got = %d, want 10", got)
	}
	if computes != 2 {
		t.Errorf("computes = %d, want 2", computes)
	}
}

func TestTrackingIsPerGoroutine(t *testing.T) {
	scopeA := NewScope()
	defer scopeA.Destroy()
	scopeB := NewScope()
	defer scopeB.Destroy()

	// Two computations suspend mid-body on different goroutines; reads
	// after the rendezvous must still land in each one's own context.
	enterA := make(chan struct{})
	enterB := make(chan struct{})
	done := make(chan struct{}, 2)

	onlyA := NewValue("a")
	onlyB := NewValue("b")
	runsA, runsB := 0, 0

	go func() {
		scopeA.Effect(func(context.Context) error {
			runsA++
			if runsA == 1 {
				<-enterA
			}
			_, err := onlyA.Get()
			return err
		})
		done <- struct{}{}
	}()
	go func() {
		scopeB.Effect(func(context.Context) error {
			runsB++
			if runsB == 1 {
				<-enterB
			}
			_, err := onlyB.Get()
			return err
		})
		done <- struct{}{}
	}()

	// Both effects are now suspended inside their first run. Releasing
	// them in either order must not cross their subscriptions.
	close(enterB)
	close(enterA)
	<-done
	<-done

	onlyA.Set("a2")
	_ = scopeA.Flush()
	_ = scopeB.Flush()
	if runsA != 2 {
		t.Errorf("runsA = %d, want 2", runsA)
	}
	if runsB != 1 {
		t.Errorf("runsB = %d, want 1", runsB)
	}
}

func TestSpawnedGoroutineDoesNotInheritTracking(t *testing.T) {
	scope := NewScope()
	defer scope.Destroy()

	v := NewValue(1)
	runs := 0
	var wg sync.WaitGroup
	scope.Effect(func(context.Context) error {
		runs++
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = v.Get()
		}()
		return nil
	})
	wg.Wait()

	v.Set(2)
	_ = scope.Flush()
	if runs != 1 {
		t.Errorf("runs = %d, want 1: reads on spawned goroutines are untracked", runs)
	}
}
