package reactive

import (
	"context"
	"testing"
)

func TestOnEventTracksTriggerOnly(t *testing.T) {
	scope := NewScope()
	defer scope.Destroy()

	clicks := NewValue(0)
	name := NewValue("a")
	handled := 0
	scope.Effect(OnEvent(
		func() error {
			_, err := clicks.Get()
			return err
		},
		func(context.Context) error {
			handled++
			_, err := name.Get()
			return err
		},
	))

	if handled != 1 {
		t.Fatalf("handled = %d, want 1", handled)
	}

	// The handler read name, but isolated: changing it is a no-op.
	name.Set("b")
	_ = scope.Flush()
	if handled != 1 {
		t.Errorf("handled after handler-dep write = %d, want 1", handled)
	}

	clicks.Set(1)
	_ = scope.Flush()
	if handled != 2 {
		t.Errorf("handled after trigger write = %d, want 2", handled)
	}
}

func TestOnEventIgnoreInit(t *testing.T) {
	scope := NewScope()
	defer scope.Destroy()

	clicks := NewValue(0)
	handled := 0
	scope.Effect(OnEvent(
		func() error {
			_, err := clicks.Get()
			return err
		},
		func(context.Context) error {
			handled++
			return nil
		},
		IgnoreInit(),
	))

	if handled != 0 {
		t.Fatalf("handled = %d, want 0: first run skipped", handled)
	}

	clicks.Set(1)
	_ = scope.Flush()
	if handled != 1 {
		t.Errorf("handled = %d, want 1", handled)
	}
}

func TestOnEventTriggerErrorSkipsHandler(t *testing.T) {
	scope := NewScope()
	defer scope.Destroy()

	clicks := NewEmptyValue[int]()
	handled := 0
	scope.Effect(OnEvent(
		func() error {
			_, err := clicks.Get()
			return err
		},
		func(context.Context) error {
			handled++
			return nil
		},
	))

	if handled != 0 {
		t.Fatalf("handled = %d, want 0: unset trigger stops silently", handled)
	}

	clicks.Set(1)
	_ = scope.Flush()
	if handled != 1 {
		t.Errorf("handled = %d, want 1", handled)
	}
}
