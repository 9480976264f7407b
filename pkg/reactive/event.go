package reactive

import "context"

type eventOptions struct {
	ignoreInit bool
}

// EventOption configures OnEvent.
type EventOption func(*eventOptions)

// IgnoreInit makes the handler skip the effect's first run, so it fires
// on changes only, not on the initial dependency-establishing pass.
func IgnoreInit() EventOption {
	return func(o *eventOptions) {
		o.ignoreInit = true
	}
}

// OnEvent builds an effect body that reacts to the trigger alone: the
// trigger's reads are tracked, the handler runs isolated, so nothing
// the handler reads becomes a dependency.
//
//	scope.Effect(reactive.OnEvent(
//	    func() error { _, err := submitClicks.Get(); return err },
//	    func(ctx context.Context) error { return save(ctx) },
//	    reactive.IgnoreInit(),
//	))
func OnEvent(trigger func() error, handler func(context.Context) error, opts ...EventOption) func(context.Context) error {
	var o eventOptions
	for _, opt := range opts {
		opt(&o)
	}
	first := true
	return func(ctx context.Context) error {
		if err := trigger(); err != nil {
			return err
		}
		if first {
			first = false
			if o.ignoreInit {
				return nil
			}
		}
		var err error
		Untracked(func() {
			err = handler(ctx)
		})
		return err
	}
}
