package reactive

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// defaultFlushLimit bounds the number of effect executions in a single
// flush before the scheduler gives up on reaching a fixed point.
const defaultFlushLimit = 1000

// RunKind distinguishes the units of scheduler work seen by middleware.
type RunKind uint8

const (
	// RunFlush is one whole flush pass over the pending set.
	RunFlush RunKind = iota + 1
	// RunEffect is a single effect execution within a flush, or the
	// initial run at effect creation.
	RunEffect
)

func (k RunKind) String() string {
	switch k {
	case RunFlush:
		return "flush"
	case RunEffect:
		return "effect"
	default:
		return "unknown"
	}
}

// RunInfo describes a unit of scheduler work to middleware.
type RunInfo struct {
	Kind     RunKind
	Scope    string // scope name
	Label    string // effect label; empty for flush passes
	Priority int
}

// RunFunc executes a unit of scheduler work.
type RunFunc func(RunInfo) error

// Middleware wraps scheduler work for observability. Middleware sees
// the raw error from the body, including silent stops; surfacing policy
// stays with the scope.
type Middleware func(RunFunc) RunFunc

// Scope owns a set of effects and the flush scheduler that re-runs
// them. One scope corresponds to one session or environment: concurrent
// scopes are isolated graphs that share nothing and may flush in
// parallel. Destroying a scope destroys every effect it owns and
// releases its graph.
type Scope struct {
	id   uint64
	name string

	ctx    context.Context
	cancel context.CancelFunc

	sched      *scheduler
	logger     *slog.Logger
	onError    func(error)
	middleware []Middleware

	mu      sync.Mutex
	effects []*Effect
	seq     uint64
	timers  []*scopeTimer
	flushed []*flushedCallback

	flushLimit int

	destroyed atomic.Bool
}

type flushedCallback struct {
	fn       func()
	once     bool
	detached atomic.Bool
}

// ScopeOption configures a Scope at creation.
type ScopeOption func(*Scope)

// WithName names the scope in logs and metrics.
func WithName(name string) ScopeOption {
	return func(s *Scope) {
		s.name = name
	}
}

// WithLogger sets the scope's logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) ScopeOption {
	return func(s *Scope) {
		s.logger = logger
	}
}

// WithOnError sets the handler that receives effect-boundary failures
// and scheduler-fatal errors. The handler runs on the flushing
// goroutine.
func WithOnError(fn func(error)) ScopeOption {
	return func(s *Scope) {
		s.onError = fn
	}
}

// WithFlushLimit overrides the fixed-point step limit for a flush.
func WithFlushLimit(limit int) ScopeOption {
	return func(s *Scope) {
		if limit > 0 {
			s.flushLimit = limit
		}
	}
}

// WithFlushRequested registers a hook that fires when an effect is
// enqueued while the scheduler is idle. The owning loop typically uses
// it to arrange a Flush after the current event finishes.
func WithFlushRequested(fn func()) ScopeOption {
	return func(s *Scope) {
		s.sched.onFlushRequested = fn
	}
}

// WithMiddleware appends middleware wrapping every flush pass and
// effect run in this scope, outermost first.
func WithMiddleware(mw ...Middleware) ScopeOption {
	return func(s *Scope) {
		s.middleware = append(s.middleware, mw...)
	}
}

// WithParentContext derives the scope's context from parent instead of
// context.Background. Cancelling parent cancels every computation the
// scope runs.
func WithParentContext(parent context.Context) ScopeOption {
	return func(s *Scope) {
		s.cancel()
		s.ctx, s.cancel = context.WithCancel(parent)
	}
}

// NewScope creates a scope with its own flush scheduler.
func NewScope(opts ...ScopeOption) *Scope {
	s := &Scope{
		id:         nextID(),
		flushLimit: defaultFlushLimit,
		logger:     slog.Default(),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.sched = newScheduler(s.flushLimit)
	for _, opt := range opts {
		opt(s)
	}
	s.sched.limit = s.flushLimit
	s.logger = s.logger.With("scope_id", s.id)
	return s
}

// ID returns the unique identifier for this scope.
func (s *Scope) ID() uint64 {
	return s.id
}

// Name returns the scope's name, if any.
func (s *Scope) Name() string {
	return s.name
}

// Context returns the scope's context. It is cancelled when the scope
// is destroyed.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Destroyed reports whether the scope has been destroyed.
func (s *Scope) Destroyed() bool {
	return s.destroyed.Load()
}

// Effect registers a side-effecting observer owned by this scope and
// runs it once immediately to establish its first dependency set. The
// returned handle can destroy the effect before the scope ends.
//
// On a destroyed scope the returned effect is inert.
func (s *Scope) Effect(fn func(context.Context) error, opts ...EffectOption) *Effect {
	e := &Effect{
		id:    nextID(),
		fn:    fn,
		scope: s,
	}
	for _, opt := range opts {
		opt(e)
	}

	s.mu.Lock()
	if s.destroyed.Load() {
		s.mu.Unlock()
		e.destroyed.Store(true)
		return e
	}
	s.seq++
	e.seq = s.seq
	s.effects = append(s.effects, e)
	s.mu.Unlock()

	s.runEffect(e)
	return e
}

// Flush drains the pending set of invalidated effects to a fixed point,
// in priority order. Re-entrant calls fold into the flush already in
// progress. A flush that cannot reach a fixed point within the step
// limit returns ErrFlushLimit after surfacing it to the error handler.
func (s *Scope) Flush() error {
	if s.destroyed.Load() {
		return ErrScopeDestroyed
	}

	err := s.invoke(RunInfo{Kind: RunFlush, Scope: s.name}, func(RunInfo) error {
		return s.sched.flush(func(e *Effect) {
			s.runEffect(e)
		})
	})
	if err != nil {
		s.logger.Error("flush aborted", "err", err)
		if s.onError != nil {
			s.onError(err)
		}
	}

	s.runFlushedCallbacks()
	return err
}

// OnFlushed registers fn to run after each flush completes. With once
// set, fn runs after the next flush only. The returned cancel function
// detaches the callback.
func (s *Scope) OnFlushed(fn func(), once bool) (cancel func()) {
	cb := &flushedCallback{fn: fn, once: once}
	s.mu.Lock()
	s.flushed = append(s.flushed, cb)
	s.mu.Unlock()
	return func() {
		cb.detached.Store(true)
	}
}

// Destroy destroys every effect owned by the scope in reverse creation
// order, cancels the scope context and any pending timers, and releases
// the graph. Destroying twice is a no-op.
func (s *Scope) Destroy() {
	if s.destroyed.Swap(true) {
		return
	}
	s.cancel()

	s.mu.Lock()
	effects := s.effects
	s.effects = nil
	timers := s.timers
	s.timers = nil
	s.flushed = nil
	s.mu.Unlock()

	for _, t := range timers {
		t.t.Stop()
	}
	for i := len(effects) - 1; i >= 0; i-- {
		effects[i].Destroy()
	}

	s.logger.Debug("scope destroyed", "effects", len(effects))
}

// Stats is a point-in-time snapshot of a scope, for diagnostics.
type Stats struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	Effects   int    `json:"effects"`
	Pending   int    `json:"pending"`
	Destroyed bool   `json:"destroyed"`
}

// Stats returns a snapshot of the scope's current state.
func (s *Scope) Stats() Stats {
	s.mu.Lock()
	effects := len(s.effects)
	s.mu.Unlock()
	return Stats{
		ID:        s.id,
		Name:      s.name,
		Effects:   effects,
		Pending:   s.sched.pendingCount(),
		Destroyed: s.destroyed.Load(),
	}
}

// runEffect executes one effect through the middleware chain and
// applies the boundary policy: silent stops are dropped, everything
// else is logged and handed to the error handler. The effect itself
// survives either way and retries on its next invalidation.
func (s *Scope) runEffect(e *Effect) {
	info := RunInfo{Kind: RunEffect, Scope: s.name, Label: e.label, Priority: e.priority}
	err := s.invoke(info, func(RunInfo) error {
		return e.run()
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrSilentStop):
		s.logger.Debug("effect stopped silently", "effect", e.label, "effect_id", e.id)
	default:
		s.logger.Error("effect failed", "effect", e.label, "effect_id", e.id, "err", err)
		if s.onError != nil {
			s.onError(err)
		}
	}
}

// invoke runs fn through the scope's middleware chain.
func (s *Scope) invoke(info RunInfo, fn RunFunc) error {
	wrapped := fn
	for i := len(s.middleware) - 1; i >= 0; i-- {
		wrapped = s.middleware[i](wrapped)
	}
	return wrapped(info)
}

func (s *Scope) runFlushedCallbacks() {
	s.mu.Lock()
	cbs := make([]*flushedCallback, len(s.flushed))
	copy(cbs, s.flushed)
	if len(s.flushed) > 0 {
		kept := s.flushed[:0]
		for _, cb := range s.flushed {
			if !cb.once && !cb.detached.Load() {
				kept = append(kept, cb)
			}
		}
		s.flushed = kept
	}
	s.mu.Unlock()

	for _, cb := range cbs {
		if cb.detached.Load() {
			continue
		}
		cb.fn()
	}
}

// removeEffect drops a destroyed effect from the scope's books.
func (s *Scope) removeEffect(e *Effect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, have := range s.effects {
		if have == e {
			s.effects = append(s.effects[:i], s.effects[i+1:]...)
			return
		}
	}
}

// scopeTimer pairs a timer with a done flag so spent timers can be
// pruned instead of accumulating for the life of the scope.
type scopeTimer struct {
	t    *time.Timer
	done atomic.Bool
}

// trackTimer registers a timer to be stopped at scope destruction,
// pruning timers that already fired or were cancelled.
func (s *Scope) trackTimer(t *scopeTimer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed.Load() {
		t.t.Stop()
		return
	}
	kept := s.timers[:0]
	for _, have := range s.timers {
		if !have.done.Load() {
			kept = append(kept, have)
		}
	}
	s.timers = append(kept, t)
}

// InvalidateLater arranges for the current tracking context to be
// invalidated after delay, re-running the computation on the flush that
// follows. Calling it outside a tracked computation is a no-op. The
// timer is cancelled if the context is invalidated first or the scope
// is destroyed.
func InvalidateLater(s *Scope, delay time.Duration) {
	ctx, ok := currentContext()
	if !ok {
		s.logger.Warn("InvalidateLater called outside a reactive computation")
		return
	}
	st := &scopeTimer{}
	st.t = time.AfterFunc(delay, func() {
		st.done.Store(true)
		ctx.Invalidate()
	})
	ctx.OnInvalidate(func() {
		st.done.Store(true)
		st.t.Stop()
	})
	s.trackTimer(st)
}
