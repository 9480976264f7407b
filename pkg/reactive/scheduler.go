package reactive

import (
	"container/heap"
	"sync"
)

// scheduler drains the pending set of invalidated effects once per
// flush, in priority order. It is owned by exactly one Scope; scopes
// share nothing, so concurrent scopes flush in parallel while each
// scope has at most one flush in progress.
type scheduler struct {
	mu       sync.Mutex
	pending  effectHeap
	flushing bool
	limit    int

	// onFlushRequested fires when work arrives while the scheduler is
	// idle, letting the owning loop know a flush is due.
	onFlushRequested func()
}

func newScheduler(limit int) *scheduler {
	return &scheduler{limit: limit}
}

// enqueue adds an effect to the pending set. Deduplication happens in
// Effect.schedule via the pending flag, so an effect appears here at
// most once per invalidation.
func (s *scheduler) enqueue(e *Effect) {
	s.mu.Lock()
	heap.Push(&s.pending, e)
	idle := !s.flushing
	notify := s.onFlushRequested
	s.mu.Unlock()

	if idle && notify != nil {
		notify()
	}
}

// flush pops the pending set to a fixed point, calling run for each
// live effect. Re-entrant flush calls fold into the pass already in
// progress. Running an effect may enqueue further effects; the loop
// keeps going until the set is empty or the step limit trips, in which
// case the remaining pending set is discarded and ErrFlushLimit is
// returned.
func (s *scheduler) flush(run func(*Effect)) error {
	s.mu.Lock()
	if s.flushing {
		s.mu.Unlock()
		return nil
	}
	s.flushing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.flushing = false
		s.mu.Unlock()
	}()

	steps := 0
	for {
		s.mu.Lock()
		if s.pending.Len() == 0 {
			s.mu.Unlock()
			return nil
		}
		e := heap.Pop(&s.pending).(*Effect)
		s.mu.Unlock()

		if e.destroyed.Load() || !e.pending.Load() {
			continue
		}

		steps++
		if steps > s.limit {
			e.pending.Store(false)
			s.mu.Lock()
			for _, p := range s.pending {
				p.pending.Store(false)
			}
			s.pending = s.pending[:0]
			s.mu.Unlock()
			return ErrFlushLimit
		}
		run(e)
	}
}

// pendingCount reports the number of queued entries, for diagnostics.
func (s *scheduler) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Len()
}

// effectHeap orders pending effects by priority, higher first, with
// ties broken by creation sequence so equal-priority effects run in
// registration order.
type effectHeap []*Effect

func (h effectHeap) Len() int { return len(h) }

func (h effectHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h effectHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *effectHeap) Push(x any) {
	*h = append(*h, x.(*Effect))
}

func (h *effectHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
