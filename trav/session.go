// ABOUTME: Traversal session: lifecycle, root seeding and the driver loop
// ABOUTME: Visits every reachable closure once without recursion, descending into first children inline

package trav

import (
	"github.com/prateek/heaptrav/heap"
	"go.uber.org/zap"
)

// VisitFunc is called once for each closure the walk reaches, with the
// closure that discovered it (heap.Nil for roots). Returning false prunes
// the closure: none of its children are enumerated. The callback does the
// cycle detection: it must return false for closures it has already
// accepted.
type VisitFunc func(node, parent heap.Addr) bool

// Stats describes the work done by a session since Acquire.
type Stats struct {
	// Visited counts visit callback invocations.
	Visited int
	// Accepted counts visits that returned true.
	Accepted int
	// Skipped counts closures dropped before the visit: finished threads,
	// static closures without references.
	Skipped int
	// Pushed counts fresh work items seeded, roots included.
	Pushed int
	// StackSize is the current number of work items.
	StackSize int
	// MaxStackSize is the high-water mark of work items.
	MaxStackSize int
	// Chunks is the number of stack chunks held.
	Chunks int
}

// Session is one traversal batch over a paused heap. A session is not safe
// for concurrent use; the host must keep the heap still from Acquire to
// Release.
type Session struct {
	heap   heap.Heap
	stack  *stack
	logger *zap.Logger
	stats  Stats
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithAllocator sets the allocator backing the stack.
func WithAllocator(a ChunkAllocator) Option {
	return func(s *Session) {
		s.stack = newStack(a)
	}
}

// NewSession returns a session over h. It must be acquired before use.
func NewSession(h heap.Heap, opts ...Option) *Session {
	s := &Session{
		heap:   h,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stack == nil {
		s.stack = newStack(NewPoolAllocator(DefaultChunkCapacity))
	}
	return s
}

// Acquire allocates the first stack chunk and zeroes the counters. Any
// chunks left from a previous batch are released first.
func (s *Session) Acquire() error {
	if err := s.stack.init(); err != nil {
		return err
	}
	s.stats = Stats{}
	s.logger.Debug("traversal session acquired")
	return nil
}

// Release frees every stack chunk. The session may be acquired again.
func (s *Session) Release() {
	s.stack.close()
	s.logger.Debug("traversal session released",
		zap.Int("visited", s.stats.Visited),
		zap.Int("max_stack", s.stats.MaxStackSize))
}

// PushRoot seeds a root. Roots have no parent.
func (s *Session) PushRoot(root heap.Addr) error {
	if !s.stack.ready() {
		return ErrNotAcquired
	}
	return s.pushClosure(root, heap.Nil)
}

// Stats returns the session's counters.
func (s *Session) Stats() Stats {
	st := s.stats
	st.StackSize = s.stack.size
	st.MaxStackSize = s.stack.maxSize
	st.Chunks = s.stack.chunkCount()
	return st
}

// Run drains the stack, calling visit for every closure reached from the
// seeded roots. It returns when the stack is empty. Any error aborts the
// batch: the remaining work is discarded and no further visits are made.
func (s *Session) Run(visit VisitFunc) error {
	if !s.stack.ready() {
		return ErrNotAcquired
	}
	if err := s.run(visit); err != nil {
		s.logger.Error("traversal aborted", zap.Error(err),
			zap.Int("visited", s.stats.Visited),
			zap.Int("stack", s.stack.size))
		s.stack.reset()
		return err
	}
	return nil
}

func (s *Session) run(visit VisitFunc) error {
	var (
		c, cp   heap.Addr
		pending bool
	)
	for {
		if !pending {
			var ok bool
			var err error
			c, cp, ok, err = s.next()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		first, self, err := s.descend(c, cp, visit)
		if err != nil {
			return err
		}
		// Descend straight into the first child; the parent's remaining
		// children, if any, are already on the stack.
		pending = !first.IsNil()
		if pending {
			cp, c = self, first
		}
	}
}

// next pops the next closure to descend into. Fresh items are removed and
// returned with their recorded parent. Other items produce their next child
// through their cursor; an item is dropped before its final child is
// returned.
func (s *Session) next() (c, parent heap.Addr, ok bool, err error) {
	for {
		it := s.stack.peek()
		if it == nil {
			return heap.Nil, heap.Nil, false, nil
		}
		if it.cur.mode == cursorFresh {
			c, parent = it.node, it.cur.parent
			s.stack.drop()
			return c, parent, true, nil
		}

		child, adv, err := s.resume(it)
		if err != nil {
			return heap.Nil, heap.Nil, false, err
		}
		node := it.node
		if adv != advanceMore {
			s.stack.drop()
		}
		if adv == advanceDone || child.IsNil() {
			continue
		}
		return child, node, true, nil
	}
}

// maxIndirections bounds a chain of static indirections; a longer chain
// can only be a cycle.
const maxIndirections = 64

// descend classifies c, visits it and expands it. It returns the first
// child to descend into next, or Nil when control goes back to the stack,
// along with the canonical address of the closure actually visited.
func (s *Session) descend(c, parent heap.Addr, visit VisitFunc) (first, self heap.Addr, err error) {
	var cl *heap.Closure
	hops := 0
	for {
		c = c.StripTag()
		if c == heap.Nil {
			return heap.Nil, heap.Nil, nil
		}
		var ok bool
		cl, ok = s.heap.Lookup(c)
		if !ok {
			return heap.Nil, heap.Nil, danglingPointer("descend", c, parent)
		}
		if err := checkShape(c, cl); err != nil {
			return heap.Nil, heap.Nil, err
		}

		switch cl.Kind {
		case heap.TSO:
			if cl.Thread.WhatNext.Finished() {
				s.stats.Skipped++
				return heap.Nil, heap.Nil, nil
			}
		case heap.IndStatic:
			hops++
			if hops > maxIndirections {
				return heap.Nil, heap.Nil, badClosure("descend through a static indirection cycle", c, cl.Kind)
			}
			c = cl.Ptr(0)
			continue
		case heap.ConstrNoCAF:
			s.stats.Skipped++
			return heap.Nil, heap.Nil, nil
		case heap.ThunkStatic:
			if cl.SRT == heap.Nil {
				s.stats.Skipped++
				return heap.Nil, heap.Nil, nil
			}
		case heap.FunStatic:
			if cl.SRT == heap.Nil && cl.NPtrs == 0 {
				s.stats.Skipped++
				return heap.Nil, heap.Nil, nil
			}
		}
		break
	}

	s.stats.Visited++
	if !visit(c, parent) {
		return heap.Nil, heap.Nil, nil
	}
	s.stats.Accepted++

	switch cl.Kind {
	case heap.Stack:
		return heap.Nil, c, s.pushFrames(c, cl.Frames)

	case heap.TSO:
		t := cl.Thread
		for _, a := range []heap.Addr{t.StackObj, t.BlockedExceptions, t.BQ, t.TRec} {
			if err := s.pushClosure(a, c); err != nil {
				return heap.Nil, c, err
			}
		}
		if t.WhyBlocked.BlockInfoIsClosure() {
			return heap.Nil, c, s.pushClosure(t.BlockInfo, c)
		}
		return heap.Nil, heap.Nil, nil

	case heap.BlockingQueue:
		for i := 0; i < 3; i++ {
			if err := s.pushClosure(cl.Ptr(i), c); err != nil {
				return heap.Nil, c, err
			}
		}
		return heap.Nil, heap.Nil, nil

	case heap.PAP, heap.AP:
		return heap.Nil, c, s.pushPAP(c, cl)

	case heap.APStack:
		if err := s.pushClosure(cl.Fun, c); err != nil {
			return heap.Nil, c, err
		}
		return heap.Nil, c, s.pushFrames(c, cl.Frames)
	}

	first, err = s.pushChildren(c, cl)
	return first, c, err
}

// checkShape rejects closures whose fields the walker would index past.
func checkShape(c heap.Addr, cl *heap.Closure) error {
	switch {
	case !cl.Kind.Valid(), cl.Kind.IsFrame():
		return badClosure("classify", c, cl.Kind)
	case cl.NPtrs < 0, cl.NPtrs > len(cl.Payload), cl.NPtrs < cl.Kind.Fields():
		return badClosure("classify", c, cl.Kind)
	case cl.Kind == heap.TSO && cl.Thread == nil:
		return badClosure("classify", c, cl.Kind)
	case cl.Kind == heap.TRecChunk && cl.TRec == nil:
		return badClosure("classify", c, cl.Kind)
	}
	return nil
}
