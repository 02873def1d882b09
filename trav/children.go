// ABOUTME: Per-kind child enumeration for closures expanded through a cursor
// ABOUTME: Produces the first child directly and leaves a resumable work item for the rest

package trav

import "github.com/prateek/heaptrav/heap"

// advance is the outcome of resuming a cursor.
type advance uint8

const (
	// advanceDone: no children left; the item must be dropped.
	advanceDone advance = iota
	// advanceMore: a child was produced and more may follow.
	advanceMore
	// advanceLast: a child was produced and it is the final one.
	advanceLast
)

// pushChildren classifies cl and returns its first child. When children
// remain after the first, a work item holding the cursor is pushed before
// returning. A closure without children returns Nil and pushes nothing.
//
// Kinds expanded eagerly by the driver (STACK, TSO, AP, PAP, AP_STACK,
// BLOCKING_QUEUE) and kinds short-circuited before the visit (IND_STATIC)
// never reach this function.
func (s *Session) pushChildren(c heap.Addr, cl *heap.Closure) (heap.Addr, error) {
	it := workItem{node: c, cl: cl}
	var first heap.Addr

	switch cl.Kind {
	case heap.Constr0_1, heap.Constr0_2, heap.ArrWords, heap.CompactNFData:
		return heap.Nil, nil

	case heap.MutVarClean, heap.MutVarDirty, heap.ThunkSelector,
		heap.Blackhole, heap.Ind, heap.Constr1_0, heap.Constr1_1:
		return cl.Ptr(0), nil

	case heap.Constr2_0, heap.MVarClean, heap.MVarDirty, heap.Weak:
		first = cl.Ptr(0)
		if !anyField(cl, 1, cl.Kind.Fields()) {
			return first, nil
		}
		it.cur = stepCursor(1)

	case heap.TVar, heap.Constr, heap.ConstrNoCAF, heap.Prim, heap.MutPrim, heap.BCO,
		heap.MutArrPtrsClean, heap.MutArrPtrsDirty,
		heap.MutArrPtrsFrozenClean, heap.MutArrPtrsFrozenDirty,
		heap.SmallMutArrPtrsClean, heap.SmallMutArrPtrsDirty,
		heap.SmallMutArrPtrsFrozenClean, heap.SmallMutArrPtrsFrozenDirty:
		it.cur = ptrsCursor(cl.Ptrs(), heap.Nil)
		var ok bool
		if first, ok = it.cur.next(); !ok {
			return heap.Nil, nil
		}

	case heap.Fun, heap.FunStatic, heap.Fun2_0,
		heap.Thunk, heap.Thunk2_0:
		it.cur = ptrsCursor(cl.Ptrs(), cl.SRT)
		var ok bool
		if first, ok = it.cur.next(); !ok {
			return heap.Nil, nil
		}

	case heap.Fun1_0, heap.Fun1_1, heap.Thunk1_0, heap.Thunk1_1:
		first = cl.Ptr(0)
		it.cur = srtCursor(cl.SRT)

	case heap.Fun0_1, heap.Fun0_2, heap.Thunk0_1, heap.Thunk0_2, heap.ThunkStatic:
		if cl.SRT == heap.Nil {
			return heap.Nil, nil
		}
		return cl.SRT, nil

	case heap.TRecChunk:
		first = cl.TRec.Prev
		if len(cl.TRec.Entries) == 0 {
			return first, nil
		}
		it.cur = stepCursor(0)

	case heap.PAP, heap.AP, heap.APStack, heap.TSO, heap.Stack,
		heap.BlockingQueue, heap.IndStatic, heap.WhiteHole,
		heap.RetBCO, heap.RetSmall, heap.RetBig, heap.RetFun,
		heap.UpdateFrame, heap.CatchFrame, heap.UnderflowFrame, heap.StopFrame,
		heap.AtomicallyFrame, heap.CatchRetryFrame, heap.CatchSTMFrame,
		heap.Invalid:
		return heap.Nil, badClosure("child enumeration", c, cl.Kind)

	default:
		return heap.Nil, badClosure("child enumeration", c, cl.Kind)
	}

	if it.cur.exhausted() {
		return first, nil
	}
	if err := s.stack.push(it); err != nil {
		return heap.Nil, err
	}
	return first, nil
}

// anyField reports whether a named field in [from, to) is set.
func anyField(cl *heap.Closure, from, to int) bool {
	for i := from; i < to; i++ {
		if !cl.Ptr(i).IsNil() {
			return true
		}
	}
	return false
}

// resume produces the next child of a work item whose cursor is not fresh.
func (s *Session) resume(it *workItem) (heap.Addr, advance, error) {
	switch it.cur.mode {
	case cursorPtrs, cursorSRT:
		a, ok := it.cur.next()
		if !ok {
			return heap.Nil, advanceDone, nil
		}
		if it.cur.exhausted() {
			return a, advanceLast, nil
		}
		return a, advanceMore, nil

	case cursorStep:
		return resumeStep(it)
	}
	return heap.Nil, advanceDone, badClosure("resume", it.node, it.cl.Kind)
}

// resumeStep walks the named fields of fixed-shape kinds and the entries of
// a transaction record chunk.
func resumeStep(it *workItem) (heap.Addr, advance, error) {
	cl := it.cl
	switch cl.Kind {
	case heap.Constr2_0, heap.MVarClean, heap.MVarDirty, heap.Weak:
		arity := uint32(cl.Kind.Fields())
		if it.cur.step >= arity {
			return heap.Nil, advanceDone, nil
		}
		a := cl.Ptr(int(it.cur.step))
		it.cur.step++
		if it.cur.step == arity {
			return a, advanceLast, nil
		}
		return a, advanceMore, nil

	case heap.TRecChunk:
		// step counts tvar, expected and new of every entry in turn.
		entries := cl.TRec.Entries
		entry, field := it.cur.step/3, it.cur.step%3
		if entry >= uint32(len(entries)) {
			return heap.Nil, advanceDone, nil
		}
		e := &entries[entry]
		var a heap.Addr
		switch field {
		case 0:
			a = e.TVar
		case 1:
			a = e.Expected
		default:
			a = e.New
		}
		it.cur.step++
		if it.cur.step == 3*uint32(len(entries)) {
			return a, advanceLast, nil
		}
		return a, advanceMore, nil
	}
	return heap.Nil, advanceDone, badClosure("resume", it.node, cl.Kind)
}
