// ABOUTME: Heap closure shapes: payloads, frames, threads and transaction records
// ABOUTME: One Closure struct carries the fields every kind needs, read only by the walker

package heap

// Closure is one heap-resident value. Which fields are meaningful depends on
// Kind; fields a kind does not use are left zero.
//
// Payload holds the closure's payload slots, the first NPtrs of which are
// pointers. Kinds with named fields keep them in Payload in a fixed order:
//
//	MUT_VAR               [var]
//	THUNK_SELECTOR        [selectee]
//	BLACKHOLE, IND(_STATIC) [indirectee]
//	MVAR                  [head, tail, value]
//	WEAK                  [key, value, finalizer]
//	BLOCKING_QUEUE        [link, bh, owner]
//
// Pointer arrays hold one pointer per element, so NPtrs == len(Payload).
type Closure struct {
	Kind Kind
	// Info is the info-table label used when reporting the closure.
	Info string

	Payload []Word
	NPtrs   int

	// SRT is the static reference table of a function, thunk or frame, or
	// Nil when it has none.
	SRT Addr

	// FunType and Args give the argument layout of function and BCO
	// closures. Args is only consulted for ArgGen, ArgGenBig and, on BCOs,
	// for the BCO's own bitmap.
	FunType FunType
	Args    Bitmap

	// Fun is the function applied by an AP, PAP or AP_STACK.
	Fun Addr
	// Frames is the frame sequence of a STACK, from the stack pointer to
	// the bottom, or the captured frames of an AP_STACK.
	Frames []Frame

	Thread *Thread
	TRec   *TRecLog
}

// Ptr returns pointer field i.
func (c *Closure) Ptr(i int) Addr {
	return c.Payload[i].Ptr()
}

// Ptrs returns the pointer prefix of the payload.
func (c *Closure) Ptrs() []Word {
	return c.Payload[:c.NPtrs]
}

// SizeW returns the closure's size in words, header included.
func (c *Closure) SizeW() uint64 {
	n := uint64(1 + len(c.Payload))
	switch c.Kind {
	case AP, PAP:
		n += 2 // arity/n_args and fun
	case APStack:
		n += 2
		for i := range c.Frames {
			n += c.Frames[i].SizeW()
		}
	case Stack:
		n += 3
		for i := range c.Frames {
			n += c.Frames[i].SizeW()
		}
	case TSO:
		n += 16
	case TRecChunk:
		if c.TRec != nil {
			n += 2 + 3*uint64(len(c.TRec.Entries))
		}
	case MutArrPtrsClean, MutArrPtrsDirty, MutArrPtrsFrozenClean, MutArrPtrsFrozenDirty,
		SmallMutArrPtrsClean, SmallMutArrPtrsDirty, SmallMutArrPtrsFrozenClean, SmallMutArrPtrsFrozenDirty,
		ArrWords:
		n++
	}
	return n
}

// Frame is one activation record inside a STACK or AP_STACK.
type Frame struct {
	Kind Kind

	// Updatee is the closure an UPDATE_FRAME will overwrite.
	Updatee Addr

	// Layout describes Payload for bitmap frames (small and RET_BIG).
	Layout  Bitmap
	Payload []Word
	SRT     Addr

	// Fun is the function of a RET_FUN frame; its argument layout describes
	// Payload.
	Fun Addr
	// BCO is the byte-code object of a RET_BCO frame; its bitmap describes
	// Payload.
	BCO Addr
}

// SizeW returns the frame's size in words, return address included.
func (f *Frame) SizeW() uint64 {
	n := uint64(1 + len(f.Payload))
	switch f.Kind {
	case UpdateFrame:
		n++
	case RetFun:
		n += 2
	case RetBCO:
		n++
	}
	return n
}

// WhatNext is a thread's run state.
type WhatNext uint8

const (
	ThreadRunGHC WhatNext = iota + 1
	ThreadInterpret
	ThreadKilled
	ThreadComplete
)

// Finished reports whether the thread will never run again.
func (w WhatNext) Finished() bool {
	return w == ThreadKilled || w == ThreadComplete
}

// WhyBlocked is the reason a thread is not runnable.
type WhyBlocked uint8

const (
	NotBlocked WhyBlocked = iota
	BlockedOnMVar
	BlockedOnMVarRead
	BlockedOnBlackHole
	BlockedOnRead
	BlockedOnWrite
	BlockedOnDelay
	BlockedOnSTM
	BlockedOnDoProc
	BlockedOnCCall
	BlockedOnCCallInterruptible
	BlockedOnMsgThrowTo
	ThreadMigrating
)

// BlockInfoIsClosure reports whether BlockInfo points at a heap closure for
// this blocking reason.
func (w WhyBlocked) BlockInfoIsClosure() bool {
	switch w {
	case BlockedOnMVar, BlockedOnMVarRead, BlockedOnBlackHole, BlockedOnMsgThrowTo:
		return true
	}
	return false
}

// Thread is the machine state of a TSO closure.
type Thread struct {
	ID         uint64
	WhatNext   WhatNext
	WhyBlocked WhyBlocked

	StackObj          Addr
	BlockedExceptions Addr
	BQ                Addr
	TRec              Addr
	// BlockInfo is the closure the thread is blocked on, when WhyBlocked
	// says it is one.
	BlockInfo Addr
}

// TRecLog is one chunk of a transaction log.
type TRecLog struct {
	Prev    Addr
	Entries []TRecEntry
}

// TRecEntry records one TVar read or write inside a transaction.
type TRecEntry struct {
	TVar     Addr
	Expected Addr
	New      Addr
}
