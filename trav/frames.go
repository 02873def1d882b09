// ABOUTME: Eager expansion of stack-shaped closures and partial applications
// ABOUTME: Decodes small and large layout bitmaps and pushes every pointer slot as a fresh item

package trav

import (
	"fmt"

	"github.com/prateek/heaptrav/heap"
)

// pushClosure seeds a fresh work item for c discovered from parent. Absent
// fields are skipped.
func (s *Session) pushClosure(c, parent heap.Addr) error {
	if c.IsNil() {
		return nil
	}
	s.stats.Pushed++
	return s.stack.push(workItem{node: c, cur: freshCursor(parent)})
}

// pushSmallBitmap pushes the pointer slots among the first size slots of
// payload. bits holds one bit per slot, least significant first.
func (s *Session) pushSmallBitmap(payload []heap.Word, size uint32, bits heap.Word, parent heap.Addr) error {
	for i := uint32(0); i < size; i++ {
		if bits&1 == 0 {
			if err := s.pushClosure(payload[i].Ptr(), parent); err != nil {
				return err
			}
		}
		bits >>= 1
	}
	return nil
}

// pushLargeBitmap pushes the pointer slots among the first size slots of
// payload, reading a new bitmap word every heap.WordBits slots.
func (s *Session) pushLargeBitmap(payload []heap.Word, b heap.Bitmap, size uint32, parent heap.Addr) error {
	if size == 0 {
		return nil
	}
	w := 0
	bits := b.Words[w]
	for i := uint32(0); i < size; {
		if bits&1 == 0 {
			if err := s.pushClosure(payload[i].Ptr(), parent); err != nil {
				return err
			}
		}
		i++
		if i%heap.WordBits == 0 {
			w++
			if i < size {
				bits = b.Words[w]
			}
		} else {
			bits >>= 1
		}
	}
	return nil
}

// pushBitmap pushes the pointer slots of payload described by the first size
// slots of b, using the single-word walk when b fits one word.
func (s *Session) pushBitmap(payload []heap.Word, b heap.Bitmap, size uint32, owner heap.Addr, k heap.Kind) error {
	if size > uint32(len(payload)) || b.Validate() != nil || uint32(len(b.Words))*heap.WordBits < size {
		return fmt.Errorf("%w: layout of %d slots over payload of %d in %s at %s",
			ErrBadClosure, size, len(payload), k, owner)
	}
	if size <= heap.WordBits {
		var bits heap.Word
		if len(b.Words) > 0 {
			bits = b.Words[0]
		}
		return s.pushSmallBitmap(payload, size, bits, owner)
	}
	return s.pushLargeBitmap(payload, b, size, owner)
}

// lookupFun resolves the function of an AP, PAP or RET_FUN frame.
func (s *Session) lookupFun(fun, owner heap.Addr) (*heap.Closure, error) {
	cl, ok := s.heap.Lookup(fun.StripTag())
	if !ok {
		return nil, danglingPointer("function lookup", fun, owner)
	}
	if !cl.Kind.IsFun() && cl.Kind != heap.BCO {
		return nil, badClosure("function lookup", fun.StripTag(), cl.Kind)
	}
	return cl, nil
}

// argLayout returns the layout of the arguments of fun, found at addr. An
// unknown function type is a classification failure.
func argLayout(fun *heap.Closure, addr heap.Addr) (heap.Bitmap, error) {
	switch fun.FunType {
	case heap.ArgGen, heap.ArgGenBig, heap.ArgBCO:
		return fun.Args, nil
	}
	packed, ok := heap.StdArgBitmap(fun.FunType)
	if !ok {
		return heap.Bitmap{}, fmt.Errorf("%w in function lookup: unknown function type %d at %s",
			ErrBadClosure, uint8(fun.FunType), addr.StripTag())
	}
	return heap.SmallBitmap(packed), nil
}

// pushPAP pushes the function of a partial application and the pointer
// arguments among its payload, laid out as the function says.
func (s *Session) pushPAP(pap heap.Addr, cl *heap.Closure) error {
	if err := s.pushClosure(cl.Fun, pap); err != nil {
		return err
	}
	fun, err := s.lookupFun(cl.Fun, pap)
	if err != nil {
		return err
	}
	if fun.FunType == heap.ArgBCO && fun.Kind != heap.BCO {
		return badClosure("partial application", cl.Fun.StripTag(), fun.Kind)
	}
	layout, err := argLayout(fun, cl.Fun)
	if err != nil {
		return err
	}
	nArgs := uint32(len(cl.Payload))
	if nArgs > layout.Size {
		return fmt.Errorf("%w: %d arguments applied to a function taking %d in %s at %s",
			ErrBadClosure, nArgs, layout.Size, cl.Kind, pap)
	}
	return s.pushBitmap(cl.Payload, layout, nArgs, pap, cl.Kind)
}

// pushFrames pushes every pointer held by frames, owned by the STACK or
// AP_STACK closure owner.
func (s *Session) pushFrames(owner heap.Addr, frames []heap.Frame) error {
	for i := range frames {
		f := &frames[i]
		switch f.Kind {
		case heap.UpdateFrame:
			if err := s.pushClosure(f.Updatee, owner); err != nil {
				return err
			}
			continue

		case heap.UnderflowFrame, heap.StopFrame, heap.CatchFrame,
			heap.CatchSTMFrame, heap.CatchRetryFrame, heap.AtomicallyFrame,
			heap.RetSmall, heap.RetBig:
			if err := s.pushBitmap(f.Payload, f.Layout, f.Layout.Size, owner, f.Kind); err != nil {
				return err
			}

		case heap.RetBCO:
			if err := s.pushClosure(f.BCO, owner); err != nil {
				return err
			}
			bco, ok := s.heap.Lookup(f.BCO.StripTag())
			if !ok {
				return danglingPointer("RET_BCO frame", f.BCO, owner)
			}
			if bco.Kind != heap.BCO {
				return badClosure("RET_BCO frame", f.BCO.StripTag(), bco.Kind)
			}
			if err := s.pushBitmap(f.Payload, bco.Args, bco.Args.Size, owner, f.Kind); err != nil {
				return err
			}
			continue

		case heap.RetFun:
			if err := s.pushClosure(f.Fun, owner); err != nil {
				return err
			}
			fun, err := s.lookupFun(f.Fun, owner)
			if err != nil {
				return err
			}
			layout, err := argLayout(fun, f.Fun)
			if err != nil {
				return err
			}
			if err := s.pushBitmap(f.Payload, layout, layout.Size, owner, f.Kind); err != nil {
				return err
			}

		default:
			return badClosure("stack frame", owner, f.Kind)
		}

		if err := s.pushClosure(f.SRT, owner); err != nil {
			return err
		}
	}
	return nil
}
