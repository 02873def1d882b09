// ABOUTME: Heap interface and in-memory implementation
// ABOUTME: Provides closure lookup by address and named root sources

package heap

import (
	"fmt"
	"sort"
	"sync"
)

// Heap gives read access to the closures of a paused heap.
type Heap interface {
	// Lookup returns the closure at the untagged address a.
	Lookup(a Addr) (*Closure, bool)
}

// MemHeap is an in-memory implementation of Heap
type MemHeap struct {
	mu       sync.RWMutex
	closures map[Addr]*Closure
}

// NewMemHeap creates a new in-memory heap
func NewMemHeap() *MemHeap {
	return &MemHeap{
		closures: make(map[Addr]*Closure),
	}
}

// Add stores c at address a, replacing any closure already there.
func (h *MemHeap) Add(a Addr, c *Closure) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closures[a.StripTag()] = c
}

// Lookup retrieves the closure at a, ignoring any pointer tag.
func (h *MemHeap) Lookup(a Addr) (*Closure, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.closures[a.StripTag()]
	return c, ok
}

// Len returns the number of closures
func (h *MemHeap) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.closures)
}

// ForEach calls fn for every closure in ascending address order.
func (h *MemHeap) ForEach(fn func(Addr, *Closure)) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	addrs := make([]Addr, 0, len(h.closures))
	for a := range h.closures {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	for _, a := range addrs {
		fn(a, h.closures[a])
	}
}

// Validate checks that every closure has a known kind, consistent pointer
// counts and well-formed bitmaps. It does not check that pointers resolve;
// the walker reports dangling pointers when it reaches them.
func (h *MemHeap) Validate() error {
	var err error
	h.ForEach(func(a Addr, c *Closure) {
		if err != nil {
			return
		}
		if e := validateClosure(c); e != nil {
			err = fmt.Errorf("closure %s: %w", a, e)
		}
	})
	return err
}

func validateClosure(c *Closure) error {
	if !c.Kind.Valid() {
		return fmt.Errorf("invalid kind %s", c.Kind)
	}
	if c.Kind.IsFrame() {
		return fmt.Errorf("frame kind %s outside a stack", c.Kind)
	}
	if c.NPtrs < 0 || c.NPtrs > len(c.Payload) {
		return fmt.Errorf("%s has %d pointers in a payload of %d", c.Kind, c.NPtrs, len(c.Payload))
	}
	if n := c.Kind.Fields(); len(c.Payload) < n || c.NPtrs < n {
		return fmt.Errorf("%s needs %d pointer fields, has %d", c.Kind, n, c.NPtrs)
	}
	if c.FunType >= numFunTypes {
		return fmt.Errorf("%s has unknown function type %d", c.Kind, uint8(c.FunType))
	}
	if err := c.Args.Validate(); err != nil {
		return fmt.Errorf("%s arguments: %w", c.Kind, err)
	}
	for i := range c.Frames {
		f := &c.Frames[i]
		if !f.Kind.IsFrame() {
			return fmt.Errorf("frame %d has non-frame kind %s", i, f.Kind)
		}
		if err := f.Layout.Validate(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if int(f.Layout.Size) > len(f.Payload) {
			return fmt.Errorf("frame %d layout covers %d slots, payload has %d", i, f.Layout.Size, len(f.Payload))
		}
	}
	if c.Kind == TSO && c.Thread == nil {
		return fmt.Errorf("TSO without thread state")
	}
	if c.Kind == TRecChunk && c.TRec == nil {
		return fmt.Errorf("TREC_CHUNK without entries")
	}
	return nil
}

// RootSource names where a group of roots came from.
type RootSource struct {
	Name  string
	Addrs []Addr
}

// Standard root source names, in the order the walker seeds them.
const (
	RootsStableNames = "stable names"
	RootsStablePtrs  = "stable pointers"
)

// GenerationRoots names the thread list of generation g.
func GenerationRoots(g int) string {
	return fmt.Sprintf("generation %d", g)
}

// RootSet represents the roots of a heap, grouped by source
type RootSet struct {
	Sources []RootSource
}

// Add appends addrs to the named source, creating it at the end if needed.
func (r *RootSet) Add(name string, addrs ...Addr) {
	for i := range r.Sources {
		if r.Sources[i].Name == name {
			r.Sources[i].Addrs = append(r.Sources[i].Addrs, addrs...)
			return
		}
	}
	r.Sources = append(r.Sources, RootSource{Name: name, Addrs: append([]Addr(nil), addrs...)})
}

// All returns every root address in source order.
func (r RootSet) All() []Addr {
	var out []Addr
	for _, s := range r.Sources {
		out = append(out, s.Addrs...)
	}
	return out
}

// Len returns the total number of roots
func (r RootSet) Len() int {
	n := 0
	for _, s := range r.Sources {
		n += len(s.Addrs)
	}
	return n
}
