// ABOUTME: Closure addresses and pointer tags
// ABOUTME: Separates tagged fast-path pointers from canonical closure addresses

package heap

import (
	"fmt"
	"strconv"
)

// Word is one raw payload slot. Pointer slots hold an Addr.
type Word uint64

// Addr is the address of a closure, possibly carrying a pointer tag in its
// low bits. Only the untagged form identifies a closure.
type Addr uint64

// Nil marks an absent pointer field. It is never looked up.
const Nil Addr = 0

// TagBits is the number of low address bits used for pointer tags.
// Closures are word aligned, so these bits are free on a 64-bit heap.
const TagBits = 3

const tagMask = Addr(1)<<TagBits - 1

// Tag returns the pointer tag carried by a.
func (a Addr) Tag() uint8 {
	return uint8(a & tagMask)
}

// StripTag returns the canonical closure address.
func (a Addr) StripTag() Addr {
	return a &^ tagMask
}

// WithTag returns a with its tag replaced by t.
func (a Addr) WithTag(t uint8) Addr {
	return a.StripTag() | Addr(t)&tagMask
}

// IsNil reports whether a, ignoring its tag, is the Nil address.
func (a Addr) IsNil() bool {
	return a.StripTag() == Nil
}

// String formats the address the way the dump log does.
func (a Addr) String() string {
	return fmt.Sprintf("0x%x", uint64(a))
}

// ParseAddr parses a hexadecimal address with or without a 0x prefix.
func ParseAddr(s string) (Addr, error) {
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	if s == "" {
		return Nil, fmt.Errorf("empty address")
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return Nil, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return Addr(v), nil
}

// Ptr interprets a payload word as a closure pointer.
func (w Word) Ptr() Addr {
	return Addr(w)
}

// MarshalText encodes the address in its String form, so addresses can key
// JSON objects.
func (a Addr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses an address written by MarshalText.
func (a *Addr) UnmarshalText(b []byte) error {
	v, err := ParseAddr(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
