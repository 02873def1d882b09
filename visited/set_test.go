// ABOUTME: Tests for the open-addressing visited set
// ABOUTME: Covers tag folding, capacity rounding, overflow and reset

package visited

import (
	"errors"
	"testing"

	"github.com/prateek/heaptrav/heap"
)

func TestSeen(t *testing.T) {
	s := New(16)

	seen, err := s.Seen(0x1000)
	if err != nil || seen {
		t.Fatalf("First Seen = %v, %v; want false, nil", seen, err)
	}
	seen, err = s.Seen(0x1000)
	if err != nil || !seen {
		t.Fatalf("Second Seen = %v, %v; want true, nil", seen, err)
	}
	// A tagged pointer names the same closure.
	seen, err = s.Seen(0x1003)
	if err != nil || !seen {
		t.Fatalf("Tagged Seen = %v, %v; want true, nil", seen, err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	if !s.Contains(0x1005) || s.Contains(0x2000) {
		t.Error("Contains disagrees with Seen")
	}
}

func TestSeenRejectsNil(t *testing.T) {
	s := New(4)
	if _, err := s.Seen(heap.Nil); err == nil {
		t.Error("Expected an error for the nil address")
	}
	if _, err := s.Seen(0x7); err == nil {
		t.Error("Expected an error for a tagged nil address")
	}
	if s.Contains(heap.Nil) {
		t.Error("Contains(Nil) should be false")
	}
}

func TestCapacityRounding(t *testing.T) {
	tests := []struct{ in, want int }{
		{1, 1},
		{3, 4},
		{4, 4},
		{1000, 1024},
	}
	for _, tt := range tests {
		if got := New(tt.in).Cap(); got != tt.want {
			t.Errorf("New(%d).Cap() = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFull(t *testing.T) {
	s := New(4)
	for i := 1; i <= 4; i++ {
		if _, err := s.Seen(heap.Addr(i * 8)); err != nil {
			t.Fatalf("Seen(%d) failed: %v", i*8, err)
		}
	}
	// A known address still answers once the table is full.
	if seen, err := s.Seen(16); err != nil || !seen {
		t.Errorf("Seen on a full set = %v, %v; want true, nil", seen, err)
	}
	_, err := s.Seen(0x1000)
	if !errors.Is(err, ErrFull) {
		t.Errorf("Expected ErrFull, got %v", err)
	}
	if s.Contains(0x1000) {
		t.Error("A rejected address must not be recorded")
	}
}

func TestReset(t *testing.T) {
	s := New(8)
	for i := 1; i <= 5; i++ {
		_, _ = s.Seen(heap.Addr(i * 8))
	}
	s.Reset()
	if s.Len() != 0 || s.Contains(8) {
		t.Error("Reset did not clear the set")
	}
	if seen, _ := s.Seen(8); seen {
		t.Error("Address still seen after Reset")
	}
}

func TestManyAddresses(t *testing.T) {
	const n = 100000
	s := New(2 * n)
	for i := 1; i <= n; i++ {
		if seen, err := s.Seen(heap.Addr(i * 16)); err != nil || seen {
			t.Fatalf("Seen(%d) = %v, %v", i*16, seen, err)
		}
	}
	for i := 1; i <= n; i++ {
		if !s.Contains(heap.Addr(i * 16)) {
			t.Fatalf("Lost address %d", i*16)
		}
	}
	if s.Len() != n {
		t.Errorf("Len() = %d, want %d", s.Len(), n)
	}
}
