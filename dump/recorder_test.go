// ABOUTME: Tests for the walk log recorder
// ABOUTME: Checks line format, root self-edges, unknown closures and error latching

package dump

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/prateek/heaptrav/heap"
	"github.com/prateek/heaptrav/visited"
)

func testHeap() *heap.MemHeap {
	h := heap.NewMemHeap()
	h.Add(0x10, &heap.Closure{Kind: heap.Constr1_0, Info: "Just", Payload: []heap.Word{0x20}, NPtrs: 1})
	h.Add(0x20, &heap.Closure{Kind: heap.Constr0_1, Payload: []heap.Word{7}})
	return h
}

func TestRecorderLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewRecorder(&buf, testHeap(), visited.New(16))

	r.Root(0x11)
	if !r.Visit(0x11, heap.Nil) {
		t.Error("First visit of the root should be accepted")
	}
	if !r.Visit(0x22, 0x11) {
		t.Error("First visit of 0x20 should be accepted")
	}
	if r.Visit(0x20, 0x10) {
		t.Error("Second visit of 0x20 should be refused")
	}
	if !r.Visit(0x30, 0x10) {
		t.Error("First visit of an unknown closure should be accepted")
	}
	if err := r.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	want := strings.Join([]string{
		"### root 0x10",
		"### visit 0x10:16:Just <- 0x10:16:Just",
		"### visit 0x20:16:??? <- 0x10:16:Just",
		"### visit 0x20:16:??? <- 0x10:16:Just",
		"### visit 0x30:0:??? <- 0x10:16:Just",
	}, "\n") + "\n"
	if buf.String() != want {
		t.Errorf("Log =\n%s\nwant\n%s", buf.String(), want)
	}
	if r.Roots() != 1 || r.Visits() != 4 {
		t.Errorf("Roots() = %d, Visits() = %d; want 1, 4", r.Roots(), r.Visits())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestRecorderWriteError(t *testing.T) {
	r := NewRecorder(failingWriter{}, testHeap(), visited.New(16))
	r.Root(0x10)
	r.Visit(0x10, heap.Nil)
	err := r.Flush()
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Flush error = %v, want disk full", err)
	}
	if r.Visit(0x20, 0x10) {
		t.Error("Visits after an error must be refused")
	}
	if r.Err() == nil {
		t.Error("Err() should keep the first error")
	}
}

func TestRecorderVisitedSetFull(t *testing.T) {
	var buf bytes.Buffer
	r := NewRecorder(&buf, testHeap(), visited.New(1))
	if !r.Visit(0x10, heap.Nil) {
		t.Fatal("First visit should be accepted")
	}
	if r.Visit(0x20, 0x10) {
		t.Error("A visit that overflows the set must be refused")
	}
	if !errors.Is(r.Flush(), visited.ErrFull) {
		t.Errorf("Flush error = %v, want ErrFull", r.Err())
	}
	// Once failed, the recorder writes nothing more.
	before := buf.Len()
	r.Root(0x10)
	r.Visit(0x10, heap.Nil)
	_ = r.Flush()
	if buf.Len() != before {
		t.Error("Recorder kept writing after an error")
	}
}
