// ABOUTME: Tests for the JSON snapshot parser
// ABOUTME: Validates closure decoding, root ordering and error handling

package heapdump

import (
	"strings"
	"testing"

	"github.com/prateek/heaptrav/heap"
)

const jsonSnapshot = `{
	"capabilities": 1,
	"closures": [
		{"addr": "0x1000", "kind": "CONSTR_2_0", "info": "Data.Map.Bin", "ptrs": ["0x1010", "0x1020"]},
		{"addr": "0x1010", "kind": "CONSTR_0_2", "info": "GHC.Types.I#", "words": [7, 9]},
		{"addr": "0x1020", "kind": "PAP", "info": "pap", "fun": "0x1030", "slots": ["0x1010", "0x2a"]},
		{"addr": "0x1030", "kind": "FUN", "info": "f", "fun_type": "ARG_PN", "srt": "0x1040"},
		{"addr": "0x1040", "kind": "CONSTR_NOCAF", "info": "static"},
		{"addr": "0x2000", "kind": "TSO", "info": "tso", "thread": {
			"id": 3, "what_next": "run", "why_blocked": "mvar",
			"stack": "0x2010", "block_info": "0x1000"}},
		{"addr": "0x2010", "kind": "STACK", "info": "stack", "frames": [
			{"kind": "UPDATE_FRAME", "updatee": "0x1000"},
			{"kind": "RET_SMALL", "layout": "PN", "slots": ["0x1010", "0x5"], "srt": "0x1040"},
			{"kind": "STOP_FRAME"}
		]}
	],
	"roots": {
		"stable_names": ["0x1000"],
		"stable_ptrs": ["0x1020"],
		"generations": [["0x2000"], []]
	}
}`

func TestJSONParse(t *testing.T) {
	parser := &JSONParser{}
	snap, err := parser.Parse(strings.NewReader(jsonSnapshot))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if snap.Heap.Len() != 7 {
		t.Errorf("Expected 7 closures, got %d", snap.Heap.Len())
	}

	bin, ok := snap.Heap.Lookup(0x1000)
	if !ok {
		t.Fatal("Closure 0x1000 not found")
	}
	if bin.Kind != heap.Constr2_0 {
		t.Errorf("Expected CONSTR_2_0, got %s", bin.Kind)
	}
	if bin.Info != "Data.Map.Bin" {
		t.Errorf("Expected info Data.Map.Bin, got %s", bin.Info)
	}
	if bin.NPtrs != 2 || bin.Ptr(0) != 0x1010 || bin.Ptr(1) != 0x1020 {
		t.Errorf("Unexpected pointers %v", bin.Ptrs())
	}

	box, _ := snap.Heap.Lookup(0x1010)
	if box.NPtrs != 0 || len(box.Payload) != 2 || box.Payload[1] != 9 {
		t.Errorf("Unexpected non-pointer payload %v", box.Payload)
	}

	pap, _ := snap.Heap.Lookup(0x1020)
	if pap.Fun != 0x1030 || len(pap.Payload) != 2 || pap.Payload[1] != 0x2a {
		t.Errorf("Unexpected PAP %+v", pap)
	}

	fun, _ := snap.Heap.Lookup(0x1030)
	if fun.FunType != heap.ArgPN || fun.SRT != 0x1040 {
		t.Errorf("Unexpected function %+v", fun)
	}

	tso, _ := snap.Heap.Lookup(0x2000)
	if tso.Thread == nil {
		t.Fatal("TSO without thread state")
	}
	if tso.Thread.WhyBlocked != heap.BlockedOnMVar || tso.Thread.BlockInfo != 0x1000 {
		t.Errorf("Unexpected thread %+v", tso.Thread)
	}

	stack, _ := snap.Heap.Lookup(0x2010)
	if len(stack.Frames) != 3 {
		t.Fatalf("Expected 3 frames, got %d", len(stack.Frames))
	}
	ret := stack.Frames[1]
	if ret.Kind != heap.RetSmall || ret.Layout.String() != "PN" || ret.SRT != 0x1040 {
		t.Errorf("Unexpected frame %+v", ret)
	}

	want := []heap.Addr{0x1000, 0x1020, 0x2000}
	got := snap.Roots.All()
	if len(got) != len(want) {
		t.Fatalf("Expected roots %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Root %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if len(snap.Roots.Sources) != 4 {
		t.Errorf("Expected 4 root sources, got %d", len(snap.Roots.Sources))
	}
}

func TestJSONCanParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{name: "JSON object", content: `{"closures": [], "roots": {}}`, want: true},
		{name: "leading whitespace", content: "\n\t {\"closures\": []}", want: true},
		{name: "JSON array", content: `[1, 2]`, want: false},
		{name: "non-JSON", content: `not json at all`, want: false},
		{name: "YAML", content: "closures:\n  - addr: 0x10\n", want: false},
		{name: "empty", content: ``, want: false},
	}

	parser := &JSONParser{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parser.CanParse(strings.NewReader(tt.content)); got != tt.want {
				t.Errorf("CanParse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMalformedJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid syntax", content: `{"closures": [}`},
		{name: "missing address", content: `{"closures": [{"kind": "CONSTR"}]}`},
		{name: "tagged address", content: `{"closures": [{"addr": "0x1001", "kind": "CONSTR"}]}`},
		{name: "unknown kind", content: `{"closures": [{"addr": "0x10", "kind": "NOT_A_KIND"}]}`},
		{name: "unknown field", content: `{"closures": [{"addr": "0x10", "kind": "CONSTR", "pointers": []}]}`},
		{name: "bad address", content: `{"closures": [{"addr": "zz", "kind": "CONSTR"}]}`},
		{name: "bad layout", content: `{"closures": [{"addr": "0x10", "kind": "FUN", "args": "PXN"}]}`},
		{name: "missing fields", content: `{"closures": [{"addr": "0x10", "kind": "CONSTR_2_0", "ptrs": ["0x20"]}]}`},
		{name: "TSO without thread", content: `{"closures": [{"addr": "0x10", "kind": "TSO"}]}`},
		{name: "frame on heap", content: `{"closures": [{"addr": "0x10", "kind": "UPDATE_FRAME"}]}`},
		{name: "unknown thread state", content: `{"closures": [{"addr": "0x10", "kind": "TSO", "thread": {"what_next": "sleeping"}}]}`},
		{name: "wrong type", content: `{"closures": "not an array"}`},
	}

	parser := &JSONParser{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parser.Parse(strings.NewReader(tt.content)); err == nil {
				t.Error("Expected error for malformed snapshot")
			}
		})
	}
}

func TestJSONDefaultsCapabilities(t *testing.T) {
	snap, err := (&JSONParser{}).Parse(strings.NewReader(`{"closures": []}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if snap.Capabilities != 1 {
		t.Errorf("Expected 1 capability, got %d", snap.Capabilities)
	}
	if snap.Roots.Len() != 0 {
		t.Errorf("Expected no roots, got %d", snap.Roots.Len())
	}
}

func TestOpenSelectsJSON(t *testing.T) {
	snap, err := Open(strings.NewReader(jsonSnapshot))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if snap.Heap.Len() != 7 {
		t.Errorf("Expected 7 closures, got %d", snap.Heap.Len())
	}
}
