// ABOUTME: Serialized snapshot schema shared by the JSON and YAML parsers
// ABOUTME: Converts decoded records into heap closures, frames, threads and roots

package heapdump

import (
	"fmt"

	"github.com/prateek/heaptrav/heap"
)

// document is the on-disk snapshot layout.
type document struct {
	Capabilities int          `json:"capabilities" yaml:"capabilities"`
	Closures     []closureRec `json:"closures" yaml:"closures"`
	Roots        rootsRec     `json:"roots" yaml:"roots"`
}

type rootsRec struct {
	StableNames []heap.Addr   `json:"stable_names" yaml:"stable_names"`
	StablePtrs  []heap.Addr   `json:"stable_ptrs" yaml:"stable_ptrs"`
	Generations [][]heap.Addr `json:"generations" yaml:"generations"`
}

// closureRec holds every field any kind may use. Ptrs and Words form the
// payload: pointers first, then raw words. Slots holds bitmap-described
// payloads (AP and PAP arguments), where pointers and raw words interleave.
type closureRec struct {
	Addr  heap.Addr   `json:"addr" yaml:"addr"`
	Kind  string      `json:"kind" yaml:"kind"`
	Info  string      `json:"info" yaml:"info"`
	Ptrs  []heap.Addr `json:"ptrs" yaml:"ptrs"`
	Words []uint64    `json:"words" yaml:"words"`
	Slots []heap.Addr `json:"slots" yaml:"slots"`
	SRT   heap.Addr   `json:"srt" yaml:"srt"`

	FunType string `json:"fun_type" yaml:"fun_type"`
	Args    string `json:"args" yaml:"args"`

	Fun    heap.Addr  `json:"fun" yaml:"fun"`
	Frames []frameRec `json:"frames" yaml:"frames"`

	Thread *threadRec `json:"thread" yaml:"thread"`
	TRec   *trecRec   `json:"trec" yaml:"trec"`
}

type frameRec struct {
	Kind    string      `json:"kind" yaml:"kind"`
	Updatee heap.Addr   `json:"updatee" yaml:"updatee"`
	Layout  string      `json:"layout" yaml:"layout"`
	Slots   []heap.Addr `json:"slots" yaml:"slots"`
	SRT     heap.Addr   `json:"srt" yaml:"srt"`
	Fun     heap.Addr   `json:"fun" yaml:"fun"`
	BCO     heap.Addr   `json:"bco" yaml:"bco"`
}

type threadRec struct {
	ID                uint64    `json:"id" yaml:"id"`
	WhatNext          string    `json:"what_next" yaml:"what_next"`
	WhyBlocked        string    `json:"why_blocked" yaml:"why_blocked"`
	StackObj          heap.Addr `json:"stack" yaml:"stack"`
	BlockedExceptions heap.Addr `json:"blocked_exceptions" yaml:"blocked_exceptions"`
	BQ                heap.Addr `json:"bq" yaml:"bq"`
	TRec              heap.Addr `json:"trec" yaml:"trec"`
	BlockInfo         heap.Addr `json:"block_info" yaml:"block_info"`
}

type trecRec struct {
	Prev    heap.Addr `json:"prev" yaml:"prev"`
	Entries []struct {
		TVar     heap.Addr `json:"tvar" yaml:"tvar"`
		Expected heap.Addr `json:"expected" yaml:"expected"`
		New      heap.Addr `json:"new" yaml:"new"`
	} `json:"entries" yaml:"entries"`
}

var whatNextNames = map[string]heap.WhatNext{
	"":          heap.ThreadRunGHC,
	"run":       heap.ThreadRunGHC,
	"interpret": heap.ThreadInterpret,
	"killed":    heap.ThreadKilled,
	"complete":  heap.ThreadComplete,
}

var whyBlockedNames = map[string]heap.WhyBlocked{
	"":                    heap.NotBlocked,
	"not_blocked":         heap.NotBlocked,
	"mvar":                heap.BlockedOnMVar,
	"mvar_read":           heap.BlockedOnMVarRead,
	"black_hole":          heap.BlockedOnBlackHole,
	"read":                heap.BlockedOnRead,
	"write":               heap.BlockedOnWrite,
	"delay":               heap.BlockedOnDelay,
	"stm":                 heap.BlockedOnSTM,
	"do_proc":             heap.BlockedOnDoProc,
	"ccall":               heap.BlockedOnCCall,
	"ccall_interruptible": heap.BlockedOnCCallInterruptible,
	"msg_throw_to":        heap.BlockedOnMsgThrowTo,
	"migrating":           heap.ThreadMigrating,
}

// build converts a decoded document into a validated snapshot.
func (d *document) build() (*Snapshot, error) {
	h := heap.NewMemHeap()
	for i := range d.Closures {
		rec := &d.Closures[i]
		if rec.Addr.IsNil() {
			return nil, fmt.Errorf("closure at index %d missing address", i)
		}
		if rec.Addr.Tag() != 0 {
			return nil, fmt.Errorf("closure at index %d has tagged address %s", i, rec.Addr)
		}
		c, err := rec.closure()
		if err != nil {
			return nil, fmt.Errorf("closure %s: %w", rec.Addr, err)
		}
		h.Add(rec.Addr, c)
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}

	snap := &Snapshot{Heap: h, Capabilities: d.Capabilities}
	if snap.Capabilities == 0 {
		snap.Capabilities = 1
	}
	snap.Roots.Add(heap.RootsStableNames, d.Roots.StableNames...)
	snap.Roots.Add(heap.RootsStablePtrs, d.Roots.StablePtrs...)
	for g, threads := range d.Roots.Generations {
		snap.Roots.Add(heap.GenerationRoots(g), threads...)
	}
	return snap, nil
}

func (rec *closureRec) closure() (*heap.Closure, error) {
	kind, err := heap.ParseKind(rec.Kind)
	if err != nil {
		return nil, err
	}
	c := &heap.Closure{
		Kind: kind,
		Info: rec.Info,
		SRT:  rec.SRT,
		Fun:  rec.Fun,
	}

	switch {
	case len(rec.Slots) > 0:
		c.Payload = words(rec.Slots)
	default:
		c.Payload = make([]heap.Word, 0, len(rec.Ptrs)+len(rec.Words))
		for _, p := range rec.Ptrs {
			c.Payload = append(c.Payload, heap.Word(p))
		}
		c.NPtrs = len(rec.Ptrs)
		for _, w := range rec.Words {
			c.Payload = append(c.Payload, heap.Word(w))
		}
	}

	if rec.FunType != "" {
		if c.FunType, err = heap.ParseFunType(rec.FunType); err != nil {
			return nil, err
		}
	}
	if c.Args, err = heap.ParseBitmap(rec.Args); err != nil {
		return nil, fmt.Errorf("args: %w", err)
	}

	for i := range rec.Frames {
		f, err := rec.Frames[i].frame()
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		c.Frames = append(c.Frames, f)
	}

	if t := rec.Thread; t != nil {
		wn, ok := whatNextNames[t.WhatNext]
		if !ok {
			return nil, fmt.Errorf("unknown thread state %q", t.WhatNext)
		}
		wb, ok := whyBlockedNames[t.WhyBlocked]
		if !ok {
			return nil, fmt.Errorf("unknown blocking reason %q", t.WhyBlocked)
		}
		c.Thread = &heap.Thread{
			ID:                t.ID,
			WhatNext:          wn,
			WhyBlocked:        wb,
			StackObj:          t.StackObj,
			BlockedExceptions: t.BlockedExceptions,
			BQ:                t.BQ,
			TRec:              t.TRec,
			BlockInfo:         t.BlockInfo,
		}
	}

	if tr := rec.TRec; tr != nil {
		c.TRec = &heap.TRecLog{Prev: tr.Prev}
		for _, e := range tr.Entries {
			c.TRec.Entries = append(c.TRec.Entries, heap.TRecEntry{
				TVar:     e.TVar,
				Expected: e.Expected,
				New:      e.New,
			})
		}
	}
	return c, nil
}

func (rec *frameRec) frame() (heap.Frame, error) {
	kind, err := heap.ParseKind(rec.Kind)
	if err != nil {
		return heap.Frame{}, err
	}
	layout, err := heap.ParseBitmap(rec.Layout)
	if err != nil {
		return heap.Frame{}, fmt.Errorf("layout: %w", err)
	}
	return heap.Frame{
		Kind:    kind,
		Updatee: rec.Updatee,
		Layout:  layout,
		Payload: words(rec.Slots),
		SRT:     rec.SRT,
		Fun:     rec.Fun,
		BCO:     rec.BCO,
	}, nil
}

func words(slots []heap.Addr) []heap.Word {
	out := make([]heap.Word, len(slots))
	for i, s := range slots {
		out[i] = heap.Word(s)
	}
	return out
}
