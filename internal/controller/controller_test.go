package controller

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/prateek/heaptrav/dump"
	"github.com/prateek/heaptrav/heap"
	"github.com/prateek/heaptrav/heapdump"
	"github.com/prateek/heaptrav/internal/config"
	"github.com/prateek/heaptrav/internal/metrics"
	"github.com/prateek/heaptrav/trav"
)

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

// outputs records every walk log opened by the controller.
type outputs struct {
	mu   sync.Mutex
	bufs map[string]*bufferCloser
}

func (o *outputs) open(session string) (io.WriteCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.bufs == nil {
		o.bufs = map[string]*bufferCloser{}
	}
	b := &bufferCloser{}
	o.bufs[session] = b
	return b, nil
}

func (o *outputs) get(session string) *bufferCloser {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bufs[session]
}

func justSnapshot(caps int) *heapdump.Snapshot {
	h := heap.NewMemHeap()
	h.Add(0x10, &heap.Closure{Kind: heap.Constr1_0, Info: "Just", Payload: []heap.Word{0x22}, NPtrs: 1})
	h.Add(0x20, &heap.Closure{Kind: heap.Constr0_1, Info: "I#", Payload: []heap.Word{7}})
	h.Add(0x30, &heap.Closure{Kind: heap.Constr2_0, Info: "Pair", Payload: []heap.Word{0x10, 0x20}, NPtrs: 2})

	snap := &heapdump.Snapshot{Heap: h, Capabilities: caps}
	snap.Roots.Add(heap.RootsStableNames, 0x10)
	snap.Roots.Add(heap.RootsStablePtrs, 0x30)
	return snap
}

func walkConfig() config.WalkConfig {
	return config.Default().Walk
}

func TestWalkWritesLog(t *testing.T) {
	out := &outputs{}
	c := New(NewStaticWorld(justSnapshot(1)), walkConfig(), out.open, WithLogger(zaptest.NewLogger(t)))

	report, err := c.Walk(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Refused)
	assert.Equal(t, 2, report.Roots)
	assert.NotEmpty(t, report.Session)

	buf := out.get(report.Session)
	require.NotNil(t, buf)
	assert.True(t, buf.closed)

	want := strings.Join([]string{
		"### root 0x10",
		"### root 0x30",
		"### visit 0x30:24:Pair <- 0x30:24:Pair",
		"### visit 0x10:16:Just <- 0x30:24:Pair",
		"### visit 0x20:16:I# <- 0x10:16:Just",
		"### visit 0x20:16:I# <- 0x30:24:Pair",
		"### visit 0x10:16:Just <- 0x10:16:Just",
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, 5, report.Visits)
	assert.Equal(t, 3, report.Stats.Accepted)

	doc, err := dump.Parse(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, []heap.Addr{0x10, 0x30}, doc.Roots)
	assert.Len(t, doc.Infos, 3)
}

func TestWalkRefusesManyCapabilities(t *testing.T) {
	out := &outputs{}
	c := New(NewStaticWorld(justSnapshot(4)), walkConfig(), out.open)

	report, err := c.Walk(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Refused)
	assert.Equal(t, 4, report.Capabilities)
	assert.Nil(t, out.get(report.Session), "refused walks open no output")
}

func TestWalkFailsOnDanglingPointer(t *testing.T) {
	h := heap.NewMemHeap()
	h.Add(0x10, &heap.Closure{Kind: heap.Constr1_0, Info: "Just", Payload: []heap.Word{0x990}, NPtrs: 1})
	snap := &heapdump.Snapshot{Heap: h, Capabilities: 1}
	snap.Roots.Add(heap.RootsStablePtrs, 0x10)

	out := &outputs{}
	c := New(NewStaticWorld(snap), walkConfig(), out.open)
	report, err := c.Walk(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, trav.ErrBadClosure))
	assert.True(t, out.get(report.Session).closed)
}

func TestWalkFailsWhenStackBudgetExhausted(t *testing.T) {
	// Eight roots do not fit in two chunks of two items.
	snap := justSnapshot(1)
	for i := 0; i < 8; i++ {
		snap.Roots.Add(heap.GenerationRoots(0), 0x20)
	}

	cfg := walkConfig()
	cfg.ChunkCapacity = 2
	cfg.MaxChunks = 2
	out := &outputs{}
	c := New(NewStaticWorld(snap), cfg, out.open)

	_, err := c.Walk(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, trav.ErrChunkAlloc))
}

func TestWalkFailsWhenVisitedSetFull(t *testing.T) {
	cfg := walkConfig()
	cfg.VisitedCapacity = 2
	out := &outputs{}
	c := New(NewStaticWorld(justSnapshot(1)), cfg, out.open)

	_, err := c.Walk(context.Background())
	assert.Error(t, err)
}

type failingWorld struct{}

func (failingWorld) Pause(context.Context) (*heapdump.Snapshot, error) {
	return nil, errors.New("runtime busy")
}
func (failingWorld) Resume() {}

func TestWalkPauseFailure(t *testing.T) {
	out := &outputs{}
	c := New(failingWorld{}, walkConfig(), out.open)
	_, err := c.Walk(context.Background())
	assert.ErrorContains(t, err, "runtime busy")
}

func TestWalkOutputFailure(t *testing.T) {
	open := func(string) (io.WriteCloser, error) { return nil, errors.New("disk full") }
	c := New(NewStaticWorld(justSnapshot(1)), walkConfig(), open)
	_, err := c.Walk(context.Background())
	assert.ErrorContains(t, err, "disk full")
}

func TestTriggerServedByRun(t *testing.T) {
	out := &outputs{}
	m := metrics.New()
	okBefore := testutil.ToFloat64(m.WalksTotal.WithLabelValues(metrics.ResultOK))

	c := New(NewStaticWorld(justSnapshot(1)), walkConfig(), out.open, WithMetrics(m))

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- c.Run(ctx) }()

	first, err := c.Trigger(context.Background())
	require.NoError(t, err)
	second, err := c.Trigger(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.Session, second.Session)
	assert.Equal(t, out.get(first.Session).String(), out.get(second.Session).String(),
		"each walk starts from a fresh visited set")
	assert.Equal(t, okBefore+2, testutil.ToFloat64(m.WalksTotal.WithLabelValues(metrics.ResultOK)))

	cancel()
	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}

	_, err = c.Trigger(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}

func TestTriggerHonoursContext(t *testing.T) {
	c := New(NewStaticWorld(justSnapshot(1)), walkConfig(), (&outputs{}).open)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Trigger(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
