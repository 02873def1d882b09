// ABOUTME: Runs heap walks on request: pause the world, seed roots, drain the stack, resume
// ABOUTME: Requests arrive through Trigger and are served one at a time by Run

// Package controller drives traversal sessions on behalf of a trigger,
// such as a signal, writing each walk's log to its own output.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prateek/heaptrav/dump"
	"github.com/prateek/heaptrav/heapdump"
	"github.com/prateek/heaptrav/internal/config"
	"github.com/prateek/heaptrav/internal/metrics"
	"github.com/prateek/heaptrav/trav"
	"github.com/prateek/heaptrav/visited"
)

// ErrStopped is returned by Trigger once Run has returned.
var ErrStopped = errors.New("controller stopped")

// OutputFunc opens the destination of one walk's log.
type OutputFunc func(session string) (io.WriteCloser, error)

// Report summarises one walk.
type Report struct {
	Session string
	// Refused is set when the world ran more than one capability and the
	// walk was skipped.
	Refused      bool
	Capabilities int
	Roots        int
	Visits       int
	Stats        trav.Stats
	Duration     time.Duration
}

type request struct {
	ctx  context.Context
	resp chan response
}

type response struct {
	report *Report
	err    error
}

// Controller serialises walks of a World.
type Controller struct {
	world    World
	cfg      config.WalkConfig
	open     OutputFunc
	logger   *zap.Logger
	metrics  *metrics.Metrics
	requests chan request
	done     chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithMetrics records walk outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// New returns a controller walking world with the given stack and visited
// set sizes, writing each walk log to the output returned by open.
func New(world World, walk config.WalkConfig, open OutputFunc, opts ...Option) *Controller {
	c := &Controller{
		world:    world,
		cfg:      walk,
		open:     open,
		logger:   zap.NewNop(),
		requests: make(chan request),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run serves Trigger requests until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	c.logger.Info("waiting for walk requests")
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-c.requests:
			report, err := c.Walk(req.ctx)
			req.resp <- response{report: report, err: err}
		}
	}
}

// Trigger asks Run to perform a walk and waits for its report.
func (c *Controller) Trigger(ctx context.Context) (*Report, error) {
	req := request{ctx: ctx, resp: make(chan response, 1)}
	select {
	case c.requests <- req:
	case <-c.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-req.resp:
		return resp.report, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Walk pauses the world and walks it from every root. Roots are seeded in
// source order: stable names, stable pointers, then each generation's
// threads. A world running more than one capability is not walked; the
// report says so and no error is returned. Any traversal error is fatal
// for the walk and returned.
func (c *Controller) Walk(ctx context.Context) (report *Report, err error) {
	report = &Report{Session: uuid.NewString()}
	log := c.logger.With(zap.String("session", report.Session))
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
		c.observe(report, err)
	}()

	snap, err := c.world.Pause(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to pause world: %w", err)
	}
	defer c.world.Resume()

	report.Capabilities = snap.Capabilities
	if snap.Capabilities > 1 {
		log.Warn("refusing to walk: limit the runtime to one OS thread",
			zap.Int("capabilities", snap.Capabilities))
		report.Refused = true
		return report, nil
	}

	out, err := c.open(report.Session)
	if err != nil {
		return report, fmt.Errorf("failed to open walk output: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close walk output: %w", cerr)
		}
	}()

	err = c.walk(log, snap, out, report)
	return report, err
}

func (c *Controller) walk(log *zap.Logger, snap *heapdump.Snapshot, out io.Writer, report *Report) error {
	seen := visited.New(c.cfg.VisitedCapacity)
	rec := dump.NewRecorder(out, snap.Heap, seen)

	var alloc trav.ChunkAllocator = trav.NewPoolAllocator(c.cfg.ChunkCapacity)
	if c.cfg.MaxChunks > 0 {
		alloc = trav.NewLimitedAllocator(alloc, c.cfg.MaxChunks)
	}
	sess := trav.NewSession(snap.Heap, trav.WithLogger(log), trav.WithAllocator(alloc))
	if err := sess.Acquire(); err != nil {
		return err
	}
	defer sess.Release()

	for _, src := range snap.Roots.Sources {
		log.Debug("seeding roots", zap.String("source", src.Name), zap.Int("count", len(src.Addrs)))
		for _, root := range src.Addrs {
			rec.Root(root)
			if err := sess.PushRoot(root); err != nil {
				return err
			}
		}
	}

	log.Info("traversing", zap.Int("roots", rec.Roots()))
	runErr := sess.Run(rec.Visit)

	report.Roots = rec.Roots()
	report.Visits = rec.Visits()
	report.Stats = sess.Stats()

	if runErr != nil {
		return runErr
	}
	if err := rec.Flush(); err != nil {
		return fmt.Errorf("failed to write walk log: %w", err)
	}
	log.Info("walk finished",
		zap.Int("visits", report.Visits),
		zap.Int("accepted", report.Stats.Accepted),
		zap.Int("max_stack", report.Stats.MaxStackSize),
		zap.Int("chunks", report.Stats.Chunks))
	return nil
}

func (c *Controller) observe(report *Report, err error) {
	if c.metrics == nil {
		return
	}
	result := metrics.ResultOK
	switch {
	case err != nil:
		result = metrics.ResultFailed
	case report.Refused:
		result = metrics.ResultRefused
	}
	c.metrics.WalksTotal.WithLabelValues(result).Inc()
	c.metrics.WalkDuration.Observe(report.Duration.Seconds())
	c.metrics.ClosuresVisited.Add(float64(report.Stats.Visited))
	c.metrics.ClosuresAccepted.Add(float64(report.Stats.Accepted))
	c.metrics.StackHighWater.Set(float64(report.Stats.MaxStackSize))
	c.metrics.ChunksInUse.Set(float64(report.Stats.Chunks))
}
