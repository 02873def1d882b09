// ABOUTME: The runtime the controller pauses and walks
// ABOUTME: Snapshot-backed worlds stand in for a live process

package controller

import (
	"context"
	"sync"

	"github.com/prateek/heaptrav/heapdump"
)

// World is a heap whose mutators can be held still for a walk. Every
// successful Pause must be followed by exactly one Resume.
type World interface {
	Pause(ctx context.Context) (*heapdump.Snapshot, error)
	Resume()
}

// StaticWorld serves one snapshot that never changes.
type StaticWorld struct {
	mu   sync.Mutex
	snap *heapdump.Snapshot
}

// NewStaticWorld returns a world over snap.
func NewStaticWorld(snap *heapdump.Snapshot) *StaticWorld {
	return &StaticWorld{snap: snap}
}

// Pause implements World.
func (w *StaticWorld) Pause(ctx context.Context) (*heapdump.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	return w.snap, nil
}

// Resume implements World.
func (w *StaticWorld) Resume() {
	w.mu.Unlock()
}

// FileWorld reloads a snapshot file on every pause, so a process that
// rewrites the file between signals is walked in its latest state.
type FileWorld struct {
	Path string
}

// Pause implements World.
func (w *FileWorld) Pause(ctx context.Context) (*heapdump.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return heapdump.OpenFile(w.Path)
}

// Resume implements World.
func (w *FileWorld) Resume() {}
