// ABOUTME: Registry for heap snapshot parsers
// ABOUTME: Manages parser plugins and selects the appropriate parser for a snapshot

package heapdump

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	// ErrNoParser is returned when no parser can handle the snapshot format
	ErrNoParser = errors.New("no parser found for snapshot format")
)

// sniffSize is how much of the input parsers see when detecting a format.
const sniffSize = 4096

// parserRegistry holds registered parsers
type parserRegistry struct {
	mu      sync.RWMutex
	parsers []Parser
}

// Global registry instance
var registry = &parserRegistry{
	parsers: make([]Parser, 0),
}

// Register adds a parser to the registry
func Register(p Parser) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.parsers = append(registry.parsers, p)
}

// Open reads a snapshot with the first registered parser that recognises it.
func Open(r io.Reader) (*Snapshot, error) {
	br := bufio.NewReaderSize(r, sniffSize)

	// Peek returns what is available on a short read, with an error we only
	// care about if it is not EOF.
	preview, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, err
	}

	registry.mu.RLock()
	defer registry.mu.RUnlock()

	for _, parser := range registry.parsers {
		if parser.CanParse(bytes.NewReader(preview)) {
			snap, err := parser.Parse(br)
			if err != nil {
				return nil, fmt.Errorf("%s snapshot: %w", parser.Name(), err)
			}
			return snap, nil
		}
	}

	return nil, ErrNoParser
}

// OpenFile opens and parses the snapshot at path.
func OpenFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return Open(f)
}
