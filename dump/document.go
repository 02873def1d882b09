// ABOUTME: Converts a walk log into a JSON document of closure labels, sizes, roots and edges
// ABOUTME: Checks that every closure reports the same size and label on every line

package dump

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/prateek/heaptrav/heap"
)

// Edge is one discovered reference.
type Edge struct {
	From heap.Addr `json:"from"`
	To   heap.Addr `json:"to"`
}

// Document is the analysable form of a walk log.
type Document struct {
	Infos   map[heap.Addr]string `json:"infos"`
	Lengths map[heap.Addr]uint64 `json:"lengths"`
	Roots   []heap.Addr          `json:"roots"`
	Edges   []Edge               `json:"edges"`
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		Infos:   make(map[heap.Addr]string),
		Lengths: make(map[heap.Addr]uint64),
		Roots:   []heap.Addr{},
		Edges:   []Edge{},
	}
}

// endpoint is one side of a visit line.
type endpoint struct {
	addr heap.Addr
	size uint64
	info string
}

// Parse reads a walk log. Lines other than root and visit lines are ignored.
// A visit of a root by itself records the closure but no edge.
func Parse(r io.Reader) (*Document, error) {
	doc := NewDocument()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, rootPrefix):
			a, err := heap.ParseAddr(strings.TrimSpace(line[len(rootPrefix):]))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			doc.Roots = append(doc.Roots, a)

		case strings.HasPrefix(line, visitPrefix):
			to, from, err := parseVisit(line[len(visitPrefix):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			for _, ep := range []endpoint{from, to} {
				if err := doc.record(ep); err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
			}
			if from.addr != to.addr {
				doc.Edges = append(doc.Edges, Edge{From: from.addr, To: to.addr})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading walk log: %w", err)
	}
	return doc, nil
}

func parseVisit(s string) (to, from endpoint, err error) {
	parts := strings.Split(s, " <- ")
	if len(parts) != 2 {
		return to, from, fmt.Errorf("malformed visit %q", s)
	}
	if to, err = parseEndpoint(parts[0]); err != nil {
		return to, from, err
	}
	if from, err = parseEndpoint(parts[1]); err != nil {
		return to, from, err
	}
	return to, from, nil
}

func parseEndpoint(s string) (endpoint, error) {
	toks := strings.SplitN(strings.TrimSpace(s), ":", 3)
	if len(toks) != 3 {
		return endpoint{}, fmt.Errorf("malformed closure %q", s)
	}
	a, err := heap.ParseAddr(toks[0])
	if err != nil {
		return endpoint{}, err
	}
	size, err := strconv.ParseUint(toks[1], 10, 64)
	if err != nil {
		return endpoint{}, fmt.Errorf("invalid size in %q: %w", s, err)
	}
	return endpoint{addr: a, size: size, info: toks[2]}, nil
}

// record stores a closure's size and label, rejecting disagreement with an
// earlier line.
func (d *Document) record(ep endpoint) error {
	if n, ok := d.Lengths[ep.addr]; ok && n != ep.size {
		return fmt.Errorf("closure %s reported with sizes %d and %d", ep.addr, n, ep.size)
	}
	if info, ok := d.Infos[ep.addr]; ok && info != ep.info {
		return fmt.Errorf("closure %s reported with labels %s and %s", ep.addr, info, ep.info)
	}
	d.Lengths[ep.addr] = ep.size
	d.Infos[ep.addr] = ep.info
	return nil
}

// WriteJSON writes the document as indented JSON.
func (d *Document) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return nil
}

// ReadJSON decodes a document written by WriteJSON.
func ReadJSON(r io.Reader) (*Document, error) {
	doc := NewDocument()
	if err := json.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}
