// ABOUTME: JSON snapshot parser
// ABOUTME: Reads closures and roots from a JSON object with closures, roots and capabilities keys

package heapdump

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"unicode"
)

func init() {
	Register(&JSONParser{})
}

// JSONParser reads snapshots written as a single JSON object.
type JSONParser struct{}

// Name implements Parser.
func (p *JSONParser) Name() string { return "json" }

// CanParse reports whether the input starts with a JSON object.
func (p *JSONParser) CanParse(r io.Reader) bool {
	br := bufio.NewReader(r)
	for {
		c, _, err := br.ReadRune()
		if err != nil {
			return false
		}
		if unicode.IsSpace(c) {
			continue
		}
		return c == '{'
	}
}

// Parse decodes the snapshot and builds its heap. Unknown keys are rejected
// so that misspelled fields do not silently drop pointers.
func (p *JSONParser) Parse(r io.Reader) (*Snapshot, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return doc.build()
}
