// ABOUTME: YAML snapshot parser for hand-written heaps
// ABOUTME: Uses the same schema as the JSON parser

package heapdump

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

func init() {
	Register(&YAMLParser{})
}

// topLevelKeys are the keys that identify a YAML snapshot.
var topLevelKeys = []string{"closures:", "roots:", "capabilities:"}

// YAMLParser reads snapshots written as a YAML mapping.
type YAMLParser struct{}

// Name implements Parser.
func (p *YAMLParser) Name() string { return "yaml" }

// CanParse reports whether the preview contains an unindented snapshot key.
func (p *YAMLParser) CanParse(r io.Reader) bool {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		for _, key := range topLevelKeys {
			if strings.HasPrefix(line, key) {
				return true
			}
		}
	}
	return false
}

// Parse decodes the snapshot and builds its heap.
func (p *YAMLParser) Parse(r io.Reader) (*Snapshot, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty YAML snapshot")
		}
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}
	return doc.build()
}
