// Package snapshot reads catalog snapshot files produced by the
// catalog-query layer.
//
// A snapshot is either a list of objects or a mapping with an objects key:
//
//	objects:
//	  - schema: public
//	    name: orders
//	    kind: table
//	    definition: CREATE TABLE public.orders (...)
//	    attributes: ["id integer", "status order_status"]
//
// JSON files use the same shape.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/pgdeps/pkg/core"
)

// ErrUnsupportedFormat is returned for files that are neither YAML nor JSON.
var ErrUnsupportedFormat = errors.New("unsupported snapshot format")

type document struct {
	Objects []core.RawObject `yaml:"objects"`
}

// Load reads the snapshot at path. The format is chosen by extension:
// .yaml, .yml or .json.
func Load(path string) ([]core.RawObject, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("%w: %s (want .yaml, .yml or .json)", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path) // #nosec G304 -- path comes from the user's own flag or config
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	return rows, nil
}

// Decode reads a snapshot from r. JSON is valid YAML, so one decoder reads
// both.
func Decode(r io.Reader) ([]core.RawObject, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}

	switch node.Kind {
	case yaml.SequenceNode:
		var rows []core.RawObject
		if err := node.Decode(&rows); err != nil {
			return nil, err
		}
		return rows, nil
	case yaml.MappingNode:
		var doc document
		if err := node.Decode(&doc); err != nil {
			return nil, err
		}
		return doc.Objects, nil
	}
	return nil, fmt.Errorf("line %d: snapshot must be a list of objects or a mapping with an objects key", node.Line)
}
