package core

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"strings"
)

// EdgeKind classifies why one object references another.
type EdgeKind uint8

// Edge kinds.
const (
	EdgeTableReference EdgeKind = iota
	EdgeViewReference
	EdgeFunctionCall
	EdgeTriggerTarget
	EdgeTypeUsage
	EdgeSequenceUsage

	edgeKindCount
)

var edgeKindNames = [...]string{
	EdgeTableReference: "table_reference",
	EdgeViewReference:  "view_reference",
	EdgeFunctionCall:   "function_call",
	EdgeTriggerTarget:  "trigger_target",
	EdgeTypeUsage:      "type_usage",
	EdgeSequenceUsage:  "sequence_usage",
}

// String returns the string representation of the edge kind.
func (k EdgeKind) String() string {
	if k < edgeKindCount {
		return edgeKindNames[k]
	}
	return "unknown"
}

// ParseEdgeKind converts a string to an EdgeKind.
func ParseEdgeKind(s string) (EdgeKind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for i, name := range edgeKindNames {
		if name == norm {
			return EdgeKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown edge kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k EdgeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EdgeKind) UnmarshalText(b []byte) error {
	parsed, err := ParseEdgeKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// EdgeKinds is a set of edge kinds.
type EdgeKinds uint8

// KindsOf builds a set from the given kinds.
func KindsOf(kinds ...EdgeKind) EdgeKinds {
	var s EdgeKinds
	for _, k := range kinds {
		s = s.Add(k)
	}
	return s
}

// Add returns the set with k included.
func (s EdgeKinds) Add(k EdgeKind) EdgeKinds {
	return s | 1<<k
}

// Has reports whether k is in the set.
func (s EdgeKinds) Has(k EdgeKind) bool {
	return s&(1<<k) != 0
}

// Union returns the union of both sets.
func (s EdgeKinds) Union(o EdgeKinds) EdgeKinds {
	return s | o
}

// Difference returns the kinds of s that are not in o.
func (s EdgeKinds) Difference(o EdgeKinds) EdgeKinds {
	return s &^ o
}

// Len returns the number of kinds in the set.
func (s EdgeKinds) Len() int {
	return bits.OnesCount8(uint8(s))
}

// List returns the kinds in declaration order.
func (s EdgeKinds) List() []EdgeKind {
	out := make([]EdgeKind, 0, s.Len())
	for k := EdgeKind(0); k < edgeKindCount; k++ {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// Strings returns the kind names in declaration order.
func (s EdgeKinds) Strings() []string {
	list := s.List()
	out := make([]string, len(list))
	for i, k := range list {
		out[i] = k.String()
	}
	return out
}

// String joins the kind names with commas.
func (s EdgeKinds) String() string {
	return strings.Join(s.Strings(), ",")
}

// MarshalJSON encodes the set as an array of names.
func (s EdgeKinds) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes an array of names.
func (s *EdgeKinds) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return err
	}
	var set EdgeKinds
	for _, n := range names {
		k, err := ParseEdgeKind(n)
		if err != nil {
			return err
		}
		set = set.Add(k)
	}
	*s = set
	return nil
}

// MarshalYAML encodes the set as a sequence of names.
func (s EdgeKinds) MarshalYAML() (any, error) {
	return s.Strings(), nil
}

// Edge is a directed dependency: From depends on To.
type Edge struct {
	From  ObjectID  `json:"from"`
	To    ObjectID  `json:"to"`
	Kinds EdgeKinds `json:"kinds"`
}
