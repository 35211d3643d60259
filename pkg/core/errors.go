package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidObject is returned for catalog rows that cannot be mapped to an ObjectID.
var ErrInvalidObject = errors.New("invalid catalog object")

// DuplicateObjectError is returned when two snapshot rows share an identity.
// It indicates an inconsistent upstream snapshot and fails the whole ingest.
type DuplicateObjectError struct {
	ID ObjectID
}

func (e *DuplicateObjectError) Error() string {
	return fmt.Sprintf("duplicate catalog object %s", e.ID)
}

// UnknownObjectError is returned when a query names an object absent from the graph.
type UnknownObjectError struct {
	ID ObjectID
}

// Error omits the kind when the lookup did not name one.
func (e *UnknownObjectError) Error() string {
	if e.ID.Kind == "" {
		return fmt.Sprintf("unknown object %s", e.ID.Qualified())
	}
	return fmt.Sprintf("unknown object %s", e.ID)
}

// CyclicGraphError is returned when an ordering is requested on a cyclic graph.
// Cycle is a closed walk: the first and last elements are the same object.
type CyclicGraphError struct {
	Cycle []ObjectID
}

func (e *CyclicGraphError) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, id := range e.Cycle {
		parts[i] = id.Qualified()
	}
	return fmt.Sprintf("dependency cycle detected: %s\nHint: exclude function_call or trigger_target edges before ordering", strings.Join(parts, " -> "))
}
