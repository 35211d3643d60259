package core

import (
	"fmt"
	"strings"
)

// =============================================================================
// ObjectKind
// =============================================================================

// ObjectKind classifies a catalog object.
type ObjectKind string

// Object kinds known to the catalog.
const (
	KindTable            ObjectKind = "table"
	KindView             ObjectKind = "view"
	KindMaterializedView ObjectKind = "materialized_view"
	KindFunction         ObjectKind = "function"
	KindProcedure        ObjectKind = "procedure"
	KindTrigger          ObjectKind = "trigger"
	KindSequence         ObjectKind = "sequence"
	KindType             ObjectKind = "type"
	KindIndex            ObjectKind = "index"
)

// AllKinds lists every object kind in declaration order.
var AllKinds = []ObjectKind{
	KindTable, KindView, KindMaterializedView, KindFunction, KindProcedure,
	KindTrigger, KindSequence, KindType, KindIndex,
}

var kindAliases = map[string]ObjectKind{
	"matview":   KindMaterializedView,
	"mview":     KindMaterializedView,
	"enum":      KindType,
	"composite": KindType,
	"proc":      KindProcedure,
	"func":      KindFunction,
}

// ParseObjectKind converts a string to an ObjectKind.
// Matching is case-insensitive; spaces and dashes are treated as underscores.
func ParseObjectKind(s string) (ObjectKind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for _, k := range AllKinds {
		if string(k) == norm {
			return k, nil
		}
	}
	if k, ok := kindAliases[norm]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown object kind %q", s)
}

// Valid reports whether k is one of the known kinds.
func (k ObjectKind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsRelation reports whether objects of this kind can appear in a FROM clause.
func (k ObjectKind) IsRelation() bool {
	return k == KindTable || k == KindView || k == KindMaterializedView
}

// IsRoutine reports whether objects of this kind are callable.
func (k ObjectKind) IsRoutine() bool {
	return k == KindFunction || k == KindProcedure
}

// String returns the string representation of the kind.
func (k ObjectKind) String() string {
	return string(k)
}
