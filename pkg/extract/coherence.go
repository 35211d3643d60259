package extract

import "github.com/leapstack-labs/pgdeps/pkg/core"

type kindSet map[core.ObjectKind]bool

func kinds(ks ...core.ObjectKind) kindSet {
	s := make(kindSet, len(ks))
	for _, k := range ks {
		s[k] = true
	}
	return s
}

var routineKinds = kinds(core.KindFunction, core.KindProcedure)

// edgeRule lists which object kinds may hold an edge of a kind and which
// kinds it may point at.
type edgeRule struct {
	from kindSet
	to   kindSet
}

var coherence = map[core.EdgeKind]edgeRule{
	// Tables reach other tables only through REFERENCES, INHERITS,
	// LIKE and PARTITION OF; column declarations never produce this edge.
	core.EdgeTableReference: {
		from: kinds(core.KindTable, core.KindView, core.KindMaterializedView,
			core.KindFunction, core.KindProcedure, core.KindIndex),
		to: kinds(core.KindTable),
	},
	core.EdgeViewReference: {
		from: kinds(core.KindView, core.KindMaterializedView,
			core.KindFunction, core.KindProcedure, core.KindIndex),
		to: kinds(core.KindView, core.KindMaterializedView),
	},
	core.EdgeFunctionCall: {
		from: kinds(core.KindTable, core.KindView, core.KindMaterializedView,
			core.KindFunction, core.KindProcedure, core.KindTrigger,
			core.KindType, core.KindIndex),
		to: routineKinds,
	},
	core.EdgeTriggerTarget: {
		from: kinds(core.KindTrigger, core.KindFunction, core.KindProcedure),
		to:   kinds(core.KindTable, core.KindView),
	},
	core.EdgeSequenceUsage: {
		from: kinds(core.KindTable, core.KindView, core.KindMaterializedView,
			core.KindFunction, core.KindProcedure),
		to: kinds(core.KindSequence),
	},
}

// Coherent reports whether an edge of kind k from an object of kind from to
// an object of kind to has a meaning.
func Coherent(from core.ObjectKind, k core.EdgeKind, to core.ObjectKind) bool {
	if k == core.EdgeTypeUsage {
		return coherentTypeUsage(from, to)
	}
	rule, ok := coherence[k]
	return ok && rule.from[from] && rule.to[to]
}

// Row types of relations are usable only from routines and composite types.
func coherentTypeUsage(from, to core.ObjectKind) bool {
	switch {
	case from == core.KindSequence || from == core.KindIndex || from == core.KindTrigger:
		return false
	case to == core.KindType:
		return true
	case to.IsRelation():
		return from.IsRoutine() || from == core.KindType
	}
	return false
}

// keepSelf reports whether a self reference survives. Only recursive
// routines reference themselves meaningfully.
func keepSelf(obj core.ObjectKind, k core.EdgeKind) bool {
	return k == core.EdgeFunctionCall && obj.IsRoutine()
}

// edgeKindFor picks the edge kind implied by the target of a relation-like
// position.
func edgeKindFor(target core.ObjectKind) (core.EdgeKind, bool) {
	switch target {
	case core.KindTable:
		return core.EdgeTableReference, true
	case core.KindView, core.KindMaterializedView:
		return core.EdgeViewReference, true
	case core.KindSequence:
		return core.EdgeSequenceUsage, true
	case core.KindFunction, core.KindProcedure:
		return core.EdgeFunctionCall, true
	case core.KindType:
		return core.EdgeTypeUsage, true
	}
	return 0, false
}
