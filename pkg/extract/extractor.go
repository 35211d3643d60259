package extract

import (
	"cmp"
	"slices"

	"github.com/leapstack-labs/pgdeps/pkg/catalog"
	"github.com/leapstack-labs/pgdeps/pkg/core"
)

// Extractor finds the catalog objects referenced by one object.
// Implementations must be pure: the same object and catalog always yield
// the same Result, and Extract must be safe to call concurrently.
type Extractor interface {
	Extract(obj *core.CatalogObject, cat *catalog.Catalog) Result
}

// Reference is one outgoing dependency of an object.
type Reference struct {
	Target core.ObjectID
	Kind   core.EdgeKind
}

// Reason explains why a reference could not be bound.
type Reason string

// Unresolved reasons.
const (
	ReasonUnknown   Reason = "unknown"   // no catalog object of a consistent kind
	ReasonAmbiguous Reason = "ambiguous" // more than one candidate, none chosen
)

// Unresolved is a textual reference that could not be bound with certainty.
type Unresolved struct {
	Text       string          `json:"text" yaml:"text"`
	Reason     Reason          `json:"reason" yaml:"reason"`
	Candidates []core.ObjectID `json:"candidates,omitempty" yaml:"candidates,omitempty"`
}

// Result is the outcome of extracting one object.
type Result struct {
	References []Reference
	Unresolved []Unresolved
}

// Heuristic is the default token-based extraction strategy.
type Heuristic struct{}

var _ Extractor = Heuristic{}

// Extract implements Extractor. It never fails: unusual syntax at worst
// yields fewer references and more unresolved entries.
func (Heuristic) Extract(obj *core.CatalogObject, cat *catalog.Catalog) Result {
	s := newScanner(obj, cat)
	s.scan()
	s.scanAttributes()
	s.addBindings()
	return s.result()
}

// Extract runs the default strategy.
func Extract(obj *core.CatalogObject, cat *catalog.Catalog) Result {
	return Heuristic{}.Extract(obj, cat)
}

// collector deduplicates and orders extraction output.
type collector struct {
	refs       map[Reference]struct{}
	unresolved map[string]Unresolved
}

func newCollector() *collector {
	return &collector{
		refs:       make(map[Reference]struct{}),
		unresolved: make(map[string]Unresolved),
	}
}

func (c *collector) addRef(r Reference) {
	c.refs[r] = struct{}{}
}

func (c *collector) addUnresolved(u Unresolved) {
	key := string(u.Reason) + "\x00" + u.Text
	if _, ok := c.unresolved[key]; !ok {
		c.unresolved[key] = u
	}
}

func (c *collector) result() Result {
	var res Result
	for r := range c.refs {
		res.References = append(res.References, r)
	}
	slices.SortFunc(res.References, func(a, b Reference) int {
		if n := core.CompareIDs(a.Target, b.Target); n != 0 {
			return n
		}
		return cmp.Compare(a.Kind, b.Kind)
	})

	for _, u := range c.unresolved {
		res.Unresolved = append(res.Unresolved, u)
	}
	slices.SortFunc(res.Unresolved, func(a, b Unresolved) int {
		if n := cmp.Compare(a.Text, b.Text); n != 0 {
			return n
		}
		return cmp.Compare(a.Reason, b.Reason)
	})
	return res
}
