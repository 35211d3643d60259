// Package catalog provides the normalized, read-only registry of scanned
// database objects that every later stage of a scan reads from.
package catalog

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/leapstack-labs/pgdeps/pkg/core"
)

// Catalog maps ObjectIDs to CatalogObjects and indexes them by bare name.
// It is immutable after Ingest and safe for concurrent readers.
type Catalog struct {
	objects map[core.ObjectID]*core.CatalogObject
	byName  map[string][]core.ObjectID // folded bare name -> ids, sorted
	ordered []core.ObjectID

	triggersByFunction map[core.ObjectID][]core.ObjectID
	triggerFunctions   map[core.ObjectID]core.ObjectID
	triggerTables      map[core.ObjectID]core.ObjectID
	sequencesByOwner   map[core.ObjectID][]core.ObjectID
}

// Trigger definitions as produced by pg_get_triggerdef are regular enough
// that the function and relation bindings can be read without the lexer.
var (
	triggerFunctionRe = regexp.MustCompile(`(?is)\bEXECUTE\s+(?:FUNCTION|PROCEDURE)\s+((?:"[^"]+"|[\w$]+)(?:\s*\.\s*(?:"[^"]+"|[\w$]+))?)\s*\(`)
	triggerTableRe    = regexp.MustCompile(`(?is)\b(?:BEFORE|AFTER|INSTEAD\s+OF)\b.*?\bON\s+(?:ONLY\s+)?((?:"[^"]+"|[\w$]+)(?:\s*\.\s*(?:"[^"]+"|[\w$]+))?)`)
	sequenceOwnerRe   = regexp.MustCompile(`(?is)\bOWNED\s+BY\s+((?:"[^"]+"|[\w$]+)(?:\s*\.\s*(?:"[^"]+"|[\w$]+)){1,2})`)
)

// Ingest validates raw rows and builds a Catalog.
// Row order is irrelevant. A second row with an identity already seen fails
// with *core.DuplicateObjectError.
func Ingest(rows []core.RawObject) (*Catalog, error) {
	c := &Catalog{
		objects:            make(map[core.ObjectID]*core.CatalogObject, len(rows)),
		byName:             make(map[string][]core.ObjectID),
		triggersByFunction: make(map[core.ObjectID][]core.ObjectID),
		triggerFunctions:   make(map[core.ObjectID]core.ObjectID),
		triggerTables:      make(map[core.ObjectID]core.ObjectID),
		sequencesByOwner:   make(map[core.ObjectID][]core.ObjectID),
	}

	for i, raw := range rows {
		obj, err := core.NewCatalogObject(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if _, exists := c.objects[obj.ID]; exists {
			return nil, &core.DuplicateObjectError{ID: obj.ID}
		}
		c.objects[obj.ID] = obj
		c.byName[obj.ID.Name] = append(c.byName[obj.ID.Name], obj.ID)
		c.ordered = append(c.ordered, obj.ID)
	}

	slices.SortFunc(c.ordered, core.CompareIDs)
	for name := range c.byName {
		slices.SortFunc(c.byName[name], core.CompareIDs)
	}
	c.indexBindings()

	return c, nil
}

// indexBindings resolves trigger->function, trigger->table and
// sequence->owner bindings. Metadata wins over the definition text.
func (c *Catalog) indexBindings() {
	for _, id := range c.ordered {
		obj := c.objects[id]
		switch id.Kind {
		case core.KindTrigger:
			if fn, ok := c.bindTrigger(obj, core.MetaFunction, triggerFunctionRe, core.KindFunction, core.KindProcedure); ok {
				c.triggersByFunction[fn] = append(c.triggersByFunction[fn], id)
				c.triggerFunctions[id] = fn
			}
			if table, ok := c.bindTrigger(obj, core.MetaTable, triggerTableRe, core.KindTable, core.KindView); ok {
				c.triggerTables[id] = table
			}
		case core.KindSequence:
			if owner, ok := c.bindSequence(obj); ok {
				c.sequencesByOwner[owner] = append(c.sequencesByOwner[owner], id)
			}
		}
	}
}

func (c *Catalog) bindTrigger(obj *core.CatalogObject, key string, re *regexp.Regexp, kinds ...core.ObjectKind) (core.ObjectID, bool) {
	if obj.Meta(key) != "" {
		return c.ResolveMeta(obj, key, kinds...)
	}
	m := re.FindStringSubmatch(obj.Definition)
	if m == nil {
		return core.ObjectID{}, false
	}
	return c.resolveRef(obj.ID.Schema, m[1], kinds...)
}

// bindSequence finds the owning table of a sequence. The definition form
// names a column (OWNED BY table.column) which is dropped before lookup.
func (c *Catalog) bindSequence(obj *core.CatalogObject) (core.ObjectID, bool) {
	if obj.Meta(core.MetaOwnedBy) != "" {
		return c.ResolveMeta(obj, core.MetaOwnedBy, core.KindTable)
	}
	m := sequenceOwnerRe.FindStringSubmatch(obj.Definition)
	if m == nil {
		return core.ObjectID{}, false
	}
	parts := splitRef(m[1])
	return c.resolveRef(obj.ID.Schema, strings.Join(parts[:len(parts)-1], "."), core.KindTable)
}

// resolveRef resolves "[schema.]name[.column]". Unqualified names are looked
// up in defaultSchema first and then by unique bare name.
func (c *Catalog) resolveRef(defaultSchema, ref string, kinds ...core.ObjectKind) (core.ObjectID, bool) {
	parts := splitRef(ref)
	if len(parts) >= 2 {
		return c.Lookup(parts[0], parts[1], kinds...)
	}
	if id, ok := c.Lookup(defaultSchema, parts[0], kinds...); ok {
		return id, true
	}
	if ids := c.ByName(parts[0], kinds...); len(ids) == 1 {
		return ids[0], true
	}
	return core.ObjectID{}, false
}

// ResolveMeta resolves a metadata reference of obj against the catalog.
func (c *Catalog) ResolveMeta(obj *core.CatalogObject, key string, kinds ...core.ObjectKind) (core.ObjectID, bool) {
	ref := obj.Meta(key)
	if ref == "" {
		return core.ObjectID{}, false
	}
	return c.resolveRef(obj.ID.Schema, ref, kinds...)
}

// Len returns the number of objects.
func (c *Catalog) Len() int {
	return len(c.objects)
}

// Get returns the object with the given id.
func (c *Catalog) Get(id core.ObjectID) (*core.CatalogObject, bool) {
	obj, ok := c.objects[id]
	return obj, ok
}

// Has reports whether the id is in the catalog.
func (c *Catalog) Has(id core.ObjectID) bool {
	_, ok := c.objects[id]
	return ok
}

// Lookup finds the object named schema.name among the given kinds.
// It fails when no kind or more than one kind matches.
func (c *Catalog) Lookup(schema, name string, kinds ...core.ObjectKind) (core.ObjectID, bool) {
	schema = core.FoldIdentifier(schema)
	var found []core.ObjectID
	for _, id := range c.ByName(name, kinds...) {
		if id.Schema == schema {
			found = append(found, id)
		}
	}
	if len(found) != 1 {
		return core.ObjectID{}, false
	}
	return found[0], true
}

// ByName returns all ids with the given bare name, optionally restricted to kinds.
// The result is sorted and must not be modified.
func (c *Catalog) ByName(name string, kinds ...core.ObjectKind) []core.ObjectID {
	ids := c.byName[core.FoldIdentifier(name)]
	if len(kinds) == 0 {
		return ids
	}
	var out []core.ObjectID
	for _, id := range ids {
		if slices.Contains(kinds, id.Kind) {
			out = append(out, id)
		}
	}
	return out
}

// IDs returns all ids in deterministic order.
func (c *Catalog) IDs() []core.ObjectID {
	return slices.Clone(c.ordered)
}

// Objects returns all objects in deterministic order.
func (c *Catalog) Objects() []*core.CatalogObject {
	out := make([]*core.CatalogObject, len(c.ordered))
	for i, id := range c.ordered {
		out[i] = c.objects[id]
	}
	return out
}

// Schemas returns the distinct schema names, sorted.
func (c *Catalog) Schemas() []string {
	var schemas []string
	for _, id := range c.ordered {
		if len(schemas) == 0 || schemas[len(schemas)-1] != id.Schema {
			schemas = append(schemas, id.Schema)
		}
	}
	return schemas
}

// CountByKind returns the number of objects of each kind.
func (c *Catalog) CountByKind() map[core.ObjectKind]int {
	counts := make(map[core.ObjectKind]int)
	for id := range c.objects {
		counts[id.Kind]++
	}
	return counts
}

// TriggersFor returns the triggers that execute fn.
func (c *Catalog) TriggersFor(fn core.ObjectID) []core.ObjectID {
	return c.triggersByFunction[fn]
}

// TriggerFunction returns the routine a trigger executes.
func (c *Catalog) TriggerFunction(trigger core.ObjectID) (core.ObjectID, bool) {
	id, ok := c.triggerFunctions[trigger]
	return id, ok
}

// TriggerTable returns the relation a trigger fires on.
func (c *Catalog) TriggerTable(trigger core.ObjectID) (core.ObjectID, bool) {
	id, ok := c.triggerTables[trigger]
	return id, ok
}

// SequencesOwnedBy returns sequences whose owned_by metadata names the table.
func (c *Catalog) SequencesOwnedBy(table core.ObjectID) []core.ObjectID {
	return c.sequencesByOwner[table]
}

func splitRef(ref string) []string {
	var parts []string
	start, quoted := 0, false
	for i := 0; i < len(ref); i++ {
		switch ref[i] {
		case '"':
			quoted = !quoted
		case '.':
			if !quoted {
				parts = append(parts, trimQuotes(ref[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, trimQuotes(ref[start:]))
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
