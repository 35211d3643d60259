// Package extract recovers cross-object references from definition text.
//
// Extraction is identifier matching against a known catalog, not SQL
// parsing: the text is tokenized, each candidate name is classified by the
// syntax around it (relation keyword, call parentheses, type position,
// sequence literal, trigger header) and then bound to catalog objects of a
// kind consistent with that position.
//
// Names that cannot be bound with certainty are reported as Unresolved
// instead of guessed. A bare name matching objects in two schemas is
// ambiguous; a name in a reference position that matches nothing is unknown.
//
// # Basic Usage
//
//	cat, err := catalog.Ingest(rows)
//	if err != nil {
//	    return err
//	}
//	obj, _ := cat.Get(id)
//	res := extract.Heuristic{}.Extract(obj, cat)
//	for _, ref := range res.References {
//	    fmt.Printf("%s -> %s (%s)\n", obj.ID, ref.Target, ref.Kind)
//	}
package extract
