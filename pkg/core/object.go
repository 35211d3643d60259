package core

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Metadata keys understood by the extractor.
const (
	MetaTable    = "table"    // target relation of a trigger or index
	MetaFunction = "function" // function executed by a trigger
	MetaOwnedBy  = "owned_by" // owning column of a sequence: schema.table[.column]
	MetaLanguage = "language" // routine language
)

// Attribute is a column of a relation or a parameter of a routine.
type Attribute struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// UnmarshalYAML accepts either a mapping or the "name type" shorthand.
func (a *Attribute) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		name, typ, _ := strings.Cut(strings.TrimSpace(node.Value), " ")
		a.Name = name
		a.Type = strings.TrimSpace(typ)
		return nil
	}
	type plain Attribute
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*a = Attribute(p)
	return nil
}

// RawObject is one object descriptor as supplied by the catalog-query layer.
type RawObject struct {
	Schema     string            `json:"schema" yaml:"schema"`
	Name       string            `json:"name" yaml:"name"`
	Kind       string            `json:"kind" yaml:"kind"`
	Definition string            `json:"definition,omitempty" yaml:"definition,omitempty"`
	Attributes []Attribute       `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// CatalogObject is an ingested, immutable catalog entry.
type CatalogObject struct {
	ID         ObjectID
	Definition string
	Attributes []Attribute
	Metadata   map[string]string
}

// NewCatalogObject validates a raw row and converts it to a CatalogObject.
// Attributes and metadata are copied so the caller's row can be reused.
func NewCatalogObject(raw RawObject) (*CatalogObject, error) {
	if strings.TrimSpace(raw.Schema) == "" || strings.TrimSpace(raw.Name) == "" {
		return nil, fmt.Errorf("%w: schema and name are required (got %q.%q)", ErrInvalidObject, raw.Schema, raw.Name)
	}
	kind, err := ParseObjectKind(raw.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %v", ErrInvalidObject, raw.Schema, raw.Name, err)
	}

	obj := &CatalogObject{
		ID:         NewObjectID(raw.Schema, raw.Name, kind),
		Definition: raw.Definition,
	}
	if len(raw.Attributes) > 0 {
		obj.Attributes = append([]Attribute(nil), raw.Attributes...)
	}
	if len(raw.Metadata) > 0 {
		obj.Metadata = make(map[string]string, len(raw.Metadata))
		for k, v := range raw.Metadata {
			obj.Metadata[strings.ToLower(k)] = v
		}
	}
	return obj, nil
}

// Meta returns a metadata value, or "" when absent.
func (o *CatalogObject) Meta(key string) string {
	if o.Metadata == nil {
		return ""
	}
	return o.Metadata[key]
}
