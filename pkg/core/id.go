package core

import (
	"cmp"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// ObjectID uniquely identifies a catalog entry.
// Schema and Name are stored case-folded, so two ObjectIDs built with
// NewObjectID compare equal with == exactly when they name the same object.
type ObjectID struct {
	Schema string     `json:"schema" yaml:"schema"`
	Name   string     `json:"name" yaml:"name"`
	Kind   ObjectKind `json:"kind" yaml:"kind"`
}

// NewObjectID creates a normalized ObjectID.
func NewObjectID(schema, name string, kind ObjectKind) ObjectID {
	return ObjectID{
		Schema: FoldIdentifier(schema),
		Name:   FoldIdentifier(name),
		Kind:   kind,
	}
}

// FoldIdentifier returns the case-normalized form of a SQL identifier.
func FoldIdentifier(s string) string {
	// cases.Caser carries state, so a fresh one is used per call.
	return cases.Fold().String(strings.TrimSpace(s))
}

// Qualified returns "schema.name".
func (id ObjectID) Qualified() string {
	return id.Schema + "." + id.Name
}

// Key returns the identity key used for hashing and ordering.
func (id ObjectID) Key() string {
	return id.Schema + "." + id.Name + ":" + string(id.Kind)
}

// String renders the id for humans, e.g. "public.orders (table)".
func (id ObjectID) String() string {
	return fmt.Sprintf("%s (%s)", id.Qualified(), id.Kind)
}

// IsZero reports whether the id is unset.
func (id ObjectID) IsZero() bool {
	return id.Schema == "" && id.Name == "" && id.Kind == ""
}

// CompareIDs orders ids by schema, name, then kind.
func CompareIDs(a, b ObjectID) int {
	if c := cmp.Compare(a.Schema, b.Schema); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Compare(a.Kind, b.Kind)
}

// ParseObjectRef parses "schema.name" or "schema.name:kind" into its parts.
// The kind is empty when not given.
func ParseObjectRef(ref string) (schema, name string, kind ObjectKind, err error) {
	body := ref
	if i := strings.LastIndex(ref, ":"); i >= 0 {
		body = ref[:i]
		kind, err = ParseObjectKind(ref[i+1:])
		if err != nil {
			return "", "", "", err
		}
	}
	schema, name, ok := strings.Cut(body, ".")
	if !ok || schema == "" || name == "" {
		return "", "", "", fmt.Errorf("object reference %q must be schema.name[:kind]", ref)
	}
	return FoldIdentifier(schema), FoldIdentifier(name), kind, nil
}
