// Package core defines the shared language of the pgdeps system.
//
// This package contains:
//   - Catalog identities (ObjectKind, ObjectID)
//   - Catalog entities (RawObject, CatalogObject, Attribute)
//   - Dependency edges (EdgeKind, EdgeKinds, Edge)
//   - The error taxonomy shared by every layer
//
// The Golden Rule: pkg/core imports ONLY stdlib, golang.org/x/text and yaml.v3.
// All other packages depend on core, not the reverse.
package core
