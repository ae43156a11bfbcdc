// Package schemaview resolves raw schema definitions into denormalized
// per-class views.
//
// # Overview
//
// A SchemaView wraps one immutable schema and answers questions that require
// walking the inheritance graph: the full ancestor chain of a class, its
// descendants, and its induced slot map with inheritance, mixins, and
// slot_usage overrides applied.
//
// # Override Precedence
//
// For any slot name visible on a class, the effective definition is layered,
// highest precedence first:
//
//   - the class's own slot_usage entry
//   - the class's own attribute declarations
//   - mixin-contributed definitions (later mixins win)
//   - ancestor-contributed definitions (nearest ancestor wins)
//   - the slot's schema-level base definition
//
// The base definition always ranks lowest: a class that merely re-lists an
// inherited slot in its slots list does not reset overrides contributed by
// mixins or ancestors.
//
// # Caching and Concurrency
//
// Induced views are built lazily on first request and cached for the life of
// the SchemaView. The cache is insert-if-absent and safe for concurrent
// readers; concurrent first-time resolution of different classes is safe.
// A changed schema requires constructing a new SchemaView.
//
// # Errors
//
// Resolution fails with NotFoundError for unknown classes, a
// CyclicInheritanceError naming the cycle when is_a or mixin chains loop,
// and AmbiguousIdentifierError when more than one induced slot is flagged
// as identifier.
package schemaview
