// Package model defines the declarative model layer: record interfaces,
// per-type definitions with attribute and relationship setter tables, and
// the registry that maps wire type names to Go record types in both
// directions.
//
// Models are registered once, at store construction, from an explicit list
// of definitions. There is no global registry and no reflection-driven field
// injection: each definition carries a small setter table that dispatches
// wire attributes and relationship references onto statically declared
// struct fields.
package model

// Record is implemented by every materialized model instance. Records are
// identified by their wire type and id; the registry recovers the wire type
// from the record's Go type.
type Record interface {
	// RecordID returns the resource id this record was materialized under.
	RecordID() string
}

// RelationshipKind distinguishes to-many from to-one relationships.
type RelationshipKind int

const (
	// HasMany declares an ordered sequence of related records.
	HasMany RelationshipKind = iota
	// BelongsTo declares a single optional related record.
	BelongsTo
)

// String returns the string representation of the relationship kind.
func (k RelationshipKind) String() string {
	switch k {
	case HasMany:
		return "has_many"
	case BelongsTo:
		return "belongs_to"
	default:
		return "unknown"
	}
}

// AttributeSetter assigns one wire attribute onto a record. The value is
// the loosely decoded JSON value (string, float64, bool, nested map/slice)
// or nil for an explicit null; setters must tolerate nil and assign their
// field's zero value or clear a pointer.
type AttributeSetter func(rec Record, value any)

// Relationship declares one relationship field on a model: the wire type it
// points at, its cardinality, and the setter the materializer uses to wire
// resolved references onto the owning record. Exactly one of SetOne and
// SetMany is consulted, according to Kind.
type Relationship struct {
	// Target is the wire type name of the related model.
	Target string
	// Kind is the relationship cardinality.
	Kind RelationshipKind
	// SetOne assigns a to-one reference. related is nil when the linkage
	// was null or unresolvable.
	SetOne func(rec Record, related Record)
	// SetMany assigns a to-many reference, replacing the previous value.
	// related preserves document order and excludes unresolvable ids.
	SetMany func(rec Record, related []Record)
}

// Constructor builds a fresh record for an id. Constructors must be free of
// side effects beyond field initialization; in particular they must not
// trigger fetches.
type Constructor func(id string) Record

// Definition declares one model: its wire type name, its constructor, and
// the setter tables the materializer dispatches through. Definitions are
// immutable once registered.
type Definition struct {
	// Type is the wire type name, e.g. "articles".
	Type string
	// New constructs a record with the given id.
	New Constructor
	// Attributes maps wire attribute names to field setters. Wire
	// attributes with no entry here are ignored.
	Attributes map[string]AttributeSetter
	// Relationships maps relationship field names to their declarations.
	// Wire relationships with no entry here are skipped or rejected
	// according to the store's unknown-relationship policy.
	Relationships map[string]Relationship
}
