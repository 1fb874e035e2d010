// Package graph implements the resource-graph materialization engine: it
// turns a wire document's primary and side-loaded resources into
// identity-mapped records and wires declared relationships between them.
package graph

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sideload-dev/sideload/internal/identity"
	"github.com/sideload-dev/sideload/jsonapi"
	"github.com/sideload-dev/sideload/model"
)

// UnknownRelationshipPolicy controls what happens when wire linkage names a
// relationship the owning model never declared. Servers commonly emit more
// linkage than a client declares interest in, so skipping is the default;
// rejecting is available for clients that want the mismatch surfaced.
type UnknownRelationshipPolicy int

const (
	// SkipUnknownRelationships silently ignores undeclared wire
	// relationships.
	SkipUnknownRelationships UnknownRelationshipPolicy = iota
	// ErrorOnUnknownRelationships fails materialization when wire linkage
	// names an undeclared relationship.
	ErrorOnUnknownRelationships
)

// Materializer runs the two-pass materialization algorithm against one
// registry and one identity map. It is fully synchronous; any fetching
// happened before a document reaches it.
type Materializer struct {
	registry *model.Registry
	identity *identity.Map
	policy   UnknownRelationshipPolicy
	log      *zap.Logger
}

// NewMaterializer creates a materializer. A nil logger disables logging.
func NewMaterializer(registry *model.Registry, idmap *identity.Map, policy UnknownRelationshipPolicy, log *zap.Logger) *Materializer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Materializer{
		registry: registry,
		identity: idmap,
		policy:   policy,
		log:      log,
	}
}

// Materialize converts a document's resources into identity-mapped records.
//
// Pass one creates or updates a record for every resource, included first,
// then primary; a resource appearing in both resolves to the single
// identity-mapped instance. Pass two wires declared relationships by
// resolving linkage identifiers against the identity map. Pass two only
// runs when the document carried an included member at all (a non-nil
// slice, even an empty one): responses without side-loaded data leave
// previously wired relationship fields untouched rather than clearing
// them.
//
// The returned records correspond 1:1 and in order to primary, never to
// included.
func (m *Materializer) Materialize(rootType string, primary, included []jsonapi.Resource) ([]model.Record, error) {
	if !m.registry.Exists(rootType) {
		return nil, fmt.Errorf("%w: %s", model.ErrModelNotDefined, rootType)
	}

	for i := range included {
		if _, err := m.materialize(rootType, &included[i]); err != nil {
			return nil, err
		}
	}
	records := make([]model.Record, 0, len(primary))
	for i := range primary {
		rec, err := m.materialize(rootType, &primary[i])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if included != nil {
		for i := range included {
			if err := m.link(rootType, &included[i]); err != nil {
				return nil, err
			}
		}
		for i := range primary {
			if err := m.link(rootType, &primary[i]); err != nil {
				return nil, err
			}
		}
	}

	return records, nil
}

// MaterializeOne creates or updates the record for a single resource
// without touching relationships. Used for targeted updates where the
// caller wires references itself.
func (m *Materializer) MaterializeOne(rootType string, res *jsonapi.Resource) (model.Record, error) {
	if !m.registry.Exists(rootType) {
		return nil, fmt.Errorf("%w: %s", model.ErrModelNotDefined, rootType)
	}
	return m.materialize(rootType, res)
}

// resourceType resolves a resource's wire type, falling back to the root
// type for servers that omit type on single-resource endpoints.
func resourceType(rootType string, res *jsonapi.Resource) string {
	if res.Type != "" {
		return res.Type
	}
	return rootType
}

func (m *Materializer) materialize(rootType string, res *jsonapi.Resource) (model.Record, error) {
	typeName := resourceType(rootType, res)
	def, err := m.registry.Definition(typeName)
	if err != nil {
		return nil, err
	}

	rec, err := m.identity.GetOrCreate(typeName, res.ID)
	if err != nil {
		return nil, err
	}
	applyAttributes(def, rec, res.Attributes)
	return rec, nil
}

// applyAttributes overwrites record fields from wire attributes through the
// model's setter table. Keys absent from the payload are left untouched, so
// repeated fetches with different sparse fieldsets merge instead of
// clobbering. Keys present with an explicit null do overwrite: null is a
// value. Keys with no declared setter are ignored.
func applyAttributes(def *model.Definition, rec model.Record, attributes map[string]any) {
	for name, value := range attributes {
		setter, ok := def.Attributes[name]
		if !ok {
			continue
		}
		setter(rec, value)
	}
}

func (m *Materializer) link(rootType string, res *jsonapi.Resource) error {
	if len(res.Relationships) == 0 {
		return nil
	}

	typeName := resourceType(rootType, res)
	def, err := m.registry.Definition(typeName)
	if err != nil {
		return err
	}
	owner, ok := m.identity.Lookup(typeName, res.ID)
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrMissingOwner, typeName, res.ID)
	}

	for name, wire := range res.Relationships {
		spec, declared := def.Relationships[name]
		if !declared {
			if m.policy == ErrorOnUnknownRelationships {
				return fmt.Errorf("%w: %s.%s", ErrUnknownRelationship, typeName, name)
			}
			m.log.Debug("skipping undeclared relationship",
				zap.String("type", typeName),
				zap.String("relationship", name))
			continue
		}

		switch spec.Kind {
		case model.HasMany:
			spec.SetMany(owner, m.resolveMany(wire.Data))
		case model.BelongsTo:
			spec.SetOne(owner, m.resolveOne(wire.Data))
		}
	}
	return nil
}

// resolveMany resolves to-many linkage against the identity map, preserving
// document order. Identifiers that resolve to nothing are dropped, not
// errors: the server referenced a resource this document did not carry.
func (m *Materializer) resolveMany(linkage jsonapi.Linkage) []model.Record {
	idents := linkage.Many
	if idents == nil && linkage.One != nil {
		idents = []jsonapi.ResourceIdentifier{*linkage.One}
	}

	related := make([]model.Record, 0, len(idents))
	for _, ident := range idents {
		rec, ok := m.identity.Lookup(ident.Type, ident.ID)
		if !ok {
			m.log.Debug("dropping unresolvable relationship identifier",
				zap.String("type", ident.Type),
				zap.String("id", ident.ID))
			continue
		}
		related = append(related, rec)
	}
	return related
}

// resolveOne resolves to-one linkage. Explicit null and unresolvable
// identifiers both yield nil; the distinction does not survive
// materialization.
func (m *Materializer) resolveOne(linkage jsonapi.Linkage) model.Record {
	if linkage.Null || linkage.One == nil {
		return nil
	}
	rec, ok := m.identity.Lookup(linkage.One.Type, linkage.One.ID)
	if !ok {
		m.log.Debug("dropping unresolvable relationship identifier",
			zap.String("type", linkage.One.Type),
			zap.String("id", linkage.One.ID))
		return nil
	}
	return rec
}
