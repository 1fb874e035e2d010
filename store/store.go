// Package store exposes the client-side record store: a façade over the
// model registry, the per-type identity map, and the graph materializer,
// with a pluggable fetcher doing the network round trips.
//
// A store owns all of its state. Two stores share nothing, including model
// registrations; the definition list is passed at construction and is
// immutable afterward.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sideload-dev/sideload/internal/graph"
	"github.com/sideload-dev/sideload/internal/identity"
	"github.com/sideload-dev/sideload/jsonapi"
	"github.com/sideload-dev/sideload/model"
)

// UnknownRelationshipPolicy controls how materialization treats wire
// linkage naming a relationship the owning model never declared.
type UnknownRelationshipPolicy int

const (
	// SkipUnknownRelationships silently ignores undeclared wire
	// relationships. This is the default: servers may emit more linkage
	// than a client declares interest in.
	SkipUnknownRelationships UnknownRelationshipPolicy = iota
	// ErrorOnUnknownRelationships fails the operation instead.
	ErrorOnUnknownRelationships
)

// Config configures a store.
type Config struct {
	// Models is the declarative registration table. Required.
	Models []model.Definition
	// Fetcher performs network round trips. A store without a fetcher
	// still supports local operations (CreateRecord, UnloadAll, reads).
	Fetcher Fetcher
	// Logger is optional; nil disables logging.
	Logger *zap.Logger
	// UnknownRelationships selects the undeclared-linkage policy.
	UnknownRelationships UnknownRelationshipPolicy
}

// Store is the record store façade.
type Store struct {
	registry *model.Registry
	identity *identity.Map
	graph    *graph.Materializer
	fetcher  Fetcher
	log      *zap.Logger
	obs      *observers
}

// Result pairs the records materialized from a collection fetch with the
// raw document, whose meta and links carry pagination state.
type Result struct {
	Records  []model.Record
	Document *jsonapi.Document
}

// New creates a store from a definition list.
func New(cfg Config) (*Store, error) {
	registry, err := model.NewRegistry(cfg.Models)
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	policy := graph.SkipUnknownRelationships
	if cfg.UnknownRelationships == ErrorOnUnknownRelationships {
		policy = graph.ErrorOnUnknownRelationships
	}

	idmap := identity.NewMap(registry)
	return &Store{
		registry: registry,
		identity: idmap,
		graph:    graph.NewMaterializer(registry, idmap, policy, log),
		fetcher:  cfg.Fetcher,
		log:      log,
		obs:      newObservers(),
	}, nil
}

// Registry exposes the store's model registry for introspection.
func (s *Store) Registry() *model.Registry {
	return s.registry
}

// Subscribe registers an observer for store events and returns its cancel
// function. Observers run synchronously after the triggering operation.
func (s *Store) Subscribe(fn func(Event)) func() {
	return s.obs.subscribe(fn)
}

// Record returns the live record for (typeName, id) without fetching.
func (s *Store) Record(typeName, id string) (model.Record, bool) {
	return s.identity.Lookup(typeName, id)
}

// RecordsOf returns every live record of one type, in unspecified order.
func (s *Store) RecordsOf(typeName string) ([]model.Record, error) {
	return s.identity.All(typeName)
}

// CreateRecord materializes a bare local record with no relationships
// resolved and registers it in the identity map. An empty id gets a
// client-generated UUID. Used for optimistic local creation ahead of a
// network round trip.
func (s *Store) CreateRecord(typeName, id string, attributes map[string]any) (model.Record, error) {
	if id == "" {
		id = uuid.NewString()
	}
	rec, err := s.graph.MaterializeOne(typeName, &jsonapi.Resource{
		ID:         id,
		Type:       typeName,
		Attributes: attributes,
	})
	if err != nil {
		return nil, fmt.Errorf("create record %s: %w", typeName, err)
	}

	s.log.Debug("record created locally",
		zap.String("type", typeName),
		zap.String("id", id))
	s.obs.notify(Event{Kind: RecordsChanged, Type: typeName, IDs: []string{id}})
	return rec, nil
}

// SaveNew posts a new resource to the server and materializes the server's
// response, which may carry a server-assigned id and computed attributes.
func (s *Store) SaveNew(ctx context.Context, typeName, id string, attributes map[string]any) (model.Record, error) {
	if s.fetcher == nil {
		return nil, ErrNoFetcher
	}
	if !s.registry.Exists(typeName) {
		return nil, fmt.Errorf("%w: %s", model.ErrModelNotDefined, typeName)
	}

	doc, err := s.fetcher.Post(ctx, &jsonapi.Resource{
		ID:         id,
		Type:       typeName,
		Attributes: attributes,
	})
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", typeName, err)
	}
	if err := doc.Err(); err != nil {
		return nil, err
	}

	records, err := s.graph.Materialize(typeName, doc.PrimaryResources(), doc.Included)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("save %s: %w", typeName, ErrRecordNotFound)
	}

	rec := records[0]
	s.obs.notify(Event{Kind: RecordsChanged, Type: typeName, IDs: []string{rec.RecordID()}})
	return rec, nil
}

// FindAll fetches a collection and materializes it.
func (s *Store) FindAll(ctx context.Context, typeName string, opts *Options) (*Result, error) {
	if s.fetcher == nil {
		return nil, ErrNoFetcher
	}
	if !s.registry.Exists(typeName) {
		return nil, fmt.Errorf("%w: %s", model.ErrModelNotDefined, typeName)
	}

	doc, err := s.fetcher.FetchDocument(ctx, typeName, "", opts)
	if err != nil {
		return nil, fmt.Errorf("find all %s: %w", typeName, err)
	}
	if err := doc.Err(); err != nil {
		return nil, err
	}

	records, err := s.graph.Materialize(typeName, doc.PrimaryResources(), doc.Included)
	if err != nil {
		return nil, err
	}

	s.notifyChanged(typeName, records)
	return &Result{Records: records, Document: doc}, nil
}

// FindRecord returns the record for (typeName, id), reading from the
// identity map first: a record already materialized is returned without a
// network call, accepting staleness in exchange for skipping the round
// trip. On a miss it fetches a single-resource document and materializes
// it.
func (s *Store) FindRecord(ctx context.Context, typeName, id string, opts *Options) (model.Record, error) {
	if !s.registry.Exists(typeName) {
		return nil, fmt.Errorf("%w: %s", model.ErrModelNotDefined, typeName)
	}
	if rec, ok := s.identity.Lookup(typeName, id); ok {
		return rec, nil
	}
	if s.fetcher == nil {
		return nil, ErrNoFetcher
	}

	doc, err := s.fetcher.FetchDocument(ctx, typeName, id, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", typeName, id, err)
	}
	if err := doc.Err(); err != nil {
		return nil, err
	}

	records, err := s.graph.Materialize(typeName, doc.PrimaryResources(), doc.Included)
	if err != nil {
		return nil, err
	}

	rec, ok := s.identity.Lookup(typeName, id)
	if !ok {
		return nil, fmt.Errorf("find %s/%s: %w", typeName, id, ErrRecordNotFound)
	}

	s.notifyChanged(typeName, records)
	return rec, nil
}

// FindRelated fetches the related resources behind one declared
// relationship of an already materialized record and assigns them onto the
// record directly. There is a single owning record here, so the two-pass
// document walk is unnecessary. The raw document is returned for its meta
// and links.
func (s *Store) FindRelated(ctx context.Context, rec model.Record, relationship string, opts *Options) (*jsonapi.Document, error) {
	if s.fetcher == nil {
		return nil, ErrNoFetcher
	}

	def, err := s.registry.DefinitionFor(rec)
	if err != nil {
		return nil, err
	}
	spec, ok := def.Relationships[relationship]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUndeclaredRelationship, def.Type, relationship)
	}

	var doc *jsonapi.Document
	switch spec.Kind {
	case model.HasMany:
		doc, err = s.fetcher.FetchHasMany(ctx, def.Type, rec.RecordID(), relationship, opts)
	case model.BelongsTo:
		doc, err = s.fetcher.FetchBelongsTo(ctx, def.Type, rec.RecordID(), relationship, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("find related %s.%s: %w", def.Type, relationship, err)
	}
	if err := doc.Err(); err != nil {
		return nil, err
	}

	related := make([]model.Record, 0)
	for _, res := range doc.PrimaryResources() {
		r, err := s.graph.MaterializeOne(spec.Target, &res)
		if err != nil {
			return nil, err
		}
		related = append(related, r)
	}

	switch spec.Kind {
	case model.HasMany:
		spec.SetMany(rec, related)
	case model.BelongsTo:
		if len(related) > 0 {
			spec.SetOne(rec, related[0])
		} else {
			spec.SetOne(rec, nil)
		}
	}

	s.notifyChanged(spec.Target, related)
	return doc, nil
}

// UnloadAll drops every record in the identity map. There is no targeted
// eviction; a subsequent FindRecord for any previously resolved id fetches
// again.
func (s *Store) UnloadAll() {
	s.identity.Clear()
	s.log.Debug("identity map cleared")
	s.obs.notify(Event{Kind: StoreCleared})
}

func (s *Store) notifyChanged(typeName string, records []model.Record) {
	if len(records) == 0 {
		return
	}
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.RecordID()
	}
	s.obs.notify(Event{Kind: RecordsChanged, Type: typeName, IDs: ids})
}
