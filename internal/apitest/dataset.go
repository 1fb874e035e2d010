// Package apitest provides an in-repo JSON:API server for integration
// tests and the CLI's serve command: a small resource dataset, a chi
// router that speaks the wire format the store consumes, optional bearer
// auth, and a SQL loader for serving real rows.
package apitest

import (
	"sync"

	"github.com/sideload-dev/sideload/jsonapi"
)

// Dataset holds wire-format resources by type and id, preserving insertion
// order per type so collection responses are deterministic.
type Dataset struct {
	mu        sync.RWMutex
	resources map[string]map[string]*jsonapi.Resource
	order     map[string][]string
}

// NewDataset creates an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		resources: make(map[string]map[string]*jsonapi.Resource),
		order:     make(map[string][]string),
	}
}

// Put stores a resource, replacing any previous resource with the same
// type and id.
func (d *Dataset) Put(res *jsonapi.Resource) {
	d.mu.Lock()
	defer d.mu.Unlock()

	bucket, ok := d.resources[res.Type]
	if !ok {
		bucket = make(map[string]*jsonapi.Resource)
		d.resources[res.Type] = bucket
	}
	if _, exists := bucket[res.ID]; !exists {
		d.order[res.Type] = append(d.order[res.Type], res.ID)
	}
	bucket[res.ID] = res
}

// Get returns the resource for (typeName, id).
func (d *Dataset) Get(typeName, id string) (*jsonapi.Resource, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	res, ok := d.resources[typeName][id]
	return res, ok
}

// List returns every resource of one type in insertion order.
func (d *Dataset) List(typeName string) []*jsonapi.Resource {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := d.order[typeName]
	out := make([]*jsonapi.Resource, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.resources[typeName][id])
	}
	return out
}

// HasType reports whether any resource of the type was ever stored.
func (d *Dataset) HasType(typeName string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.resources[typeName]
	return ok
}

// Fixture returns the canonical bikeshed dataset: one article with two
// comments and an author, mirroring the example document from the JSON:API
// specification.
func Fixture() *Dataset {
	d := NewDataset()

	d.Put(&jsonapi.Resource{
		ID:   "9",
		Type: "people",
		Attributes: map[string]any{
			"firstName": "Dan",
			"lastName":  "Gebhardt",
			"twitter":   "dgeb",
		},
	})
	d.Put(&jsonapi.Resource{
		ID:         "5",
		Type:       "comments",
		Attributes: map[string]any{"body": "First!"},
	})
	d.Put(&jsonapi.Resource{
		ID:         "12",
		Type:       "comments",
		Attributes: map[string]any{"body": "I like XML better"},
	})
	d.Put(&jsonapi.Resource{
		ID:         "1",
		Type:       "articles",
		Attributes: map[string]any{"title": "JSON:API paints my bikeshed!"},
		Relationships: map[string]jsonapi.Relationship{
			"author": {
				Data: jsonapi.Linkage{One: &jsonapi.ResourceIdentifier{ID: "9", Type: "people"}},
			},
			"comments": {
				Data: jsonapi.Linkage{Many: []jsonapi.ResourceIdentifier{
					{ID: "5", Type: "comments"},
					{ID: "12", Type: "comments"},
				}},
			},
		},
	})

	return d
}
