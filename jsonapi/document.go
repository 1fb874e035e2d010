// Package jsonapi defines the wire-format types exchanged with a JSON:API
// server: resources, resource identifiers, relationship linkage, and the
// top-level document. The types are passive data shapes; all graph semantics
// (identity mapping, relationship wiring) live elsewhere.
package jsonapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ResourceIdentifier is a bare {type, id} pointer used in relationship
// linkage. Identifiers are never stored; they are resolved against the
// identity map during materialization.
type ResourceIdentifier struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Linkage is the value of a relationship's "data" member. JSON:API allows
// three shapes there and the distinction carries meaning: null clears a
// to-one reference, a single identifier points at one resource, and an
// array carries to-many linkage. Linkage preserves which shape was on the
// wire.
type Linkage struct {
	// Null is true when the wire value was an explicit null.
	Null bool
	// One holds the identifier for single-resource linkage.
	One *ResourceIdentifier
	// Many holds the identifiers for to-many linkage. A non-nil empty
	// slice means an empty array was on the wire.
	Many []ResourceIdentifier
}

// IsMany reports whether the linkage carried an identifier array.
func (l *Linkage) IsMany() bool {
	return l.Many != nil
}

// UnmarshalJSON decodes null, object, or array linkage.
func (l *Linkage) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		l.Null = true
		return nil
	}

	switch trimmed[0] {
	case '[':
		many := []ResourceIdentifier{}
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return fmt.Errorf("invalid to-many linkage: %w", err)
		}
		l.Many = many
	case '{':
		var one ResourceIdentifier
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return fmt.Errorf("invalid to-one linkage: %w", err)
		}
		l.One = &one
	default:
		return fmt.Errorf("invalid relationship linkage: %s", string(trimmed))
	}
	return nil
}

// MarshalJSON encodes the linkage back into its wire shape.
func (l Linkage) MarshalJSON() ([]byte, error) {
	switch {
	case l.Many != nil:
		return json.Marshal(l.Many)
	case l.One != nil:
		return json.Marshal(l.One)
	default:
		return []byte("null"), nil
	}
}

// Relationship is a single entry in a resource's "relationships" map.
type Relationship struct {
	Data  Linkage        `json:"data"`
	Links map[string]any `json:"links,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// Resource is one server-side entity in wire format. Attribute values are
// decoded loosely (strings, float64, bool, nil, nested maps/slices); typed
// assignment happens in the model layer's setter tables. Resources are
// consumed during materialization and never retained.
type Resource struct {
	ID            string                  `json:"id"`
	Type          string                  `json:"type"`
	Attributes    map[string]any          `json:"attributes,omitempty"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
	Links         map[string]any          `json:"links,omitempty"`
	Meta          map[string]any          `json:"meta,omitempty"`
}

// Identifier returns the resource's {type, id} pointer.
func (r *Resource) Identifier() ResourceIdentifier {
	return ResourceIdentifier{ID: r.ID, Type: r.Type}
}

// PrimaryData is the top-level "data" member, which is either a single
// resource or an ordered resource array depending on the endpoint.
type PrimaryData struct {
	// One holds single-resource primary data.
	One *Resource
	// Many holds collection primary data. A non-nil empty slice means an
	// empty array was on the wire.
	Many []Resource
	// Null is true when the wire value was an explicit null (legal for an
	// empty to-one related-resource response).
	Null bool
}

// UnmarshalJSON decodes single-resource, collection, or null primary data.
func (p *PrimaryData) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		p.Null = true
		return nil
	}

	switch trimmed[0] {
	case '[':
		many := []Resource{}
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return fmt.Errorf("invalid collection data: %w", err)
		}
		p.Many = many
	case '{':
		var one Resource
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return fmt.Errorf("invalid resource data: %w", err)
		}
		p.One = &one
	default:
		return fmt.Errorf("invalid primary data: %s", string(trimmed))
	}
	return nil
}

// MarshalJSON encodes the primary data back into its wire shape.
func (p PrimaryData) MarshalJSON() ([]byte, error) {
	switch {
	case p.Many != nil:
		return json.Marshal(p.Many)
	case p.One != nil:
		return json.Marshal(p.One)
	default:
		return []byte("null"), nil
	}
}

// Resources returns the primary resources as a slice regardless of the wire
// shape: a collection yields itself, a single resource yields a one-element
// slice, and null yields nil.
func (p *PrimaryData) Resources() []Resource {
	switch {
	case p.Many != nil:
		return p.Many
	case p.One != nil:
		return []Resource{*p.One}
	default:
		return nil
	}
}

// ErrorObject is a JSON:API error, passed through to callers untouched.
type ErrorObject struct {
	ID     string         `json:"id,omitempty"`
	Status string         `json:"status,omitempty"`
	Code   string         `json:"code,omitempty"`
	Title  string         `json:"title,omitempty"`
	Detail string         `json:"detail,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// Error implements the error interface so a server error object can be
// wrapped and propagated directly.
func (e *ErrorObject) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("jsonapi: %s: %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("jsonapi: %s", e.Title)
}

// Document is the unit of exchange with a JSON:API server: primary data,
// optionally side-loaded included resources, and top-level meta/links.
//
// The nil-ness of Included is significant downstream: a document that
// omitted "included" entirely (nil) leaves previously wired relationships
// untouched during materialization, while a present-but-empty array still
// triggers relationship wiring.
type Document struct {
	Data     *PrimaryData   `json:"data,omitempty"`
	Included []Resource     `json:"included,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`
	Links    map[string]any `json:"links,omitempty"`
	Errors   []ErrorObject  `json:"errors,omitempty"`
}

// MarshalJSON emits the document, keeping a present-but-empty included
// array on the wire instead of dropping it. Receivers treat an absent
// "included" member differently from an empty one, so omitempty would
// change meaning here.
func (d Document) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if d.Data != nil {
		out["data"] = d.Data
	}
	if d.Included != nil {
		out["included"] = d.Included
	}
	if len(d.Meta) > 0 {
		out["meta"] = d.Meta
	}
	if len(d.Links) > 0 {
		out["links"] = d.Links
	}
	if len(d.Errors) > 0 {
		out["errors"] = d.Errors
	}
	return json.Marshal(out)
}

// Decode parses a wire document.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return &doc, nil
}

// PrimaryResources returns the document's primary resources as a flat
// slice, or nil when the document has no data member.
func (d *Document) PrimaryResources() []Resource {
	if d.Data == nil {
		return nil
	}
	return d.Data.Resources()
}

// Err returns the document's first error object as an error, or nil when
// the document carries no errors.
func (d *Document) Err() error {
	if len(d.Errors) == 0 {
		return nil
	}
	return &d.Errors[0]
}
