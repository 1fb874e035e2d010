package store

import (
	"context"

	"github.com/sideload-dev/sideload/jsonapi"
)

// Fetcher performs the HTTP round trips on the store's behalf and returns
// parsed documents. The store is transport-agnostic: it never inspects
// URLs, status codes, or headers, only the returned document. All retry,
// timeout, and cancellation policy belongs to the fetcher.
//
// The transport package provides the production implementation.
type Fetcher interface {
	// FetchDocument fetches a collection (id empty) or a single resource
	// (id set) of the given type.
	FetchDocument(ctx context.Context, typeName, id string, opts *Options) (*jsonapi.Document, error)

	// FetchHasMany fetches the related collection behind a to-many
	// relationship.
	FetchHasMany(ctx context.Context, typeName, id, relationship string, opts *Options) (*jsonapi.Document, error)

	// FetchBelongsTo fetches the related resource behind a to-one
	// relationship.
	FetchBelongsTo(ctx context.Context, typeName, id, relationship string, opts *Options) (*jsonapi.Document, error)

	// Post writes a resource to the server and returns the server's
	// document for it.
	Post(ctx context.Context, res *jsonapi.Resource) (*jsonapi.Document, error)
}
