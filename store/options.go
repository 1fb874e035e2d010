package store

// Page selects one page of a collection.
type Page struct {
	Size   int
	Number int
}

// Options are the request parameters the store passes through to the
// fetcher opaquely; the HTTP fetcher serializes them onto the query string.
type Options struct {
	// Fields restricts the attributes returned per type (sparse
	// fieldsets), keyed by wire type name.
	Fields map[string][]string
	// Page selects a collection page.
	Page *Page
	// Include names the relationships to side-load.
	Include []string
	// Filter is an opaque server-side filter expression.
	Filter string
}
