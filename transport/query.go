package transport

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/sideload-dev/sideload/store"
)

// encodeOptions serializes request options into JSON:API query parameters:
// fields[type] for sparse fieldsets, page[size]/page[number] for
// pagination, comma-joined include, and filter. Field types are emitted in
// sorted order so identical options always produce the same query string,
// which keeps cache keys stable.
func encodeOptions(opts *store.Options) url.Values {
	values := url.Values{}
	if opts == nil {
		return values
	}

	if len(opts.Include) > 0 {
		values.Set("include", strings.Join(opts.Include, ","))
	}

	if len(opts.Fields) > 0 {
		types := make([]string, 0, len(opts.Fields))
		for typeName := range opts.Fields {
			types = append(types, typeName)
		}
		sort.Strings(types)
		for _, typeName := range types {
			values.Set("fields["+typeName+"]", strings.Join(opts.Fields[typeName], ","))
		}
	}

	if opts.Page != nil {
		if opts.Page.Size > 0 {
			values.Set("page[size]", strconv.Itoa(opts.Page.Size))
		}
		if opts.Page.Number > 0 {
			values.Set("page[number]", strconv.Itoa(opts.Page.Number))
		}
	}

	if opts.Filter != "" {
		values.Set("filter", opts.Filter)
	}

	return values
}
