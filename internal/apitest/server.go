package apitest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sideload-dev/sideload/jsonapi"
)

const contentType = "application/vnd.api+json"

// Server is a JSON:API server over a Dataset. It understands include,
// fields[type], page[size]/page[number], and filter, and exposes
// relationship endpoints at /{type}/{id}/{relationship}.
type Server struct {
	data   *Dataset
	tokens *TokenService
	log    *zap.Logger
	router chi.Router
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAuth requires a valid bearer token on every request.
func WithAuth(tokens *TokenService) ServerOption {
	return func(s *Server) { s.tokens = tokens }
}

// WithServerLogger sets the request logger.
func WithServerLogger(log *zap.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// NewServer creates a server over a dataset.
func NewServer(data *Dataset, opts ...ServerOption) *Server {
	s := &Server{
		data: data,
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	if s.tokens != nil {
		r.Use(s.tokens.Middleware)
	}
	r.Get("/{type}", s.handleCollection)
	r.Post("/{type}", s.handleCreate)
	r.Get("/{type}/{id}", s.handleResource)
	r.Get("/{type}/{id}/{relationship}", s.handleRelated)
	s.router = r

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.log.Debug("fixture server request",
		zap.String("method", r.Method),
		zap.String("url", r.URL.String()))
	s.router.ServeHTTP(w, r)
}

// request-scoped query parameters
type params struct {
	// include is nil when the parameter was absent; the distinction
	// controls whether the response carries an included member at all.
	include  []string
	fields   map[string][]string
	pageSize int
	pageNum  int
	filter   string
}

func parseParams(r *http.Request) params {
	q := r.URL.Query()
	p := params{
		fields: map[string][]string{},
		filter: q.Get("filter"),
	}

	if raw, ok := q["include"]; ok && len(raw) > 0 {
		p.include = []string{}
		for _, name := range strings.Split(raw[0], ",") {
			if name = strings.TrimSpace(name); name != "" {
				p.include = append(p.include, name)
			}
		}
	}

	for key, values := range q {
		if strings.HasPrefix(key, "fields[") && strings.HasSuffix(key, "]") && len(values) > 0 {
			typeName := key[len("fields[") : len(key)-1]
			p.fields[typeName] = strings.Split(values[0], ",")
		}
	}

	p.pageSize, _ = strconv.Atoi(q.Get("page[size]"))
	p.pageNum, _ = strconv.Atoi(q.Get("page[number]"))
	return p
}

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")
	if !s.data.HasType(typeName) {
		writeError(w, http.StatusNotFound, "Not Found", "unknown resource type "+typeName)
		return
	}

	p := parseParams(r)
	resources := s.data.List(typeName)
	if p.filter != "" {
		resources = filterResources(resources, p.filter)
	}

	total := len(resources)
	resources = paginate(resources, p.pageSize, p.pageNum)

	doc := s.buildDocument(resources, p)
	doc.Data = &jsonapi.PrimaryData{Many: dereference(resources, p.fields)}
	doc.Meta = map[string]any{"total": total}
	doc.Links = map[string]any{"self": r.URL.String()}
	writeDocument(w, http.StatusOK, doc)
}

func (s *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")

	res, ok := s.data.Get(typeName, id)
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found", typeName+"/"+id+" does not exist")
		return
	}

	p := parseParams(r)
	primary := []*jsonapi.Resource{res}
	doc := s.buildDocument(primary, p)
	one := sparse(res, p.fields)
	doc.Data = &jsonapi.PrimaryData{One: &one}
	writeDocument(w, http.StatusOK, doc)
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")
	relName := chi.URLParam(r, "relationship")

	res, ok := s.data.Get(typeName, id)
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found", typeName+"/"+id+" does not exist")
		return
	}
	rel, ok := res.Relationships[relName]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found", "no relationship "+relName+" on "+typeName)
		return
	}

	p := parseParams(r)
	doc := &jsonapi.Document{}
	switch {
	case rel.Data.IsMany():
		related := make([]*jsonapi.Resource, 0, len(rel.Data.Many))
		for _, ident := range rel.Data.Many {
			if target, ok := s.data.Get(ident.Type, ident.ID); ok {
				related = append(related, target)
			}
		}
		doc.Data = &jsonapi.PrimaryData{Many: dereference(related, p.fields)}
	case rel.Data.One != nil:
		if target, ok := s.data.Get(rel.Data.One.Type, rel.Data.One.ID); ok {
			one := sparse(target, p.fields)
			doc.Data = &jsonapi.PrimaryData{One: &one}
		} else {
			doc.Data = &jsonapi.PrimaryData{Null: true}
		}
	default:
		doc.Data = &jsonapi.PrimaryData{Null: true}
	}
	writeDocument(w, http.StatusOK, doc)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")

	var doc jsonapi.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", "malformed document: "+err.Error())
		return
	}
	if doc.Data == nil || doc.Data.One == nil {
		writeError(w, http.StatusBadRequest, "Bad Request", "document must carry a single primary resource")
		return
	}

	res := *doc.Data.One
	if res.Type == "" {
		res.Type = typeName
	}
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	s.data.Put(&res)

	out := &jsonapi.Document{Data: &jsonapi.PrimaryData{One: &res}}
	writeDocument(w, http.StatusCreated, out)
}

// buildDocument fills the included member by resolving the requested
// relationship names of every primary resource against the dataset.
// Included stays nil when the request had no include parameter, so the
// client's link pass is only triggered when side-loading was asked for.
func (s *Server) buildDocument(primary []*jsonapi.Resource, p params) *jsonapi.Document {
	doc := &jsonapi.Document{}
	if p.include == nil {
		return doc
	}

	doc.Included = []jsonapi.Resource{}
	seen := map[jsonapi.ResourceIdentifier]bool{}
	for _, res := range primary {
		for _, name := range p.include {
			rel, ok := res.Relationships[name]
			if !ok {
				continue
			}
			idents := rel.Data.Many
			if idents == nil && rel.Data.One != nil {
				idents = []jsonapi.ResourceIdentifier{*rel.Data.One}
			}
			for _, ident := range idents {
				if seen[ident] {
					continue
				}
				seen[ident] = true
				if target, ok := s.data.Get(ident.Type, ident.ID); ok {
					doc.Included = append(doc.Included, sparse(target, p.fields))
				}
			}
		}
	}
	return doc
}

// sparse copies a resource, restricting attributes to the requested sparse
// fieldset for its type. Resources are copied so dataset entries are never
// mutated by serving a request.
func sparse(res *jsonapi.Resource, fields map[string][]string) jsonapi.Resource {
	out := *res
	keep, ok := fields[res.Type]
	if !ok {
		return out
	}

	attrs := make(map[string]any, len(keep))
	for _, name := range keep {
		name = strings.TrimSpace(name)
		if value, exists := res.Attributes[name]; exists {
			attrs[name] = value
		}
	}
	out.Attributes = attrs
	return out
}

func dereference(resources []*jsonapi.Resource, fields map[string][]string) []jsonapi.Resource {
	out := make([]jsonapi.Resource, len(resources))
	for i, res := range resources {
		out[i] = sparse(res, fields)
	}
	return out
}

// filterResources keeps resources where any string attribute contains the
// filter term. Real servers have richer filter grammars; the fixture only
// needs enough to exercise the pass-through.
func filterResources(resources []*jsonapi.Resource, term string) []*jsonapi.Resource {
	term = strings.ToLower(term)
	out := make([]*jsonapi.Resource, 0, len(resources))
	for _, res := range resources {
		for _, value := range res.Attributes {
			if s, ok := value.(string); ok && strings.Contains(strings.ToLower(s), term) {
				out = append(out, res)
				break
			}
		}
	}
	return out
}

func paginate(resources []*jsonapi.Resource, size, number int) []*jsonapi.Resource {
	if size <= 0 {
		return resources
	}
	if number <= 0 {
		number = 1
	}
	start := (number - 1) * size
	if start >= len(resources) {
		return []*jsonapi.Resource{}
	}
	end := start + size
	if end > len(resources) {
		end = len(resources)
	}
	return resources[start:end]
}

func writeDocument(w http.ResponseWriter, status int, doc *jsonapi.Document) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(doc)
}

func writeError(w http.ResponseWriter, status int, title, detail string) {
	doc := &jsonapi.Document{
		Errors: []jsonapi.ErrorObject{{
			Status: strconv.Itoa(status),
			Title:  title,
			Detail: detail,
		}},
	}
	writeDocument(w, status, doc)
}
