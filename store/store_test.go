package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sideload-dev/sideload/internal/demo"
	"github.com/sideload-dev/sideload/jsonapi"
	"github.com/sideload-dev/sideload/model"
)

// stubFetcher serves canned documents and counts round trips.
type stubFetcher struct {
	documents map[string]*jsonapi.Document
	calls     int
	lastOpts  *Options
	post      func(res *jsonapi.Resource) *jsonapi.Document
}

func (f *stubFetcher) key(typeName, id, relationship string) string {
	return typeName + "/" + id + "/" + relationship
}

func (f *stubFetcher) FetchDocument(ctx context.Context, typeName, id string, opts *Options) (*jsonapi.Document, error) {
	f.calls++
	f.lastOpts = opts
	return f.documents[f.key(typeName, id, "")], nil
}

func (f *stubFetcher) FetchHasMany(ctx context.Context, typeName, id, relationship string, opts *Options) (*jsonapi.Document, error) {
	f.calls++
	return f.documents[f.key(typeName, id, relationship)], nil
}

func (f *stubFetcher) FetchBelongsTo(ctx context.Context, typeName, id, relationship string, opts *Options) (*jsonapi.Document, error) {
	f.calls++
	return f.documents[f.key(typeName, id, relationship)], nil
}

func (f *stubFetcher) Post(ctx context.Context, res *jsonapi.Resource) (*jsonapi.Document, error) {
	f.calls++
	return f.post(res), nil
}

func bikeshedDocument() *jsonapi.Document {
	return &jsonapi.Document{
		Data: &jsonapi.PrimaryData{Many: []jsonapi.Resource{{
			ID:         "1",
			Type:       "articles",
			Attributes: map[string]any{"title": "JSON:API paints my bikeshed!"},
			Relationships: map[string]jsonapi.Relationship{
				"author": {Data: jsonapi.Linkage{One: &jsonapi.ResourceIdentifier{ID: "9", Type: "people"}}},
				"comments": {Data: jsonapi.Linkage{Many: []jsonapi.ResourceIdentifier{
					{ID: "5", Type: "comments"},
					{ID: "12", Type: "comments"},
				}}},
			},
		}}},
		Included: []jsonapi.Resource{
			{ID: "9", Type: "people", Attributes: map[string]any{"firstName": "Dan"}},
			{ID: "5", Type: "comments", Attributes: map[string]any{"body": "First!"}},
			{ID: "12", Type: "comments", Attributes: map[string]any{"body": "I like XML better"}},
		},
		Meta: map[string]any{"total": 1},
	}
}

func newTestStore(t *testing.T, fetcher Fetcher) *Store {
	t.Helper()
	st, err := New(Config{Models: demo.Definitions(), Fetcher: fetcher})
	require.NoError(t, err)
	return st
}

func TestFindAll(t *testing.T) {
	fetcher := &stubFetcher{documents: map[string]*jsonapi.Document{
		"articles//": bikeshedDocument(),
	}}
	st := newTestStore(t, fetcher)

	result, err := st.FindAll(context.Background(), "articles", nil)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	article := result.Records[0].(*demo.Article)
	assert.Equal(t, "JSON:API paints my bikeshed!", article.Title)
	require.Len(t, article.Comments, 2)
	assert.Equal(t, "First!", article.Comments[0].Body)
	require.NotNil(t, article.Author)
	assert.Equal(t, "Dan", article.Author.FirstName)

	assert.Equal(t, 1, result.Document.Meta["total"])
}

func TestFindRecordCacheFirst(t *testing.T) {
	fetcher := &stubFetcher{documents: map[string]*jsonapi.Document{
		"articles/1/": {
			Data: &jsonapi.PrimaryData{One: &jsonapi.Resource{
				ID:         "1",
				Type:       "articles",
				Attributes: map[string]any{"title": "JSON:API paints my bikeshed!"},
			}},
		},
	}}
	st := newTestStore(t, fetcher)
	ctx := context.Background()

	first, err := st.FindRecord(ctx, "articles", "1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)

	second, err := st.FindRecord(ctx, "articles", "1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls, "a resolved id must not fetch again")
	assert.Same(t, first, second)
}

func TestFindRecordIdentityAcrossOperations(t *testing.T) {
	fetcher := &stubFetcher{documents: map[string]*jsonapi.Document{
		"articles//": bikeshedDocument(),
	}}
	st := newTestStore(t, fetcher)
	ctx := context.Background()

	result, err := st.FindAll(ctx, "articles", nil)
	require.NoError(t, err)

	rec, err := st.FindRecord(ctx, "articles", "1", nil)
	require.NoError(t, err)
	assert.Same(t, result.Records[0], rec)
	assert.Equal(t, 1, fetcher.calls, "FindRecord after FindAll must hit the identity map")
}

func TestUnloadAllForcesRefetch(t *testing.T) {
	fetcher := &stubFetcher{documents: map[string]*jsonapi.Document{
		"articles/1/": {
			Data: &jsonapi.PrimaryData{One: &jsonapi.Resource{ID: "1", Type: "articles"}},
		},
	}}
	st := newTestStore(t, fetcher)
	ctx := context.Background()

	_, err := st.FindRecord(ctx, "articles", "1", nil)
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.calls)

	st.UnloadAll()

	_, err = st.FindRecord(ctx, "articles", "1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls, "unload must empty the cache")
}

func TestFindRecordMissingAfterFetch(t *testing.T) {
	fetcher := &stubFetcher{documents: map[string]*jsonapi.Document{
		"articles/404/": {Data: &jsonapi.PrimaryData{Null: true}},
	}}
	st := newTestStore(t, fetcher)

	_, err := st.FindRecord(context.Background(), "articles", "404", nil)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestFindRecordUnregisteredType(t *testing.T) {
	st := newTestStore(t, &stubFetcher{})

	_, err := st.FindRecord(context.Background(), "unicorns", "1", nil)
	assert.ErrorIs(t, err, model.ErrModelNotDefined)
}

func TestErrorDocumentPropagates(t *testing.T) {
	fetcher := &stubFetcher{documents: map[string]*jsonapi.Document{
		"articles//": {Errors: []jsonapi.ErrorObject{{Status: "403", Title: "Forbidden"}}},
	}}
	st := newTestStore(t, fetcher)

	_, err := st.FindAll(context.Background(), "articles", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Forbidden")
}

func TestFindRelatedHasMany(t *testing.T) {
	fetcher := &stubFetcher{documents: map[string]*jsonapi.Document{
		"articles/1/comments": {
			Data: &jsonapi.PrimaryData{Many: []jsonapi.Resource{
				{ID: "5", Type: "comments", Attributes: map[string]any{"body": "First!"}},
				{ID: "12", Type: "comments", Attributes: map[string]any{"body": "I like XML better"}},
			}},
		},
	}}
	st := newTestStore(t, fetcher)

	article, err := st.CreateRecord("articles", "1", nil)
	require.NoError(t, err)

	doc, err := st.FindRelated(context.Background(), article, "comments", nil)
	require.NoError(t, err)
	require.NotNil(t, doc)

	got := article.(*demo.Article)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "First!", got.Comments[0].Body)

	// related records land in the identity map
	comment, ok := st.Record("comments", "5")
	require.True(t, ok)
	assert.Same(t, got.Comments[0], comment)
}

func TestFindRelatedBelongsTo(t *testing.T) {
	fetcher := &stubFetcher{documents: map[string]*jsonapi.Document{
		"articles/1/author": {
			Data: &jsonapi.PrimaryData{One: &jsonapi.Resource{
				ID:         "9",
				Type:       "people",
				Attributes: map[string]any{"firstName": "Dan"},
			}},
		},
	}}
	st := newTestStore(t, fetcher)

	article, err := st.CreateRecord("articles", "1", nil)
	require.NoError(t, err)

	_, err = st.FindRelated(context.Background(), article, "author", nil)
	require.NoError(t, err)

	author := article.(*demo.Article).Author
	require.NotNil(t, author)
	assert.Equal(t, "Dan", author.FirstName)
}

func TestFindRelatedBelongsToNull(t *testing.T) {
	fetcher := &stubFetcher{documents: map[string]*jsonapi.Document{
		"articles/1/author": {Data: &jsonapi.PrimaryData{Null: true}},
	}}
	st := newTestStore(t, fetcher)

	article, err := st.CreateRecord("articles", "1", nil)
	require.NoError(t, err)
	// pre-set so the null result observably clears it
	article.(*demo.Article).Author = &demo.Person{ID: "9"}

	_, err = st.FindRelated(context.Background(), article, "author", nil)
	require.NoError(t, err)
	assert.Nil(t, article.(*demo.Article).Author)
}

func TestFindRelatedUndeclared(t *testing.T) {
	st := newTestStore(t, &stubFetcher{})

	article, err := st.CreateRecord("articles", "1", nil)
	require.NoError(t, err)

	_, err = st.FindRelated(context.Background(), article, "reactions", nil)
	assert.ErrorIs(t, err, ErrUndeclaredRelationship)
}

func TestCreateRecord(t *testing.T) {
	st := newTestStore(t, nil)

	rec, err := st.CreateRecord("articles", "", map[string]any{"title": "draft"})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.RecordID(), "missing id must be generated client-side")
	assert.Equal(t, "draft", rec.(*demo.Article).Title)

	// the record is live in the identity map under its generated id
	found, ok := st.Record("articles", rec.RecordID())
	require.True(t, ok)
	assert.Same(t, rec, found)
}

func TestCreateRecordUnregistered(t *testing.T) {
	st := newTestStore(t, nil)

	_, err := st.CreateRecord("unicorns", "", nil)
	assert.ErrorIs(t, err, model.ErrModelNotDefined)
}

func TestSaveNew(t *testing.T) {
	fetcher := &stubFetcher{post: func(res *jsonapi.Resource) *jsonapi.Document {
		// server assigns an id and echoes the resource back
		return &jsonapi.Document{Data: &jsonapi.PrimaryData{One: &jsonapi.Resource{
			ID:         "42",
			Type:       res.Type,
			Attributes: res.Attributes,
		}}}
	}}
	st := newTestStore(t, fetcher)

	rec, err := st.SaveNew(context.Background(), "articles", "", map[string]any{"title": "draft"})
	require.NoError(t, err)
	assert.Equal(t, "42", rec.RecordID())
	assert.Equal(t, "draft", rec.(*demo.Article).Title)
}

func TestNoFetcher(t *testing.T) {
	st := newTestStore(t, nil)

	_, err := st.FindAll(context.Background(), "articles", nil)
	assert.ErrorIs(t, err, ErrNoFetcher)

	_, err = st.FindRecord(context.Background(), "articles", "1", nil)
	assert.ErrorIs(t, err, ErrNoFetcher)
}

func TestOptionsPassThrough(t *testing.T) {
	fetcher := &stubFetcher{documents: map[string]*jsonapi.Document{
		"articles//": {Data: &jsonapi.PrimaryData{Many: []jsonapi.Resource{}}},
	}}
	st := newTestStore(t, fetcher)

	opts := &Options{
		Include: []string{"comments"},
		Fields:  map[string][]string{"articles": {"title"}},
		Page:    &Page{Size: 10, Number: 2},
		Filter:  "bikeshed",
	}
	_, err := st.FindAll(context.Background(), "articles", opts)
	require.NoError(t, err)
	assert.Same(t, opts, fetcher.lastOpts, "options must pass through opaquely")
}

func TestRecordsOf(t *testing.T) {
	st := newTestStore(t, nil)

	_, err := st.CreateRecord("comments", "5", map[string]any{"body": "First!"})
	require.NoError(t, err)
	_, err = st.CreateRecord("comments", "12", nil)
	require.NoError(t, err)

	all, err := st.RecordsOf("comments")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = st.RecordsOf("unicorns")
	assert.ErrorIs(t, err, model.ErrModelNotDefined)
}

func TestStoresShareNothing(t *testing.T) {
	first := newTestStore(t, nil)
	second := newTestStore(t, nil)

	_, err := first.CreateRecord("articles", "1", map[string]any{"title": "mine"})
	require.NoError(t, err)

	_, ok := second.Record("articles", "1")
	assert.False(t, ok, "registrations and records must be per-store state")
}

func TestSubscribe(t *testing.T) {
	fetcher := &stubFetcher{documents: map[string]*jsonapi.Document{
		"articles//": bikeshedDocument(),
	}}
	st := newTestStore(t, fetcher)

	var events []Event
	cancel := st.Subscribe(func(ev Event) { events = append(events, ev) })

	_, err := st.FindAll(context.Background(), "articles", nil)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, RecordsChanged, events[0].Kind)
	assert.Equal(t, "articles", events[0].Type)
	assert.Equal(t, []string{"1"}, events[0].IDs)

	st.UnloadAll()
	assert.Equal(t, StoreCleared, events[len(events)-1].Kind)

	cancel()
	seen := len(events)
	st.UnloadAll()
	assert.Len(t, events, seen, "canceled subscriber must not fire")
}
