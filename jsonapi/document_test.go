package jsonapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkageUnmarshal(t *testing.T) {
	t.Run("null", func(t *testing.T) {
		var l Linkage
		require.NoError(t, json.Unmarshal([]byte(`null`), &l))
		assert.True(t, l.Null)
		assert.Nil(t, l.One)
		assert.Nil(t, l.Many)
	})

	t.Run("single identifier", func(t *testing.T) {
		var l Linkage
		require.NoError(t, json.Unmarshal([]byte(`{"id":"9","type":"people"}`), &l))
		require.NotNil(t, l.One)
		assert.Equal(t, "9", l.One.ID)
		assert.Equal(t, "people", l.One.Type)
		assert.False(t, l.IsMany())
	})

	t.Run("identifier array", func(t *testing.T) {
		var l Linkage
		require.NoError(t, json.Unmarshal([]byte(`[{"id":"5","type":"comments"},{"id":"12","type":"comments"}]`), &l))
		require.True(t, l.IsMany())
		require.Len(t, l.Many, 2)
		assert.Equal(t, "5", l.Many[0].ID)
		assert.Equal(t, "12", l.Many[1].ID)
	})

	t.Run("empty array stays distinguishable from null", func(t *testing.T) {
		var l Linkage
		require.NoError(t, json.Unmarshal([]byte(`[]`), &l))
		assert.True(t, l.IsMany())
		assert.Empty(t, l.Many)
		assert.False(t, l.Null)
	})

	t.Run("garbage", func(t *testing.T) {
		var l Linkage
		assert.Error(t, json.Unmarshal([]byte(`42`), &l))
	})
}

func TestLinkageMarshalRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"null", `null`},
		{"one", `{"id":"9","type":"people"}`},
		{"many", `[{"id":"5","type":"comments"}]`},
		{"empty many", `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l Linkage
			require.NoError(t, json.Unmarshal([]byte(tt.in), &l))
			out, err := json.Marshal(l)
			require.NoError(t, err)
			assert.JSONEq(t, tt.in, string(out))
		})
	}
}

func TestPrimaryData(t *testing.T) {
	t.Run("single resource", func(t *testing.T) {
		var p PrimaryData
		require.NoError(t, json.Unmarshal([]byte(`{"id":"1","type":"articles","attributes":{"title":"hi"}}`), &p))
		require.NotNil(t, p.One)
		assert.Equal(t, "1", p.One.ID)
		assert.Equal(t, "hi", p.One.Attributes["title"])
		assert.Len(t, p.Resources(), 1)
	})

	t.Run("collection", func(t *testing.T) {
		var p PrimaryData
		require.NoError(t, json.Unmarshal([]byte(`[{"id":"1","type":"articles"},{"id":"2","type":"articles"}]`), &p))
		require.Len(t, p.Many, 2)
		assert.Equal(t, "2", p.Many[1].ID)
	})

	t.Run("null", func(t *testing.T) {
		var p PrimaryData
		require.NoError(t, json.Unmarshal([]byte(`null`), &p))
		assert.True(t, p.Null)
		assert.Nil(t, p.Resources())
	})
}

func TestDecodeDocument(t *testing.T) {
	raw := `{
		"data": [{
			"id": "1",
			"type": "articles",
			"attributes": {"title": "JSON:API paints my bikeshed!"},
			"relationships": {
				"author": {"data": {"id": "9", "type": "people"}},
				"comments": {"data": [{"id": "5", "type": "comments"}, {"id": "12", "type": "comments"}]}
			}
		}],
		"included": [
			{"id": "9", "type": "people", "attributes": {"firstName": "Dan"}},
			{"id": "5", "type": "comments", "attributes": {"body": "First!"}},
			{"id": "12", "type": "comments", "attributes": {"body": "I like XML better"}}
		],
		"meta": {"total": 1}
	}`

	doc, err := Decode([]byte(raw))
	require.NoError(t, err)

	primary := doc.PrimaryResources()
	require.Len(t, primary, 1)
	article := primary[0]
	assert.Equal(t, "1", article.ID)
	assert.Equal(t, "articles", article.Type)

	author := article.Relationships["author"]
	require.NotNil(t, author.Data.One)
	assert.Equal(t, "9", author.Data.One.ID)

	comments := article.Relationships["comments"]
	require.Len(t, comments.Data.Many, 2)

	require.Len(t, doc.Included, 3)
	assert.Equal(t, float64(1), doc.Meta["total"])
	assert.NoError(t, doc.Err())
}

func TestDocumentIncludedNilness(t *testing.T) {
	t.Run("absent included decodes to nil", func(t *testing.T) {
		doc, err := Decode([]byte(`{"data": []}`))
		require.NoError(t, err)
		assert.Nil(t, doc.Included)
	})

	t.Run("empty included decodes to non-nil", func(t *testing.T) {
		doc, err := Decode([]byte(`{"data": [], "included": []}`))
		require.NoError(t, err)
		assert.NotNil(t, doc.Included)
		assert.Empty(t, doc.Included)
	})

	t.Run("empty included survives a marshal round trip", func(t *testing.T) {
		doc := Document{
			Data:     &PrimaryData{Many: []Resource{}},
			Included: []Resource{},
		}
		raw, err := json.Marshal(doc)
		require.NoError(t, err)

		decoded, err := Decode(raw)
		require.NoError(t, err)
		assert.NotNil(t, decoded.Included)
	})

	t.Run("nil included is not emitted", func(t *testing.T) {
		raw, err := json.Marshal(Document{Data: &PrimaryData{Many: []Resource{}}})
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "included")
	})
}

func TestDocumentErr(t *testing.T) {
	doc, err := Decode([]byte(`{"errors": [{"status": "404", "title": "Not Found", "detail": "gone"}]}`))
	require.NoError(t, err)

	docErr := doc.Err()
	require.Error(t, docErr)
	assert.Contains(t, docErr.Error(), "Not Found")
	assert.Contains(t, docErr.Error(), "gone")
}

func TestNullAttributeStaysPresent(t *testing.T) {
	doc, err := Decode([]byte(`{"data": {"id": "1", "type": "articles", "attributes": {"title": null}}}`))
	require.NoError(t, err)

	attrs := doc.Data.One.Attributes
	value, present := attrs["title"]
	assert.True(t, present, "explicit null must stay visible as a present key")
	assert.Nil(t, value)
}
