package apitest

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSQLDataset(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, first_name, last_name, twitter FROM people ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "twitter"}).
			AddRow(9, "Dan", "Gebhardt", "dgeb"))
	mock.ExpectQuery(`SELECT id, body, article_id FROM comments ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "body", "article_id"}).
			AddRow(5, "First!", 1).
			AddRow(12, "I like XML better", 1).
			AddRow(13, "orphaned", nil))
	mock.ExpectQuery(`SELECT id, title, author_id FROM articles ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author_id"}).
			AddRow(1, "JSON:API paints my bikeshed!", 9).
			AddRow(2, "Anonymous rant", nil))

	data, err := LoadSQLDataset(context.Background(), db)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	person, ok := data.Get("people", "9")
	require.True(t, ok)
	assert.Equal(t, "Dan", person.Attributes["firstName"])
	assert.Equal(t, "dgeb", person.Attributes["twitter"])

	article, ok := data.Get("articles", "1")
	require.True(t, ok)
	assert.Equal(t, "JSON:API paints my bikeshed!", article.Attributes["title"])

	author := article.Relationships["author"]
	require.NotNil(t, author.Data.One)
	assert.Equal(t, "9", author.Data.One.ID)
	assert.Equal(t, "people", author.Data.One.Type)

	comments := article.Relationships["comments"]
	require.Len(t, comments.Data.Many, 2)
	assert.Equal(t, "5", comments.Data.Many[0].ID)
	assert.Equal(t, "12", comments.Data.Many[1].ID)

	// an article without an author gets explicit null linkage, and one
	// without comments an empty array
	rant, ok := data.Get("articles", "2")
	require.True(t, ok)
	assert.True(t, rant.Relationships["author"].Data.Null)
	assert.NotNil(t, rant.Relationships["comments"].Data.Many)
	assert.Empty(t, rant.Relationships["comments"].Data.Many)

	// the orphaned comment still loads as a resource
	_, ok = data.Get("comments", "13")
	assert.True(t, ok)
}

func TestLoadSQLDatasetQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, first_name, last_name, twitter FROM people ORDER BY id`).
		WillReturnError(assert.AnError)

	_, err = LoadSQLDataset(context.Background(), db)
	assert.Error(t, err)
}

func TestEnsureSchemaAndLoadSQLite(t *testing.T) {
	db, err := OpenDB(t.TempDir() + "/fixture.db")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, EnsureSchema(ctx, db))
	// seeding is idempotent
	require.NoError(t, EnsureSchema(ctx, db))

	data, err := LoadSQLDataset(ctx, db)
	require.NoError(t, err)

	article, ok := data.Get("articles", "1")
	require.True(t, ok)
	assert.Equal(t, "JSON:API paints my bikeshed!", article.Attributes["title"])
	assert.Len(t, article.Relationships["comments"].Data.Many, 2)
}
