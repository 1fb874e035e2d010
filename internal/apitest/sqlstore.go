package apitest

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	// Database drivers for the serve command's --db flag.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sideload-dev/sideload/jsonapi"
)

// OpenDB opens the database behind a DSN. Postgres URLs use lib/pq;
// anything else is treated as a SQLite path.
func OpenDB(dsn string) (*sql.DB, error) {
	driver := "sqlite3"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = "postgres"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	return db, nil
}

// EnsureSchema creates the demo tables and seeds them with the bikeshed
// fixture when they are empty.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS people (
			id INTEGER PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			twitter TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			author_id INTEGER REFERENCES people(id)
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id INTEGER PRIMARY KEY,
			body TEXT NOT NULL,
			article_id INTEGER REFERENCES articles(id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&count); err != nil {
		return fmt.Errorf("failed to check seed state: %w", err)
	}
	if count > 0 {
		return nil
	}

	seeds := []string{
		`INSERT INTO people (id, first_name, last_name, twitter) VALUES (9, 'Dan', 'Gebhardt', 'dgeb')`,
		`INSERT INTO articles (id, title, author_id) VALUES (1, 'JSON:API paints my bikeshed!', 9)`,
		`INSERT INTO comments (id, body, article_id) VALUES (5, 'First!', 1)`,
		`INSERT INTO comments (id, body, article_id) VALUES (12, 'I like XML better', 1)`,
	}
	for _, stmt := range seeds {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to seed fixture: %w", err)
		}
	}
	return nil
}

// LoadSQLDataset reads the demo schema into a Dataset, building the
// article relationships from the foreign keys: author from
// articles.author_id, comments from comments.article_id in id order.
func LoadSQLDataset(ctx context.Context, db *sql.DB) (*Dataset, error) {
	data := NewDataset()

	rows, err := db.QueryContext(ctx, `SELECT id, first_name, last_name, twitter FROM people ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load people: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var firstName, lastName string
		var twitter sql.NullString
		if err := rows.Scan(&id, &firstName, &lastName, &twitter); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		attrs := map[string]any{
			"firstName": firstName,
			"lastName":  lastName,
		}
		if twitter.Valid {
			attrs["twitter"] = twitter.String
		}
		data.Put(&jsonapi.Resource{
			ID:         strconv.FormatInt(id, 10),
			Type:       "people",
			Attributes: attrs,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load people: %w", err)
	}

	commentsByArticle := map[string][]jsonapi.ResourceIdentifier{}
	commentRows, err := db.QueryContext(ctx, `SELECT id, body, article_id FROM comments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}
	defer commentRows.Close()
	for commentRows.Next() {
		var id int64
		var body string
		var articleID sql.NullInt64
		if err := commentRows.Scan(&id, &body, &articleID); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		res := &jsonapi.Resource{
			ID:         strconv.FormatInt(id, 10),
			Type:       "comments",
			Attributes: map[string]any{"body": body},
		}
		data.Put(res)
		if articleID.Valid {
			key := strconv.FormatInt(articleID.Int64, 10)
			commentsByArticle[key] = append(commentsByArticle[key], res.Identifier())
		}
	}
	if err := commentRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}

	articleRows, err := db.QueryContext(ctx, `SELECT id, title, author_id FROM articles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load articles: %w", err)
	}
	defer articleRows.Close()
	for articleRows.Next() {
		var id int64
		var title string
		var authorID sql.NullInt64
		if err := articleRows.Scan(&id, &title, &authorID); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}

		idStr := strconv.FormatInt(id, 10)
		relationships := map[string]jsonapi.Relationship{}
		if authorID.Valid {
			relationships["author"] = jsonapi.Relationship{
				Data: jsonapi.Linkage{One: &jsonapi.ResourceIdentifier{
					ID:   strconv.FormatInt(authorID.Int64, 10),
					Type: "people",
				}},
			}
		} else {
			relationships["author"] = jsonapi.Relationship{Data: jsonapi.Linkage{Null: true}}
		}
		comments := commentsByArticle[idStr]
		if comments == nil {
			comments = []jsonapi.ResourceIdentifier{}
		}
		relationships["comments"] = jsonapi.Relationship{Data: jsonapi.Linkage{Many: comments}}

		data.Put(&jsonapi.Resource{
			ID:            idStr,
			Type:          "articles",
			Attributes:    map[string]any{"title": title},
			Relationships: relationships,
		})
	}
	if err := articleRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load articles: %w", err)
	}

	return data, nil
}
