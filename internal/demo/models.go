// Package demo declares the bikeshed model set (articles, comments,
// people) used by the CLI and the end-to-end tests. It doubles as the
// reference example for writing a definition table by hand.
package demo

import "github.com/sideload-dev/sideload/model"

// Article is the demo root model.
type Article struct {
	ID       string
	Title    string
	Comments []*Comment
	Author   *Person
}

// RecordID implements model.Record.
func (a *Article) RecordID() string { return a.ID }

// Comment is a demo has-many target.
type Comment struct {
	ID   string
	Body string
}

// RecordID implements model.Record.
func (c *Comment) RecordID() string { return c.ID }

// Person is a demo belongs-to target.
type Person struct {
	ID        string
	FirstName string
	LastName  string
	Twitter   string
}

// RecordID implements model.Record.
func (p *Person) RecordID() string { return p.ID }

// Definitions returns the registration table for the demo models.
func Definitions() []model.Definition {
	return []model.Definition{
		{
			Type: "articles",
			New:  func(id string) model.Record { return &Article{ID: id} },
			Attributes: map[string]model.AttributeSetter{
				"title": func(rec model.Record, v any) { rec.(*Article).Title = asString(v) },
			},
			Relationships: map[string]model.Relationship{
				"comments": {
					Target: "comments",
					Kind:   model.HasMany,
					SetMany: func(rec model.Record, related []model.Record) {
						a := rec.(*Article)
						a.Comments = make([]*Comment, len(related))
						for i, r := range related {
							a.Comments[i] = r.(*Comment)
						}
					},
				},
				"author": {
					Target: "people",
					Kind:   model.BelongsTo,
					SetOne: func(rec model.Record, related model.Record) {
						a := rec.(*Article)
						if related == nil {
							a.Author = nil
							return
						}
						a.Author = related.(*Person)
					},
				},
			},
		},
		{
			Type: "comments",
			New:  func(id string) model.Record { return &Comment{ID: id} },
			Attributes: map[string]model.AttributeSetter{
				"body": func(rec model.Record, v any) { rec.(*Comment).Body = asString(v) },
			},
		},
		{
			Type: "people",
			New:  func(id string) model.Record { return &Person{ID: id} },
			Attributes: map[string]model.AttributeSetter{
				"firstName": func(rec model.Record, v any) { rec.(*Person).FirstName = asString(v) },
				"lastName":  func(rec model.Record, v any) { rec.(*Person).LastName = asString(v) },
				"twitter":   func(rec model.Record, v any) { rec.(*Person).Twitter = asString(v) },
			},
		},
	}
}

// asString coerces a loosely decoded attribute value, mapping explicit
// null back to the zero value.
func asString(v any) string {
	s, _ := v.(string)
	return s
}
