package store

import "errors"

var (
	// ErrRecordNotFound is returned when a fetch that should have produced
	// a record came back without it.
	ErrRecordNotFound = errors.New("record not found")

	// ErrUndeclaredRelationship is returned when FindRelated is asked for
	// a relationship name the record's model never declared.
	ErrUndeclaredRelationship = errors.New("relationship not declared on model")

	// ErrNoFetcher is returned when a network-backed operation runs on a
	// store constructed without a fetcher.
	ErrNoFetcher = errors.New("store has no fetcher")
)
