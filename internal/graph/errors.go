package graph

import "errors"

var (
	// ErrUnknownRelationship is returned when wire linkage names a
	// relationship the owning model never declared and the materializer
	// was configured to reject rather than skip.
	ErrUnknownRelationship = errors.New("unknown relationship")

	// ErrMissingOwner is returned when the link pass encounters a resource
	// that was never materialized. This indicates a bug in the caller, not
	// a malformed document.
	ErrMissingOwner = errors.New("resource not materialized before linking")
)
