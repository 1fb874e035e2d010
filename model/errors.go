package model

import "errors"

var (
	// ErrModelNotDefined is returned when a wire type or record type was
	// never registered.
	ErrModelNotDefined = errors.New("model not defined")

	// ErrDuplicateModel is returned when a definition collides with an
	// already registered type name or record type.
	ErrDuplicateModel = errors.New("model already registered")

	// ErrInvalidDefinition is returned when a definition is structurally
	// unusable (missing type name, nil constructor, or a relationship
	// without the setter its kind requires).
	ErrInvalidDefinition = errors.New("invalid model definition")
)
