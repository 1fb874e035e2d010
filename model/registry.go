package model

import (
	"fmt"
	"reflect"
)

// Registry holds the registered model definitions for one store, indexed in
// both directions: wire type name to definition, and the record's Go type
// to definition. The two indexes form a bijection; registering two
// definitions with the same wire type, or two definitions whose
// constructors produce the same Go type, is an error.
//
// A registry is built once at store construction and never mutated
// afterward, so lookups need no locking.
type Registry struct {
	byType   map[string]*Definition
	byRecord map[reflect.Type]*Definition
}

// NewRegistry builds a registry from an explicit definition list.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{
		byType:   make(map[string]*Definition, len(defs)),
		byRecord: make(map[reflect.Type]*Definition, len(defs)),
	}
	for i := range defs {
		if err := r.register(&defs[i]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(def *Definition) error {
	if def.Type == "" {
		return fmt.Errorf("%w: missing type name", ErrInvalidDefinition)
	}
	if def.New == nil {
		return fmt.Errorf("%w: %s has no constructor", ErrInvalidDefinition, def.Type)
	}
	for name, rel := range def.Relationships {
		switch rel.Kind {
		case HasMany:
			if rel.SetMany == nil {
				return fmt.Errorf("%w: %s.%s is has_many but has no SetMany", ErrInvalidDefinition, def.Type, name)
			}
		case BelongsTo:
			if rel.SetOne == nil {
				return fmt.Errorf("%w: %s.%s is belongs_to but has no SetOne", ErrInvalidDefinition, def.Type, name)
			}
		default:
			return fmt.Errorf("%w: %s.%s has unknown kind %d", ErrInvalidDefinition, def.Type, name, rel.Kind)
		}
		if rel.Target == "" {
			return fmt.Errorf("%w: %s.%s has no target type", ErrInvalidDefinition, def.Type, name)
		}
	}

	if _, exists := r.byType[def.Type]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, def.Type)
	}

	// Probe the constructor once to learn the Go type it produces. The
	// constructor contract forbids side effects, so this is safe.
	probe := def.New("")
	if probe == nil {
		return fmt.Errorf("%w: %s constructor returned nil", ErrInvalidDefinition, def.Type)
	}
	rt := reflect.TypeOf(probe)
	if existing, exists := r.byRecord[rt]; exists {
		return fmt.Errorf("%w: record type %s already registered as %s", ErrDuplicateModel, rt, existing.Type)
	}

	r.byType[def.Type] = def
	r.byRecord[rt] = def
	return nil
}

// Definition retrieves the definition for a wire type name.
func (r *Registry) Definition(typeName string) (*Definition, error) {
	def, ok := r.byType[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotDefined, typeName)
	}
	return def, nil
}

// DefinitionFor retrieves the definition for a record instance, the reverse
// direction of Definition.
func (r *Registry) DefinitionFor(rec Record) (*Definition, error) {
	def, ok := r.byRecord[reflect.TypeOf(rec)]
	if !ok {
		return nil, fmt.Errorf("%w: record type %T", ErrModelNotDefined, rec)
	}
	return def, nil
}

// TypeOf returns the wire type name for a record instance.
func (r *Registry) TypeOf(rec Record) (string, error) {
	def, err := r.DefinitionFor(rec)
	if err != nil {
		return "", err
	}
	return def.Type, nil
}

// Exists reports whether a wire type name is registered.
func (r *Registry) Exists(typeName string) bool {
	_, ok := r.byType[typeName]
	return ok
}

// Types returns the registered wire type names.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.byType))
	for name := range r.byType {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered models.
func (r *Registry) Count() int {
	return len(r.byType)
}

// Relationships returns the declared relationship table for a wire type.
// The result may be empty; it is never nil for a registered type with
// declared relationships.
func (r *Registry) Relationships(typeName string) (map[string]Relationship, error) {
	def, err := r.Definition(typeName)
	if err != nil {
		return nil, err
	}
	return def.Relationships, nil
}
