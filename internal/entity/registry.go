package entity

import (
	"fmt"

	"QueryKit/internal/relation"
)

var Registry = map[string]*Entity{}

// InitRegistry loads, links and validates all entity definitions.
func InitRegistry(dir string) error {
	if err := LoadEntitiesFromDir(dir); err != nil {
		return fmt.Errorf("load error: %w", err)
	}
	if err := LinkRelations(); err != nil {
		return fmt.Errorf("link error: %w", err)
	}
	if err := ValidateRegistry(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}

func Get(name string) *Entity {
	return Registry[name]
}

// ResolveMorph satisfies the loader's morph_to type resolver: the
// stored discriminator value is an entity registry name.
func ResolveMorph(name string) (string, map[string]*relation.Relationship, bool) {
	e, ok := Registry[name]
	if !ok {
		return "", nil, false
	}
	return e.Table, e.Relations, true
}
