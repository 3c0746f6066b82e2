package entity

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"QueryKit/internal/logger"
	"QueryKit/internal/relation"

	"gopkg.in/yaml.v3"
)

// LoadEntitiesFromDir reads every *.yml entity definition in dir into
// the registry. The file base name is the entity's registry name.
func LoadEntitiesFromDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no entity definitions in %s", dir)
	}

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var e Entity
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("unmarshal error in %s: %w", path, err)
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		e.Name = name
		Registry[name] = &e
		logger.Info("entity_loaded", map[string]any{
			"entity":    name,
			"relations": len(e.Relations),
		})
	}
	return nil
}

// LinkRelations wires runtime references between entities after all
// definitions are loaded, and applies per-kind defaults.
func LinkRelations() error {
	for name, e := range Registry {
		for relName, rel := range e.Relations {
			rel.Name = relName

			if rel.Kind == relation.MorphTo {
				// discriminator columns default from the relation name
				if rel.MorphType == "" {
					rel.MorphType = relName + "_type"
				}
				if rel.MorphID == "" {
					rel.MorphID = relName + "_id"
				}
				continue
			}

			related, ok := Registry[rel.Entity]
			if !ok {
				return fmt.Errorf("entity %s: relation %q references unknown entity %q", name, relName, rel.Entity)
			}
			rel.SetRelated(related.Table, related.Relations)

			if rel.ThroughEntity != "" {
				through, ok := Registry[rel.ThroughEntity]
				if !ok {
					return fmt.Errorf("entity %s: relation %q references unknown through entity %q", name, relName, rel.ThroughEntity)
				}
				if rel.ThroughTable == "" {
					rel.ThroughTable = through.Table
				}
			}
		}
	}
	return nil
}

// ValidateRegistry checks structural consistency: tables declared,
// include paths resolvable, allow-listed fields known.
func ValidateRegistry() error {
	for name, e := range Registry {
		if strings.TrimSpace(e.Table) == "" {
			return fmt.Errorf("entity %s: table is required", name)
		}

		for _, inc := range e.Includable {
			if err := validateIncludePath(e, inc); err != nil {
				return fmt.Errorf("entity %s: includable %q: %w", name, inc, err)
			}
		}

		for _, f := range append(append([]string{}, e.Filterable...), e.Sortable...) {
			if _, ok := e.Columns[f]; !ok {
				logger.Warn("allow_list_field_untyped", map[string]any{
					"entity": name,
					"field":  f,
				})
			}
		}

		e.Finalize()
	}
	return nil
}

func validateIncludePath(e *Entity, path string) error {
	current := e.Relations
	segments := strings.Split(path, ".")
	for i, seg := range segments {
		rel, ok := current[seg]
		if !ok {
			return fmt.Errorf("unknown relationship %q", seg)
		}
		if i == len(segments)-1 {
			return nil
		}
		if rel.Kind == relation.MorphTo {
			return fmt.Errorf("cannot nest includes under morph_to relationship %q", seg)
		}
		related, ok := Registry[rel.Entity]
		if !ok {
			return fmt.Errorf("relationship %q not linked", seg)
		}
		current = related.Relations
	}
	return nil
}
