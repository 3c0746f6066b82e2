package entity

import (
	"strings"

	"QueryKit/internal/filter"
	"QueryKit/internal/relation"
	"QueryKit/internal/sorting"
)

// Filterable, Sortable, Includable and Selectable are the four small
// contracts the query builder composes. Entity satisfies all of them;
// a consumer may also hand-implement any subset.
type Filterable interface {
	AllowedFilters() map[string]filter.Column
}

type Sortable interface {
	AllowedSorts() map[string]string
}

type Includable interface {
	AllowedIncludes() map[string]struct{}
	Relationships() map[string]*relation.Relationship
}

type Selectable interface {
	AllowedFields() map[string]struct{}
}

// Entity describes one queryable resource as declared in its YAML
// file: table, column types, the four allow-lists and the
// relationship table. Static after InitRegistry.
type Entity struct {
	Name         string                             `yaml:"-"`
	Table        string                             `yaml:"table"`
	PrimaryKey   string                             `yaml:"primary_key"`
	CursorColumn string                             `yaml:"cursor_column"`
	DefaultSort  string                             `yaml:"default_sort"`
	Columns      map[string]string                  `yaml:"columns"`
	Filterable   []string                           `yaml:"filterable"`
	Sortable     []string                           `yaml:"sortable"`
	Selectable   []string                           `yaml:"selectable"`
	Includable   []string                           `yaml:"includable"`
	Relations    map[string]*relation.Relationship  `yaml:"relations"`

	// precomputed allow-list maps, built once in finalize
	filterCols map[string]filter.Column
	sortCols   map[string]string
	selectSet  map[string]struct{}
	includeSet map[string]struct{}
}

// Finalize applies defaults and precomputes the allow-list maps. It
// runs once per entity at registry validation time.
func (e *Entity) Finalize() {
	if e.PrimaryKey == "" {
		e.PrimaryKey = "id"
	}
	if e.CursorColumn == "" {
		e.CursorColumn = "created_at"
	}

	e.filterCols = make(map[string]filter.Column, len(e.Filterable))
	for _, f := range e.Filterable {
		e.filterCols[f] = filter.Column{Name: "main." + f, Type: e.columnType(f)}
	}
	e.sortCols = make(map[string]string, len(e.Sortable))
	for _, s := range e.Sortable {
		e.sortCols[s] = "main." + s
	}
	e.selectSet = make(map[string]struct{}, len(e.Selectable))
	for _, s := range e.Selectable {
		e.selectSet[s] = struct{}{}
	}
	e.includeSet = make(map[string]struct{}, len(e.Includable))
	for _, i := range e.Includable {
		e.includeSet[i] = struct{}{}
	}
}

func (e *Entity) columnType(name string) filter.ColumnType {
	switch e.Columns[name] {
	case "numeric", "int", "float":
		return filter.TypeNumeric
	case "date", "datetime", "timestamp":
		return filter.TypeDate
	case "id":
		return filter.TypeID
	case "bool":
		return filter.TypeBool
	default:
		return filter.TypeString
	}
}

func (e *Entity) AllowedFilters() map[string]filter.Column {
	return e.filterCols
}

func (e *Entity) AllowedSorts() map[string]string {
	return e.sortCols
}

func (e *Entity) AllowedFields() map[string]struct{} {
	return e.selectSet
}

func (e *Entity) AllowedIncludes() map[string]struct{} {
	return e.includeSet
}

func (e *Entity) Relationships() map[string]*relation.Relationship {
	return e.Relations
}

// PrimaryKeyColumn is the qualified id column of the primary query.
func (e *Entity) PrimaryKeyColumn() string {
	return "main." + e.PrimaryKey
}

// DefaultSortKeys is the sort applied when a request carries none:
// the declared default_sort, else newest-first on the cursor column
// with the primary key as tie-break.
func (e *Entity) DefaultSortKeys() []sorting.Key {
	if strings.TrimSpace(e.DefaultSort) != "" {
		if keys := sorting.Parse(e.DefaultSort); len(keys) > 0 {
			return keys
		}
	}
	return []sorting.Key{
		{Field: e.CursorColumn, Direction: sorting.Desc},
		{Field: e.PrimaryKey, Direction: sorting.Asc},
	}
}

// SortColumn resolves a field to its qualified column even when the
// field is outside the sortable allow-list (used for default sorts).
func (e *Entity) SortColumn(field string) string {
	if col, ok := e.sortCols[field]; ok {
		return col
	}
	return "main." + field
}
