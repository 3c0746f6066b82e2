package sorting

import (
	"strings"

	"QueryKit/internal/logger"
)

// Direction of a sort key, case-normalized at parse time.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Key is one requested sort: a field name plus a direction. The order
// of keys in a request is the tie-break precedence: the first key is
// primary, later keys break ties.
type Key struct {
	Field     string
	Direction Direction
}

// Parse splits a request sort spec of the form
// "field1,-field2,field3:desc" into ordered keys. A "-" prefix or a
// ":desc" suffix marks descending; the implicit default is ascending.
func Parse(raw string) []Key {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	keys := make([]Key, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		dir := Asc
		if strings.HasPrefix(part, "-") {
			dir = Desc
			part = part[1:]
		}
		if field, suffix, ok := strings.Cut(part, ":"); ok {
			part = field
			if strings.EqualFold(strings.TrimSpace(suffix), "desc") {
				dir = Desc
			}
		}
		if part == "" {
			continue
		}
		keys = append(keys, Key{Field: part, Direction: dir})
	}
	return keys
}

// Compile turns the requested keys into ORDER BY fragments in request
// order, validated against the allow-list. The allow-list maps a
// request field name to its SQL-qualified column; keys outside it are
// silently dropped.
func Compile(keys []Key, allowed map[string]string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		col, ok := allowed[k.Field]
		if !ok {
			logger.Debug("sort_field_dropped", map[string]any{"field": k.Field})
			continue
		}
		out = append(out, col+" "+compileDirection(k.Direction))
	}
	return out
}

// Allowed filters keys down to those present in the allow-list,
// preserving request order. Used where the caller needs the validated
// keys themselves (cursor predicates) rather than fragments.
func Allowed(keys []Key, allowed map[string]string) []Key {
	out := make([]Key, 0, len(keys))
	for _, k := range keys {
		if _, ok := allowed[k.Field]; ok {
			out = append(out, k)
		}
	}
	return out
}

func compileDirection(d Direction) string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}
